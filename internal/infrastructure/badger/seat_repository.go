package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

// SeatRepository は公演日ごとに1キー（seats:<day>）で座席配列を保存する
type SeatRepository struct {
	db *badger.DB
}

func NewSeatRepository(db *badger.DB) *SeatRepository { return &SeatRepository{db: db} }

func seatKey(day string) []byte {
	return []byte("seats:" + day)
}

func (r *SeatRepository) Load(ctx context.Context, day string) ([]seat.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seatKey(day))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, seat.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("座席データ取得に失敗: %w", err)
	}
	return seat.DecodeJSON(data)
}

func (r *SeatRepository) CreateIfAbsent(ctx context.Context, day string, seats []seat.Seat) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := seat.EncodeJSON(seats, false)
	if err != nil {
		return false, err
	}
	created := false
	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(seatKey(day))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		created = true
		return txn.Set(seatKey(day), data)
	})
	if err != nil {
		// 競合は同じキーを別のトランザクションが先に書いたことを意味する
		if errors.Is(err, badger.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("座席データ作成に失敗: %w", err)
	}
	return created, nil
}

func (r *SeatRepository) Replace(ctx context.Context, day string, seats []seat.Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := seat.EncodeJSON(seats, false)
	if err != nil {
		return err
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seatKey(day), data)
	}); err != nil {
		return fmt.Errorf("座席データ置換に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)

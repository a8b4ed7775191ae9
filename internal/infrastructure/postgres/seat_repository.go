package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

type seatRow struct {
	Index    int  `db:"idx"`
	Reserved bool `db:"reserved"`
}

// SeatRepository は (day, idx) を主キーとする seats テーブルに座席を保存する
type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Load(ctx context.Context, day string) ([]seat.Seat, error) {
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT idx, reserved FROM seats WHERE day = $1 ORDER BY idx`, day); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, seat.ErrInventoryNotFound
	}
	if len(rows) != seat.Capacity {
		return nil, fmt.Errorf("%w: %d席", seat.ErrInventoryCorrupted, len(rows))
	}
	seats := make([]seat.Seat, len(rows))
	for i, row := range rows {
		if row.Index != i {
			return nil, fmt.Errorf("%w: 座席番号 %d が欠落しています", seat.ErrInventoryCorrupted, i)
		}
		seats[i] = seat.Seat{Reserved: row.Reserved}
	}
	return seats, nil
}

func (r *SeatRepository) CreateIfAbsent(ctx context.Context, day string, seats []seat.Seat) (bool, error) {
	query, args := buildUpsert(day, seats, `ON CONFLICT (day, idx) DO NOTHING`)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return n > 0, nil
}

// Replace は1トランザクションで全座席を上書きし、範囲外の行を削除する
// 行ロックは idx 昇順で取得されるため、同時の Replace は直列化される
func (r *SeatRepository) Replace(ctx context.Context, day string, seats []seat.Seat) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := buildUpsert(day, seats, `ON CONFLICT (day, idx) DO UPDATE SET reserved = EXCLUDED.reserved, updated_at = NOW()`)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席一括更新に失敗: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM seats WHERE day = $1 AND idx >= $2`, day, len(seats)); err != nil {
		return fmt.Errorf("範囲外の座席削除に失敗: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// buildUpsert はマルチバリューINSERTを構築する
func buildUpsert(day string, seats []seat.Seat, conflict string) (string, []interface{}) {
	args := make([]interface{}, 0, len(seats)*3)
	placeholders := make([]string, 0, len(seats))
	for i, s := range seats {
		base := i * 3
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, day, i, s.Reserved)
	}
	query := `INSERT INTO seats (day, idx, reserved) VALUES ` + strings.Join(placeholders, ", ") + ` ` + conflict
	return query, args
}

var _ seat.Repository = (*SeatRepository)(nil)

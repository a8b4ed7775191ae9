package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
)

const (
	resetReasonMissing   = "missing"
	resetReasonCorrupted = "corrupted"
)

// SeatStore は公演日ごとの座席データの読み出し（なければ初期化）と全置換を担う
// バックエンドの違いは seat.Repository に閉じ込める
type SeatStore struct {
	repo    seat.Repository
	metrics *metrics.Metrics
}

func NewSeatStore(repo seat.Repository, m *metrics.Metrics) *SeatStore {
	return &SeatStore{repo: repo, metrics: m}
}

// LoadOrInitialize は座席一覧を返す。存在しない・破損している場合は全席空きで作り直して保存する
// 返り値は常に Capacity 件である
func (s *SeatStore) LoadOrInitialize(ctx context.Context, day string) ([]seat.Seat, error) {
	log := logger.FromContext(ctx).With(zap.String("day", day))

	seats, err := s.repo.Load(ctx, day)
	if err == nil {
		if seat.ValidateInventory(seats) == nil {
			return seats, nil
		}
		err = fmt.Errorf("%w: %d席", seat.ErrInventoryCorrupted, len(seats))
	}

	switch {
	case errors.Is(err, seat.ErrInventoryNotFound):
		log.Info("座席データを初期化します", zap.Int("capacity", seat.Capacity))
		return s.create(ctx, day)
	case errors.Is(err, seat.ErrInventoryCorrupted):
		log.Warn("座席データが破損しているため再初期化します", zap.Error(err))
		return s.reset(ctx, day, resetReasonCorrupted)
	default:
		return nil, storageError("座席データの読み込みに失敗", err)
	}
}

// create は座席データが無い場合のみ初期状態を書き込む
// 同時に初回アクセスが来た場合は先に書き込んだ方の状態を読み直して返す
func (s *SeatStore) create(ctx context.Context, day string) ([]seat.Seat, error) {
	initial := seat.NewInventory()
	created, err := s.repo.CreateIfAbsent(ctx, day, initial)
	if err != nil {
		return nil, storageError("座席データの初期化に失敗", err)
	}
	if created {
		s.metrics.ObserveReset(day, resetReasonMissing)
		return initial, nil
	}

	seats, err := s.repo.Load(ctx, day)
	if err == nil && seat.ValidateInventory(seats) == nil {
		return seats, nil
	}
	if err != nil && !errors.Is(err, seat.ErrInventoryCorrupted) && !errors.Is(err, seat.ErrInventoryNotFound) {
		return nil, storageError("座席データの読み込みに失敗", err)
	}
	logger.FromContext(ctx).Warn("初期化競合後の座席データが不正なため再初期化します", zap.String("day", day))
	return s.reset(ctx, day, resetReasonCorrupted)
}

func (s *SeatStore) reset(ctx context.Context, day, reason string) ([]seat.Seat, error) {
	initial := seat.NewInventory()
	if err := s.repo.Replace(ctx, day, initial); err != nil {
		return nil, storageError("座席データの再初期化に失敗", err)
	}
	s.metrics.ObserveReset(day, reason)
	return initial, nil
}

// ReplaceAll は座席データ全体を置き換える。座席数が不正な場合は何も書き込まない
func (s *SeatStore) ReplaceAll(ctx context.Context, day string, seats []seat.Seat) error {
	if err := seat.ValidateInventory(seats); err != nil {
		return err
	}
	snapshot := make([]seat.Seat, len(seats))
	copy(snapshot, seats)
	if err := s.repo.Replace(ctx, day, snapshot); err != nil {
		return storageError("座席データの保存に失敗", err)
	}
	return nil
}

func storageError(msg string, err error) error {
	if errors.Is(err, seat.ErrStorage) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, seat.ErrStorage, err)
}

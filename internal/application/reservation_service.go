package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
)

const (
	saveStatusSuccess = "success"
	saveStatusInvalid = "invalid"
	saveStatusError   = "error"

	notifyTimeout = 5 * time.Second
)

// SeatsSavedEvent は座席保存後に通知されるイベント
type SeatsSavedEvent struct {
	Day      string    `json:"day"`
	Label    string    `json:"label"`
	Reserved int       `json:"reserved"`
	Total    int       `json:"total"`
	SavedAt  time.Time `json:"saved_at"`
}

// SaveNotifier は座席保存を外部へ通知する
type SaveNotifier interface {
	PublishSeatsSaved(ctx context.Context, event SeatsSavedEvent) error
}

// Summary は公演日ごとの座席集計
type Summary struct {
	Day      day.Day
	Total    int
	Reserved int
	Free     int
}

// ReservationService は公演日の検証と座席ストアへの委譲を行う
// リクエストをまたぐ可変状態は持たない
type ReservationService struct {
	registry *day.Registry
	store    *SeatStore
	notifier SaveNotifier
	metrics  *metrics.Metrics
	now      func() time.Time

	pending sync.WaitGroup
}

func NewReservationService(r *day.Registry, store *SeatStore, n SaveNotifier, m *metrics.Metrics) *ReservationService {
	return &ReservationService{registry: r, store: store, notifier: n, metrics: m, now: time.Now}
}

// Days は設定された公演日一覧を返す
func (s *ReservationService) Days() []day.Day {
	return s.registry.Days()
}

// DescribeDays は利用者向けに有効な公演日を列挙する
func (s *ReservationService) DescribeDays() string {
	return s.registry.Describe()
}

// GetSeats は公演日の座席一覧を返す
func (s *ReservationService) GetSeats(ctx context.Context, token string) ([]seat.Seat, error) {
	d, err := s.registry.Resolve(token)
	if err != nil {
		return nil, err
	}
	seats, err := s.store.LoadOrInitialize(ctx, d.Token)
	if err != nil {
		return nil, err
	}
	s.metrics.SetReserved(d.Token, seat.CountReserved(seats))
	return seats, nil
}

// SaveSeats は公演日の座席一覧を全置換し、確認メッセージを返す
func (s *ReservationService) SaveSeats(ctx context.Context, token string, seats []seat.Seat) (string, error) {
	d, err := s.registry.Resolve(token)
	if err != nil {
		return "", err
	}
	if err := seat.ValidateInventory(seats); err != nil {
		s.metrics.ObserveSave(d.Token, saveStatusInvalid)
		return "", err
	}
	if err := s.store.ReplaceAll(ctx, d.Token, seats); err != nil {
		s.metrics.ObserveSave(d.Token, saveStatusError)
		return "", err
	}

	reserved := seat.CountReserved(seats)
	s.metrics.ObserveSave(d.Token, saveStatusSuccess)
	s.metrics.SetReserved(d.Token, reserved)
	s.notify(ctx, SeatsSavedEvent{
		Day: d.Token, Label: d.Label,
		Reserved: reserved, Total: len(seats), SavedAt: s.now().UTC(),
	})

	return fmt.Sprintf("✅ Sauvegarde réussie pour %s !", d.Label), nil
}

// Summary は公演日の座席集計を返す
func (s *ReservationService) Summary(ctx context.Context, token string) (*Summary, error) {
	d, err := s.registry.Resolve(token)
	if err != nil {
		return nil, err
	}
	seats, err := s.store.LoadOrInitialize(ctx, d.Token)
	if err != nil {
		return nil, err
	}
	reserved := seat.CountReserved(seats)
	return &Summary{Day: d, Total: len(seats), Reserved: reserved, Free: len(seats) - reserved}, nil
}

// notify は保存通知をバックグラウンドで送る
// 保存応答は通知の完了を待たず、失敗しても保存結果には影響させない
func (s *ReservationService) notify(ctx context.Context, event SeatsSavedEvent) {
	if s.notifier == nil {
		return
	}
	log := logger.FromContext(ctx)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.notifier.PublishSeatsSaved(notifyCtx, event); err != nil {
			log.Warn("座席保存通知に失敗", zap.String("day", event.Day), zap.Error(err))
		}
	}()
}

// WaitNotifications は送信中の保存通知が終わるまで待つ
func (s *ReservationService) WaitNotifications() {
	s.pending.Wait()
}

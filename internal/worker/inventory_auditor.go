package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
)

// SeatReader は公演日の座席を読み出す（なければ初期化する）インターフェース
type SeatReader interface {
	GetSeats(ctx context.Context, token string) ([]seat.Seat, error)
}

// InventoryAuditor は全公演日の座席データを定期的に読み出すワーカー
// 読み出しの過程で欠損・破損したデータは初期化され、予約数メトリクスも更新される
type InventoryAuditor struct {
	reader   SeatReader
	days     []string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewInventoryAuditor は新しい監査ワーカーを作成
func NewInventoryAuditor(r SeatReader, days []string, interval time.Duration) *InventoryAuditor {
	return &InventoryAuditor{
		reader:   r,
		days:     days,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start は監査ワーカーを開始
func (a *InventoryAuditor) Start(ctx context.Context) {
	defer close(a.doneCh)
	if a.interval <= 0 {
		logger.Info("座席監査ワーカーは無効です")
		return
	}

	logger.Info("座席監査ワーカー開始",
		zap.Duration("interval", a.interval),
		zap.Strings("days", a.days),
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("座席監査ワーカー停止（コンテキストキャンセル）")
			return
		case <-a.stopCh:
			logger.Info("座席監査ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			_ = a.Audit(ctx)
		}
	}
}

// Stop は監査ワーカーを停止
func (a *InventoryAuditor) Stop() {
	close(a.stopCh)
	<-a.doneCh
}

// Audit は全公演日を並行して読み出す。1日の失敗で他の日は止めない
// 失敗した日があれば最初のエラーを返す
func (a *InventoryAuditor) Audit(ctx context.Context) error {
	log := logger.Get()
	log.Debug("座席監査開始")

	var g errgroup.Group
	for _, d := range a.days {
		g.Go(func() error {
			seats, err := a.reader.GetSeats(ctx, d)
			if err != nil {
				log.Error("座席監査失敗", zap.String("day", d), zap.Error(err))
				return fmt.Errorf("%s: %w", d, err)
			}
			log.Debug("座席監査完了",
				zap.String("day", d),
				zap.Int("reserved", seat.CountReserved(seats)),
			)
			return nil
		})
	}
	return g.Wait()
}

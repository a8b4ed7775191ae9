package worker

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/file"
)

// MockSeatReader はSeatReaderのモック
type MockSeatReader struct {
	mock.Mock
}

func (m *MockSeatReader) GetSeats(ctx context.Context, token string) ([]seat.Seat, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Seat), args.Error(1)
}

func TestNewInventoryAuditor(t *testing.T) {
	reader := new(MockSeatReader)
	days := []string{"ven", "sam", "dim"}

	auditor := NewInventoryAuditor(reader, days, time.Minute)

	assert.NotNil(t, auditor)
	assert.Equal(t, time.Minute, auditor.interval)
	assert.Equal(t, days, auditor.days)
	assert.NotNil(t, auditor.stopCh)
	assert.NotNil(t, auditor.doneCh)
}

func TestInventoryAuditor_Audit(t *testing.T) {
	t.Run("全公演日を読み出す", func(t *testing.T) {
		reader := new(MockSeatReader)
		for _, d := range []string{"ven", "sam", "dim"} {
			reader.On("GetSeats", mock.Anything, d).Return(seat.NewInventory(), nil).Once()
		}

		auditor := NewInventoryAuditor(reader, []string{"ven", "sam", "dim"}, time.Minute)

		require.NoError(t, auditor.Audit(context.Background()))
		reader.AssertExpectations(t)
	})

	t.Run("1日の失敗で他の日は止まらない", func(t *testing.T) {
		reader := new(MockSeatReader)
		reader.On("GetSeats", mock.Anything, "ven").Return(seat.NewInventory(), nil).Once()
		reader.On("GetSeats", mock.Anything, "sam").Return(nil, seat.ErrStorage).Once()
		reader.On("GetSeats", mock.Anything, "dim").Return(seat.NewInventory(), nil).Once()

		auditor := NewInventoryAuditor(reader, []string{"ven", "sam", "dim"}, time.Minute)

		err := auditor.Audit(context.Background())
		assert.ErrorIs(t, err, seat.ErrStorage)
		assert.ErrorContains(t, err, "sam")
		reader.AssertExpectations(t)
	})
}

func TestInventoryAuditor_HealsCorruptedFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := file.NewSeatRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	// 破損した状態を用意する
	require.NoError(t, repo.Replace(ctx, "sam", seat.NewInventory()))
	require.NoError(t, os.WriteFile(repo.Path("sam"), []byte("{broken"), 0o644))

	svc := application.NewReservationService(day.DefaultRegistry(), application.NewSeatStore(repo, nil), nil, nil)
	auditor := NewInventoryAuditor(svc, day.DefaultRegistry().Tokens(), time.Minute)

	require.NoError(t, auditor.Audit(ctx))

	for _, d := range []string{"ven", "sam", "dim"} {
		seats, err := repo.Load(ctx, d)
		require.NoError(t, err, d)
		assert.Equal(t, seat.NewInventory(), seats, d)
	}
}

func TestInventoryAuditor_StartStop(t *testing.T) {
	t.Run("定期的に監査し、Stopで終了する", func(t *testing.T) {
		reader := new(MockSeatReader)
		var mu sync.Mutex
		calls := 0
		reader.On("GetSeats", mock.Anything, "ven").Return(seat.NewInventory(), nil).Run(func(mock.Arguments) {
			mu.Lock()
			calls++
			mu.Unlock()
		})

		auditor := NewInventoryAuditor(reader, []string{"ven"}, 10*time.Millisecond)
		go auditor.Start(context.Background())

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return calls >= 2
		}, time.Second, 5*time.Millisecond)

		auditor.Stop()
	})

	t.Run("コンテキストキャンセルで終了する", func(t *testing.T) {
		reader := new(MockSeatReader)
		auditor := NewInventoryAuditor(reader, []string{"ven"}, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			auditor.Start(ctx)
			close(done)
		}()

		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop on context cancel")
		}
	})

	t.Run("間隔0なら即座に終了する", func(t *testing.T) {
		reader := new(MockSeatReader)
		auditor := NewInventoryAuditor(reader, []string{"ven"}, 0)

		done := make(chan struct{})
		go func() {
			auditor.Start(context.Background())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("disabled worker should return immediately")
		}
		reader.AssertNotCalled(t, "GetSeats", mock.Anything, mock.Anything)
	})
}

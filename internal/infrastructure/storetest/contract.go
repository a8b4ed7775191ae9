// Package storetest は seat.Repository 実装の共通契約テストを提供する
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

// Factory はテストごとに空のバックエンドを返す
type Factory func(t *testing.T) seat.Repository

// Pattern は先頭席と末尾席が予約済みの座席一覧を返す
func Pattern() []seat.Seat {
	seats := seat.NewInventory()
	seats[0].Reserved = true
	seats[seat.Capacity-1].Reserved = true
	return seats
}

// Options はバックエンドごとの保証の違いを表す
type Options struct {
	// AtomicReplace は同時の Replace が混ざった状態を作らないことを保証する場合に true
	AtomicReplace bool
}

// Run は全バックエンド共通の振る舞いを検証する
func Run(t *testing.T, newRepo Factory, opts Options) {
	ctx := context.Background()

	t.Run("未作成の公演日はErrInventoryNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Load(ctx, "ven")
		assert.ErrorIs(t, err, seat.ErrInventoryNotFound)
	})

	t.Run("CreateIfAbsentは初回のみ書き込む", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.CreateIfAbsent(ctx, "sam", seat.NewInventory())
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.CreateIfAbsent(ctx, "sam", Pattern())
		require.NoError(t, err)
		assert.False(t, created)

		got, err := repo.Load(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, seat.NewInventory(), got)
	})

	t.Run("Replaceは全体を置き換える", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CreateIfAbsent(ctx, "dim", seat.NewInventory())
		require.NoError(t, err)

		require.NoError(t, repo.Replace(ctx, "dim", Pattern()))

		got, err := repo.Load(ctx, "dim")
		require.NoError(t, err)
		assert.Equal(t, Pattern(), got)
	})

	t.Run("Replaceは未作成の公演日も作成する", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Replace(ctx, "ven", Pattern()))

		got, err := repo.Load(ctx, "ven")
		require.NoError(t, err)
		assert.Equal(t, Pattern(), got)
	})

	t.Run("公演日ごとに独立している", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Replace(ctx, "ven", Pattern()))
		require.NoError(t, repo.Replace(ctx, "sam", seat.NewInventory()))

		ven, err := repo.Load(ctx, "ven")
		require.NoError(t, err)
		sam, err := repo.Load(ctx, "sam")
		require.NoError(t, err)

		assert.Equal(t, 2, seat.CountReserved(ven))
		assert.Equal(t, 0, seat.CountReserved(sam))
		_, err = repo.Load(ctx, "dim")
		assert.ErrorIs(t, err, seat.ErrInventoryNotFound)
	})

	t.Run("同時のCreateIfAbsentは1件だけ成功する", func(t *testing.T) {
		repo := newRepo(t)

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := repo.CreateIfAbsent(ctx, "sam", seat.NewInventory())
				if err != nil {
					return
				}
				if created {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, winners, 1)
		got, err := repo.Load(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, seat.NewInventory(), got)
	})

	t.Run("同時のReplaceは最後の書き込みのいずれかに収束する", func(t *testing.T) {
		if !opts.AtomicReplace {
			t.Skip("このバックエンドの一括書き込みはベストエフォート")
		}
		repo := newRepo(t)
		a := seat.NewInventory()
		b := seat.NewInventory()
		for i := range b {
			b[i].Reserved = true
		}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() { defer wg.Done(); _ = repo.Replace(ctx, "dim", a) }()
			go func() { defer wg.Done(); _ = repo.Replace(ctx, "dim", b) }()
		}
		wg.Wait()

		got, err := repo.Load(ctx, "dim")
		require.NoError(t, err)
		require.Len(t, got, seat.Capacity)
		n := seat.CountReserved(got)
		assert.True(t, n == 0 || n == seat.Capacity, "mixed state: %d reserved", n)
	})
}

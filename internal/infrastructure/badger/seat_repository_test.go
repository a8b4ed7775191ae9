package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/storetest"
)

func openInMemory(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeatRepository_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) seat.Repository {
		return NewSeatRepository(openInMemory(t))
	}, storetest.Options{AtomicReplace: true})
}

func TestSeatRepository_Corrupted(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"JSONではない", "garbage"},
		{"座席数が不正", `[{"reserved":true}]`},
		{"reservedが欠落", `[{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openInMemory(t)
			require.NoError(t, db.Update(func(txn *badger.Txn) error {
				return txn.Set(seatKey("sam"), []byte(tt.value))
			}))

			_, err := NewSeatRepository(db).Load(context.Background(), "sam")
			assert.ErrorIs(t, err, seat.ErrInventoryCorrupted)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Run("パス未指定はエラー", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("ディスク上のDBは再オープン後も値を保持する", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "badger")
		ctx := context.Background()

		db, err := Open(Config{Path: dir, SyncWrites: true})
		require.NoError(t, err)
		require.NoError(t, NewSeatRepository(db).Replace(ctx, "dim", storetest.Pattern()))
		require.NoError(t, db.Close())

		db, err = Open(Config{Path: dir})
		require.NoError(t, err)
		defer db.Close()

		got, err := NewSeatRepository(db).Load(ctx, "dim")
		require.NoError(t, err)
		assert.Equal(t, storetest.Pattern(), got)
	})
}

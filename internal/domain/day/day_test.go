package day

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name      string
		token     string
		wantLabel string
		wantErr   bool
	}{
		{"金曜日", "ven", "Vendredi", false},
		{"土曜日", "sam", "Samedi", false},
		{"日曜日", "dim", "Dimanche", false},
		{"大文字は無効", "SAM", "", true},
		{"空文字は無効", "", "", true},
		{"未知のトークン", "lun", "", true},
		{"前後の空白は無効", " ven", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Resolve(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, d.Token)
			assert.Equal(t, tt.wantLabel, d.Label)
		})
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("空の設定は拒否する", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.ErrorIs(t, err, ErrNoDaysConfigured)
	})

	t.Run("空のトークンは拒否する", func(t *testing.T) {
		_, err := NewRegistry([]Day{{Token: "", Label: "Lundi"}})
		assert.ErrorIs(t, err, ErrEmptyToken)
	})

	t.Run("重複したトークンは拒否する", func(t *testing.T) {
		_, err := NewRegistry([]Day{{Token: "ven"}, {Token: "ven"}})
		assert.ErrorIs(t, err, ErrDuplicateToken)
	})

	t.Run("ラベル未指定はトークンを使う", func(t *testing.T) {
		r, err := NewRegistry([]Day{{Token: "jeu"}})
		require.NoError(t, err)
		d, err := r.Resolve("jeu")
		require.NoError(t, err)
		assert.Equal(t, "jeu", d.Label)
	})
}

func TestRegistry_DaysKeepsOrder(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"ven", "sam", "dim"}, r.Tokens())

	days := r.Days()
	days[0].Label = "modifié"
	d, _ := r.Resolve("ven")
	assert.Equal(t, "Vendredi", d.Label)
}

func TestRegistry_Describe(t *testing.T) {
	assert.Equal(t, "'ven', 'sam' ou 'dim'", DefaultRegistry().Describe())

	single, err := NewRegistry([]Day{{Token: "sam"}})
	require.NoError(t, err)
	assert.Equal(t, "'sam'", single.Describe())
}

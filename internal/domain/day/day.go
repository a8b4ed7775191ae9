package day

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDay       = errors.New("無効な公演日です")
	ErrEmptyToken       = errors.New("公演日のトークンは必須です")
	ErrDuplicateToken   = errors.New("公演日のトークンが重複しています")
	ErrNoDaysConfigured = errors.New("公演日が設定されていません")
)

// Day は公演日を表す
type Day struct {
	Token string // URL に現れる識別子（ven, sam, dim）
	Label string // 利用者向けの表示名（Vendredi など）
}

// Defaults は既定の公演日（金・土・日）を返す
func Defaults() []Day {
	return []Day{
		{Token: "ven", Label: "Vendredi"},
		{Token: "sam", Label: "Samedi"},
		{Token: "dim", Label: "Dimanche"},
	}
}

// Registry は公演日トークンの閉じた集合を管理する
type Registry struct {
	days  []Day
	index map[string]Day
}

// NewRegistry は設定された公演日から Registry を作成する
func NewRegistry(days []Day) (*Registry, error) {
	if len(days) == 0 {
		return nil, ErrNoDaysConfigured
	}
	r := &Registry{
		days:  make([]Day, 0, len(days)),
		index: make(map[string]Day, len(days)),
	}
	for _, d := range days {
		if d.Token == "" {
			return nil, ErrEmptyToken
		}
		if _, ok := r.index[d.Token]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateToken, d.Token)
		}
		if d.Label == "" {
			d.Label = d.Token
		}
		r.days = append(r.days, d)
		r.index[d.Token] = d
	}
	return r, nil
}

// DefaultRegistry は既定の公演日で Registry を作成する
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(Defaults())
	return r
}

// Resolve はトークンから公演日を引く（大文字小文字は区別する）
func (r *Registry) Resolve(token string) (Day, error) {
	d, ok := r.index[token]
	if !ok {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, token)
	}
	return d, nil
}

// Days は宣言順の公演日一覧を返す
func (r *Registry) Days() []Day {
	out := make([]Day, len(r.days))
	copy(out, r.days)
	return out
}

// Tokens は宣言順のトークン一覧を返す
func (r *Registry) Tokens() []string {
	out := make([]string, len(r.days))
	for i, d := range r.days {
		out[i] = d.Token
	}
	return out
}

// Describe は "'ven', 'sam' ou 'dim'" 形式でトークンを列挙する
func (r *Registry) Describe() string {
	quoted := make([]string, len(r.days))
	for i, d := range r.days {
		quoted[i] = "'" + d.Token + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " ou " + quoted[len(quoted)-1]
}

package seat

import "context"

// Repository は公演日ごとの座席データを永続化するバックエンドのインターフェース
// 実装はファイル、MongoDB、PostgreSQL、BadgerDB の4種類で、起動時の設定で選択する
type Repository interface {
	// Load は保存済みの座席一覧を取得する
	// 存在しない場合は ErrInventoryNotFound、形式が不正な場合は ErrInventoryCorrupted を返す
	Load(ctx context.Context, day string) ([]Seat, error)

	// CreateIfAbsent は座席データが存在しない場合のみ書き込む（アトミック）
	// 既に存在した場合は false を返し、何も書き込まない
	CreateIfAbsent(ctx context.Context, day string, seats []Seat) (bool, error)

	// Replace は座席データ全体を置き換える（差分ではなく全置換）
	Replace(ctx context.Context, day string, seats []Seat) error
}

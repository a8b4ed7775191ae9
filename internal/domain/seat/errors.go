package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrInvalidSeatCount   = errors.New("expected 80 seats")
	ErrInventoryNotFound  = errors.New("座席データが存在しません")
	ErrInventoryCorrupted = errors.New("座席データが破損しています")
	ErrStorage            = errors.New("座席データの永続化に失敗しました")
)

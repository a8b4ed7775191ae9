package seat

// Capacity は1公演日あたりの座席数
const Capacity = 80

// Seat は座席の予約状態を表す
// 座席の識別子は公演日ごとの並びの中の位置（0始まり）であり、永続化されない
type Seat struct {
	Reserved bool
}

// NewInventory は全席空きの座席一覧を作成する
func NewInventory() []Seat {
	return make([]Seat, Capacity)
}

// ValidateInventory は座席数が Capacity と一致するかを検証する
func ValidateInventory(seats []Seat) error {
	if len(seats) != Capacity {
		return ErrInvalidSeatCount
	}
	return nil
}

// CountReserved は予約済みの座席数を返す
func CountReserved(seats []Seat) int {
	n := 0
	for _, s := range seats {
		if s.Reserved {
			n++
		}
	}
	return n
}

// Equal は2つの座席一覧が位置ごとに一致するかを返す
func Equal(a, b []Seat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

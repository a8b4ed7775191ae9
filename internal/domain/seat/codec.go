package seat

import (
	"encoding/json"
	"fmt"
)

// record は JSON 上の1座席分の表現。reserved の欠落を検出するためポインタで受ける
type record struct {
	Reserved *bool `json:"reserved"`
}

// EncodeJSON は座席一覧を [{"reserved": bool}, ...] 形式にエンコードする
func EncodeJSON(seats []Seat, pretty bool) ([]byte, error) {
	records := make([]record, len(seats))
	for i := range seats {
		reserved := seats[i].Reserved
		records[i] = record{Reserved: &reserved}
	}
	if pretty {
		return json.MarshalIndent(records, "", "  ")
	}
	return json.Marshal(records)
}

// DecodeJSON は保存済みの座席配列をデコードする
// 解析不能・座席数不正・reserved 欠落はいずれも ErrInventoryCorrupted を返す
func DecodeJSON(data []byte) ([]Seat, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInventoryCorrupted, err)
	}
	if len(records) != Capacity {
		return nil, fmt.Errorf("%w: %d席", ErrInventoryCorrupted, len(records))
	}
	seats := make([]Seat, len(records))
	for i, rec := range records {
		if rec.Reserved == nil {
			return nil, fmt.Errorf("%w: 座席%dに reserved がありません", ErrInventoryCorrupted, i)
		}
		seats[i] = Seat{Reserved: *rec.Reserved}
	}
	return seats, nil
}

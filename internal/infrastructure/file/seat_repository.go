package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

// SeatRepository は公演日ごとに1つのJSONファイルへ座席データを保存する
type SeatRepository struct {
	dir     string
	syncDir func(dir string) error
}

// NewSeatRepository はデータディレクトリを作成して SeatRepository を返す
func NewSeatRepository(dir string) (*SeatRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("データディレクトリ作成に失敗: %w", err)
	}
	return &SeatRepository{dir: dir, syncDir: syncDirectory}, nil
}

// Path は公演日のファイルパスを返す
func (r *SeatRepository) Path(day string) string {
	return filepath.Join(r.dir, fmt.Sprintf("seats-%s.json", day))
}

func (r *SeatRepository) Load(ctx context.Context, day string) ([]seat.Seat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.Path(day))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, seat.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("座席ファイル読み込みに失敗: %w", err)
	}
	return seat.DecodeJSON(data)
}

func (r *SeatRepository) CreateIfAbsent(ctx context.Context, day string, seats []seat.Seat) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target := r.Path(day)
	if _, err := os.Stat(target); err == nil {
		return false, nil
	}
	tmp, err := r.writeTemp(day, seats)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	// リンクは対象が既に存在すると失敗するため、作成は高々1回になる
	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("座席ファイル作成に失敗: %w", err)
	}
	if err := r.syncDir(r.dir); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SeatRepository) Replace(ctx context.Context, day string, seats []seat.Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := r.writeTemp(day, seats)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, r.Path(day)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("座席ファイル置換に失敗: %w", err)
	}
	return r.syncDir(r.dir)
}

// writeTemp は同じディレクトリに一時ファイルを書き込み、同期してからパスを返す
func (r *SeatRepository) writeTemp(day string, seats []seat.Seat) (string, error) {
	data, err := seat.EncodeJSON(seats, true)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(r.dir, fmt.Sprintf(".seats-%s-*.tmp", day))
	if err != nil {
		return "", fmt.Errorf("一時ファイル作成に失敗: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("一時ファイル書き込みに失敗: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("一時ファイル同期に失敗: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("一時ファイルの権限設定に失敗: %w", err)
	}
	return name, nil
}

// syncDirectory はリネームやリンクによるエントリ変更をディスクへ反映させる
func syncDirectory(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("データディレクトリを開けません: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("データディレクトリ同期に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)

package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Config は BadgerDB の設定
type Config struct {
	// Path はデータベースファイルのディレクトリ（InMemory の場合は無視）
	Path string

	// InMemory はディスクに書き込まないモード（テスト用）
	InMemory bool

	// SyncWrites は書き込みごとに fsync する
	SyncWrites bool

	// Logger が nil の場合は BadgerDB 内部のログを出さない
	Logger *zap.Logger
}

// zapLogger は zap.Logger を BadgerDB の Logger インターフェースに合わせる
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Open は設定に従って BadgerDB を開く。呼び出し側で Close すること
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("BadgerDB のパスが指定されていません")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("BadgerDB ディレクトリ作成に失敗: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapLogger{s: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("BadgerDB オープンに失敗: %w", err)
	}
	return db, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/api/handler"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/api/server"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/config"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	badgerinfra "github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/badger"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/file"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/gemini"
	mongoinfra "github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/mongo"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー起動エラー", zap.Error(err))
	}
}

// closer は終了時に解放する資源
type closer func()

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	days, err := config.LoadDays(cfg.DaysFile)
	if err != nil {
		return err
	}
	registry, err := day.NewRegistry(days)
	if err != nil {
		return fmt.Errorf("公演日の設定が不正です: %w", err)
	}

	m := metrics.New()

	repo, checks, closers, err := openSeatRepository(ctx, cfg)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	if err != nil {
		return err
	}

	var notifier application.SaveNotifier
	if cfg.AMQP.URL != "" {
		notifier = rabbitmq.NewPublisher(&cfg.AMQP)
		logger.Info("保存通知を有効化", zap.String("queue", cfg.AMQP.Queue))
	}

	reservations := application.NewReservationService(registry, application.NewSeatStore(repo, m), notifier, m)

	assistant, assistantChecks, assistantClosers, err := newAssistantService(ctx, cfg, m)
	closers = append(closers, assistantClosers...)
	if err != nil {
		return err
	}
	checks = append(checks, assistantChecks...)

	// 起動時に全公演日の座席データを用意する
	auditor := worker.NewInventoryAuditor(reservations, registry.Tokens(), cfg.Audit.Interval)
	if err := auditor.Audit(ctx); err != nil {
		logger.Warn("起動時の座席監査に失敗", zap.Error(err))
	}
	go auditor.Start(ctx)
	defer auditor.Stop()

	e := server.New(server.Deps{
		Config:       cfg,
		Reservations: reservations,
		Assistant:    assistant,
		Metrics:      m,
		HealthChecks: checks,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動",
			zap.String("port", cfg.Server.Port),
			zap.String("backend", cfg.Storage.Backend),
			zap.Strings("days", registry.Tokens()),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// シグナル待機
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}
	reservations.WaitNotifications()

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

// openSeatRepository は STORAGE_BACKEND に従って座席の保存先を開く
func openSeatRepository(ctx context.Context, cfg *config.Config) (seat.Repository, []handler.HealthCheck, []closer, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		client, err := mongoinfra.NewClient(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		closers := []closer{func() { _ = client.Disconnect(context.Background()) }}
		repo := mongoinfra.NewSeatRepository(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, closers, err
		}
		check := handler.HealthCheck{Name: "mongo", Check: func(ctx context.Context) error {
			return mongoinfra.Ping(ctx, client, 0)
		}}
		return repo, []handler.HealthCheck{check}, closers, nil

	case config.BackendPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		closers := []closer{func() { _ = db.Close() }}
		if err := postgres.RunMigrations(db.DB); err != nil {
			return nil, nil, closers, err
		}
		check := handler.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			return postgres.Ping(ctx, db)
		}}
		return postgres.NewSeatRepository(db), []handler.HealthCheck{check}, closers, nil

	case config.BackendBadger:
		db, err := badgerinfra.Open(badgerinfra.Config{
			Path:       cfg.Badger.Path,
			SyncWrites: cfg.Badger.SyncWrites,
			Logger:     logger.Get(),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return badgerinfra.NewSeatRepository(db), nil, []closer{func() { _ = db.Close() }}, nil

	default:
		repo, err := file.NewSeatRepository(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, nil, nil, nil
	}
}

// newAssistantService はAPIキーがあればGeminiクライアントを、Redisが有効なら回答キャッシュを組み込む
func newAssistantService(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*application.AssistantService, []handler.HealthCheck, []closer, error) {
	var (
		generator application.AnswerGenerator
		cache     application.AnswerCache
		limiter   *rate.Limiter
		checks    []handler.HealthCheck
		closers   []closer
	)

	if cfg.Assistant.APIKey != "" {
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:         cfg.Assistant.BaseURL,
			APIKey:          cfg.Assistant.APIKey,
			Model:           cfg.Assistant.Model,
			Temperature:     &cfg.Assistant.Temperature,
			MaxOutputTokens: cfg.Assistant.MaxOutputTokens,
			MaxRetries:      cfg.Assistant.MaxRetries,
			InitialBackoff:  cfg.Assistant.InitialBackoff,
			MaxBackoff:      cfg.Assistant.MaxBackoff,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		generator = client
	} else {
		logger.Warn("GEMINI_API_KEY が未設定のためアシスタントは無効です")
	}

	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(ctx, &cfg.Redis)
		if err != nil {
			// キャッシュなしでも動作する
			logger.Warn("Redisに接続できないため回答キャッシュを無効化", zap.Error(err))
		} else {
			cache = redisinfra.NewAnswerCache(rc)
			closers = append(closers, func() { _ = rc.Close() })
			checks = append(checks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
				return redisinfra.Ping(ctx, rc)
			}})
		}
	}

	if cfg.Assistant.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Assistant.RateLimit), cfg.Assistant.RateBurst)
	}

	return application.NewAssistantService(generator, cache, cfg.Assistant.CacheTTL, limiter, m), checks, closers, nil
}

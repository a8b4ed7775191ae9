package server

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/api"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/api/handler"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/api/middleware"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/config"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
)

// Deps はHTTPサーバーの依存関係
type Deps struct {
	Config       *config.Config
	Reservations handler.ReservationServiceInterface
	Assistant    handler.AssistantServiceInterface
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	HealthChecks []handler.HealthCheck
}

// New はミドルウェアとルートを設定したEchoインスタンスを作成する
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e, &d.Config.Server)
	if d.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(d.Metrics))
	}

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(&d.Config.Metrics))

	handler.RegisterRoutes(e, handler.Handlers{
		Health:    handler.NewHealthHandler(d.HealthChecks...),
		Seat:      handler.NewSeatHandler(d.Reservations),
		Assistant: handler.NewAssistantHandler(d.Assistant),
	})

	// フロントエンドの静的ファイル
	if dir := d.Config.Storage.PublicDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			e.Static("/", dir)
		}
	}

	return e
}

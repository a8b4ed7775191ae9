package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/api/server"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/config"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/file"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/infrastructure/gemini"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo    *echo.Echo
	DataDir string
	Repo    *file.SeatRepository
}

type serverOptions struct {
	geminiURL string
	limiter   *rate.Limiter
}

// NewTestServer はファイル保存のテスト用サーバーを作成
func NewTestServer(t *testing.T, opts serverOptions) *TestServer {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{BodyLimit: "1M", AllowOrigins: []string{"*"}},
		Storage: config.StorageConfig{Backend: config.BackendFile, DataDir: t.TempDir()},
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	repo, err := file.NewSeatRepository(cfg.Storage.DataDir)
	require.NoError(t, err)

	var generator application.AnswerGenerator
	if opts.geminiURL != "" {
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:    opts.geminiURL,
			APIKey:     "test-key",
			MaxRetries: 1,
		})
		require.NoError(t, err)
		generator = client
	}

	e := server.New(server.Deps{
		Config:       cfg,
		Reservations: application.NewReservationService(day.DefaultRegistry(), application.NewSeatStore(repo, m), nil, m),
		Assistant:    application.NewAssistantService(generator, nil, 0, opts.limiter, m),
		Metrics:      m,
		Gatherer:     reg,
	})

	return &TestServer{Echo: e, DataDir: cfg.Storage.DataDir, Repo: repo}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = []byte(b)
	default:
		reqBody, _ = json.Marshal(b)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

type seatJSON struct {
	Reserved bool `json:"reserved"`
}

func allFree() []seatJSON {
	return make([]seatJSON, 80)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

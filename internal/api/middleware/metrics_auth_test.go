package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/config"
)

func serveMetrics(t *testing.T, cfg *config.MetricsConfig, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := MetricsBasicAuth(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "metrics")
	})
	return rec, handler(c)
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsBasicAuth_NoCredentials(t *testing.T) {
	// 認証設定がない場合はスキップ
	rec, err := serveMetrics(t, &config.MetricsConfig{}, "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestMetricsBasicAuth_ValidCredentials(t *testing.T) {
	cfg := &config.MetricsConfig{User: "testuser", Password: "testpass"}

	rec, err := serveMetrics(t, cfg, basic("testuser", "testpass"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsBasicAuth_InvalidCredentials(t *testing.T) {
	cfg := &config.MetricsConfig{User: "testuser", Password: "testpass"}

	tests := []struct {
		name   string
		header string
	}{
		{name: "間違った認証情報", header: basic("wronguser", "wrongpass")},
		{name: "パスワードのみ違う", header: basic("testuser", "nope")},
		{name: "Authorizationヘッダーなし", header: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serveMetrics(t, cfg, tt.header)

			// Basic認証失敗時はHTTPErrorが返る
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestIsMetricsAuthEnabled(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.MetricsConfig
		wantEnabled bool
	}{
		{name: "両方設定あり", cfg: &config.MetricsConfig{User: "user", Password: "pass"}, wantEnabled: true},
		{name: "ユーザーのみ", cfg: &config.MetricsConfig{User: "user"}, wantEnabled: false},
		{name: "パスワードのみ", cfg: &config.MetricsConfig{Password: "pass"}, wantEnabled: false},
		{name: "両方なし", cfg: &config.MetricsConfig{}, wantEnabled: false},
		{name: "nil", cfg: nil, wantEnabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEnabled, IsMetricsAuthEnabled(tt.cfg))
		})
	}
}

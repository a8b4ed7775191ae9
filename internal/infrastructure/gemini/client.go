package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-preview-09-2025"

	// FallbackAnswer はモデルが候補を返さなかった場合の回答
	FallbackAnswer = "Désolé, je n'ai pas pu générer de réponse. Le modèle n'a pas pu traiter la demande."

	defaultTemperature     = 0.1
	defaultMaxOutputTokens = 2048
	defaultMaxRetries      = 5
	defaultInitialBackoff  = time.Second
	defaultMaxBackoff      = 16 * time.Second
)

// StatusError は上流APIが成功以外のステータスを返したことを表す
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable はリトライ対象（429 / 5xx）かを返す
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config は Gemini クライアントの設定
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     *float64
	MaxOutputTokens int
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	HTTPClient      *http.Client
}

// Client は generateContent エンドポイントを呼び出す
type Client struct {
	endpoint        string
	apiKey          string
	temperature     float64
	maxOutputTokens int
	maxRetries      int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	httpClient      *http.Client
}

// NewClient は Gemini クライアントを作成する。APIキーが空の場合はエラー
// Temperature が nil なら 0.1 を使い、0 は明示的な指定として送る
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		endpoint:        fmt.Sprintf("%s/models/%s:generateContent", baseURL, model),
		apiKey:          cfg.APIKey,
		temperature:     defaultTemperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		maxRetries:      cfg.MaxRetries,
		initialBackoff:  cfg.InitialBackoff,
		maxBackoff:      cfg.MaxBackoff,
		httpClient:      cfg.HTTPClient,
	}
	if cfg.Temperature != nil {
		c.temperature = *cfg.Temperature
	}
	if c.maxOutputTokens <= 0 {
		c.maxOutputTokens = defaultMaxOutputTokens
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultInitialBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = defaultMaxBackoff
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction content          `json:"systemInstruction"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate は知識ベースをシステム指示として質問への回答を生成する
// 429 と 5xx は指数バックオフで最大 MaxRetries 回まで試行する
func (c *Client) Generate(ctx context.Context, userQuery, systemInstruction string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:          []content{{Parts: []part{{Text: userQuery}}}},
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	})
	if err != nil {
		return "", err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	eb.MaxInterval = c.maxBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries-1)), ctx)

	var answer string
	attempt := 0
	operation := func() error {
		attempt++
		text, err := c.do(ctx, body)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		answer = text
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.FromContext(ctx).Warn("Gemini API リトライ",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}
	return answer, nil
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", backoff.Permanent(fmt.Errorf("gemini: decode response: %w", err))
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 || payload.Candidates[0].Content.Parts[0].Text == "" {
		return FallbackAnswer, nil
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}

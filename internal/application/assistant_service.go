package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/metrics"
)

var (
	ErrAssistantNotConfigured = errors.New("アシスタントが設定されていません")
	ErrAssistantRateLimited   = errors.New("アシスタントへの問い合わせが多すぎます")
	ErrAssistantUnavailable   = errors.New("アシスタントの応答生成に失敗しました")
	ErrAnswerCacheMiss        = errors.New("回答キャッシュが見つかりません")
)

// AnswerGenerator は外部の生成AIに問い合わせる
type AnswerGenerator interface {
	Generate(ctx context.Context, userQuery, systemInstruction string) (string, error)
}

// AnswerCache は同じ質問への回答を一定時間保持する
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, answer string, ttl time.Duration) error
}

// AssistantService は知識ベースを前提に利用者の質問へ回答する
type AssistantService struct {
	generator AnswerGenerator
	cache     AnswerCache
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
}

// NewAssistantService は AssistantService を作成する
// generator が nil の場合は未設定として扱う。limiter と cache は任意
func NewAssistantService(g AnswerGenerator, cache AnswerCache, cacheTTL time.Duration, limiter *rate.Limiter, m *metrics.Metrics) *AssistantService {
	return &AssistantService{generator: g, cache: cache, cacheTTL: cacheTTL, limiter: limiter, metrics: m}
}

// Configured はアシスタントが利用可能かを返す
func (s *AssistantService) Configured() bool {
	return s.generator != nil
}

// Ask は質問に対する回答を返す
func (s *AssistantService) Ask(ctx context.Context, userQuery, knowledgeBase string) (string, error) {
	if s.generator == nil {
		return "", ErrAssistantNotConfigured
	}
	log := logger.FromContext(ctx)

	key := answerKey(userQuery, knowledgeBase)
	if s.cache != nil && s.cacheTTL > 0 {
		answer, err := s.cache.Get(ctx, key)
		if err == nil {
			s.metrics.ObserveAssistant("cached")
			return answer, nil
		}
		if !errors.Is(err, ErrAnswerCacheMiss) {
			log.Warn("回答キャッシュ取得エラー", zap.Error(err))
		}
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.ObserveAssistant("limited")
		return "", ErrAssistantRateLimited
	}

	answer, err := s.generator.Generate(ctx, userQuery, knowledgeBase)
	if err != nil {
		s.metrics.ObserveAssistant("error")
		log.Error("アシスタント応答生成エラー", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}
	s.metrics.ObserveAssistant("success")

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, answer, s.cacheTTL); err != nil {
			log.Warn("回答キャッシュ保存エラー", zap.Error(err))
		}
	}
	return answer, nil
}

func answerKey(userQuery, knowledgeBase string) string {
	h := sha256.New()
	h.Write([]byte(knowledgeBase))
	h.Write([]byte{0})
	h.Write([]byte(userQuery))
	return hex.EncodeToString(h.Sum(nil))
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
)

// AnswerCache はアシスタントの回答をキャッシュする
type AnswerCache struct {
	client *redis.Client
	prefix string
}

// NewAnswerCache は新しいAnswerCacheインスタンスを作成する
func NewAnswerCache(client *redis.Client) *AnswerCache {
	return &AnswerCache{client: client, prefix: "assistant:answer:"}
}

// Get はキャッシュ済みの回答を取得する
func (c *AnswerCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", application.ErrAnswerCacheMiss
		}
		return "", fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// Set は回答をTTL付きで保存する
func (c *AnswerCache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, answer, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は回答を削除する
func (c *AnswerCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

var _ application.AnswerCache = (*AnswerCache)(nil)

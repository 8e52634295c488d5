package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"videoChat/config"
	"videoChat/core"
)

const answerCacheTTL = time.Hour

// AnswerCache stores final answers per video+question. Misses and backend
// failures are silent; the engine always remains the source of truth.
type AnswerCache interface {
	Get(ctx context.Context, videoID, question string) (core.AnswerResult, bool)
	Put(ctx context.Context, videoID, question string, result core.AnswerResult)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, string) (core.AnswerResult, bool) {
	return core.AnswerResult{}, false
}
func (noopCache) Put(context.Context, string, string, core.AnswerResult) {}

// RedisAnswerCache keeps serialized answers in Redis with a TTL.
type RedisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnswerCache returns a Redis-backed cache when Redis is configured and
// reachable, otherwise a no-op cache.
func NewAnswerCache(ctx context.Context, cfg *config.Config) AnswerCache {
	if cfg.RedisAddr == "" {
		return noopCache{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unreachable (%v), answer cache disabled", err)
		client.Close()
		return noopCache{}
	}
	log.Printf("Answer cache enabled (redis %s)", cfg.RedisAddr)
	return &RedisAnswerCache{client: client, ttl: answerCacheTTL}
}

func cacheKey(videoID, question string) string {
	sum := sha256.Sum256([]byte(videoID + "\x00" + question))
	return "answer:" + hex.EncodeToString(sum[:])
}

func (c *RedisAnswerCache) Get(ctx context.Context, videoID, question string) (core.AnswerResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(videoID, question)).Bytes()
	if err != nil {
		return core.AnswerResult{}, false
	}
	var result core.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		return core.AnswerResult{}, false
	}
	return result, true
}

func (c *RedisAnswerCache) Put(ctx context.Context, videoID, question string, result core.AnswerResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(videoID, question), data, c.ttl).Err(); err != nil {
		log.Printf("Warning: answer cache write failed: %v", err)
	}
}

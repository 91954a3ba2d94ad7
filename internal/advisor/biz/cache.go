package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/course-advisor/pkg/utils/json"
)

// AnswerCacheConfig configures the fresh-query answer cache.
type AnswerCacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool
	// TTL is the cache entry lifetime.
	TTL time.Duration
	// KeyPrefix is prepended to every key.
	KeyPrefix string
}

// CachedAnswer is the stored record. TopTitle is kept alongside the answer
// so a cache hit still updates the session's last-referenced course.
type CachedAnswer struct {
	Answer   string `json:"answer"`
	TopTitle string `json:"top_title"`
}

// AnswerCache caches generated answers for fresh queries in Redis.
// Follow-up answers depend on per-session state and are never cached.
// All cache failures degrade to a miss.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an answer cache.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "advisor:answer:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

func (c *AnswerCache) cacheKey(query string) string {
	hash := sha256.Sum256([]byte(query))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached answer for a query, or nil on a miss.
func (c *AnswerCache) Get(ctx context.Context, query string) *CachedAnswer {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	key := c.cacheKey(query)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		}
		return nil
	}

	var answer CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil
	}

	return &answer
}

// Set stores an answer. Failures are logged and ignored.
func (c *AnswerCache) Set(ctx context.Context, query string, answer *CachedAnswer) {
	if !c.config.Enabled || c.redis == nil {
		return
	}

	key := c.cacheKey(query)

	data, err := json.Marshal(answer)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
	}
}

// Clear removes all cached answers. Called after catalog reindexing so
// stale answers do not outlive the data they were grounded on.
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared answer cache", "deleted_count", deleted)
	return nil
}

// GetStats reports cache state for the stats API.
func (c *AnswerCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}

package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnswerCache_CacheKey(t *testing.T) {
	c := NewAnswerCache(nil, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "advisor:answer:",
	})

	key := c.cacheKey("посоветуй курс по go")

	assert.True(t, strings.HasPrefix(key, "advisor:answer:"))
	// sha256 hex digest after the prefix.
	assert.Len(t, key, len("advisor:answer:")+64)

	// Same query, same key. Different query, different key.
	assert.Equal(t, key, c.cacheKey("посоветуй курс по go"))
	assert.NotEqual(t, key, c.cacheKey("посоветуй курс по python"))
}

func TestAnswerCache_DisabledIsNoop(t *testing.T) {
	c := NewAnswerCache(nil, &AnswerCacheConfig{Enabled: false})

	assert.Nil(t, c.Get(context.Background(), "запрос"))
	// Set and Clear must not panic without a client.
	c.Set(context.Background(), "запрос", &CachedAnswer{Answer: "ответ"})
	assert.NoError(t, c.Clear(context.Background()))
}

func TestAnswerCache_NilConfigDisables(t *testing.T) {
	c := NewAnswerCache(nil, nil)
	assert.Nil(t, c.Get(context.Background(), "запрос"))
}

func TestAnswerCache_EnabledWithoutClientDegrades(t *testing.T) {
	c := NewAnswerCache(nil, &AnswerCacheConfig{Enabled: true, TTL: time.Minute, KeyPrefix: "p:"})

	// A miswired cache degrades to a miss instead of failing the query.
	assert.Nil(t, c.Get(context.Background(), "запрос"))
	c.Set(context.Background(), "запрос", &CachedAnswer{Answer: "ответ"})
}

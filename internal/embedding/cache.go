package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"web3-resume-rag/internal/constants"
	"web3-resume-rag/internal/tracing"
)

// Cache 向量缓存
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, values []float64, ttl time.Duration) error
}

// CacheKey 缓存键: app:embedding:vector:{mode}:{sha256(text)}
func CacheKey(mode Mode, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf(constants.KeyEmbeddingVector, mode, hex.EncodeToString(sum[:]))
}

// MemoryCache 进程内缓存，不过期
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]float64
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]float64)}
}

// Get 实现 Cache
func (m *MemoryCache) Get(_ context.Context, key string) ([]float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// Set 实现 Cache，ttl 被忽略
func (m *MemoryCache) Set(_ context.Context, key string, values []float64, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = values
	return nil
}

// Len 缓存条目数
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// RedisCache 以JSON数组保存向量
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache 创建Redis向量缓存
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// Get 实现 Cache
func (r *RedisCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取向量缓存 %s 失败: %w", tracing.SafeRedisKey(key), err)
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, fmt.Errorf("解析向量缓存失败: %w", err)
	}
	return values, true, nil
}

// Set 实现 Cache
func (r *RedisCache) Set(ctx context.Context, key string, values []float64, ttl time.Duration) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("写入向量缓存 %s 失败: %w", tracing.SafeRedisKey(key), err)
	}
	return nil
}

// Cached 为单一策略加缓存，并合并并发的相同请求
type Cached struct {
	inner  Provider
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCached 包装策略，ttl<=0 时使用默认过期时间
func NewCached(inner Provider, cache Cache, ttl time.Duration, logger zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = constants.DefaultEmbeddingCacheTTL
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// Mode 实现 Provider
func (c *Cached) Mode() Mode { return c.inner.Mode() }

// Embed 实现 Provider，缓存读写失败只记录日志
func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	key := CacheKey(c.inner.Mode(), text)

	values, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("读取向量缓存失败，直接计算")
	} else if ok {
		return Vector{Values: values, Source: c.inner.Mode()}, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if values, ok, _ := c.cache.Get(ctx, key); ok {
			return Vector{Values: values, Source: c.inner.Mode()}, nil
		}
		v, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if setErr := c.cache.Set(ctx, key, v.Values, c.ttl); setErr != nil {
			c.logger.Warn().Err(setErr).Msg("写入向量缓存失败")
		}
		return v, nil
	})
	if err != nil {
		return Vector{}, err
	}
	return res.(Vector), nil
}

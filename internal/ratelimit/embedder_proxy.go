package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

// RateLimitedEmbedder 对嵌入服务调用做限流与重试的代理
type RateLimitedEmbedder struct {
	original    embedding.Embedder
	rateLimiter *TokenBucket
}

var _ embedding.Embedder = (*RateLimitedEmbedder)(nil)

// NewEmbedderWithRateLimit 按模型QPM表创建带限流的嵌入器
func NewEmbedderWithRateLimit(original embedding.Embedder, modelName string, limits map[string]int, customQPM int, maxRetries int, retryWaitTime time.Duration) *RateLimitedEmbedder {
	qpm := EffectiveQPM(modelName, limits, customQPM)
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RateLimitedEmbedder{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2).WithRetryPolicy(retryWaitTime, maxRetries),
	}
}

// EmbedStrings 限流后调用底层嵌入器
func (re *RateLimitedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	var vectors [][]float64
	err := re.rateLimiter.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = re.original.EmbedStrings(ctx, texts, opts...)
		return embedErr
	})
	return vectors, err
}

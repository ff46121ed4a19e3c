package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/tracing"
)

var chainTracer = otel.Tracer("web3-resume-rag/embedding/chain")

// Chain 主策略失败后依次降级到 mock、simplified
// 返回向量的 Source 标记实际产生它的模式
type Chain struct {
	strategies []Provider // 第一个为主策略
	logger     zerolog.Logger
}

// ChainOption 降级链选项
type ChainOption func(*Chain)

// WithFallbacks 替换默认的降级策略
func WithFallbacks(fallbacks ...Provider) ChainOption {
	return func(c *Chain) {
		c.strategies = append(c.strategies[:1], fallbacks...)
	}
}

// WithChainLogger 设置日志
func WithChainLogger(l zerolog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// NewChain 以 primary 为主策略构建降级链
// 默认降级顺序: remote -> mock -> simplified，mock -> simplified，simplified 无降级
func NewChain(primary Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		strategies: []Provider{primary},
		logger:     zerolog.Nop(),
	}
	switch primary.Mode() {
	case ModeRemote:
		c.strategies = append(c.strategies, NewMock(), NewSimplified())
	case ModeMock:
		c.strategies = append(c.strategies, NewSimplified())
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode 主策略的模式
func (c *Chain) Mode() Mode {
	return c.strategies[0].Mode()
}

// Embed 按降级顺序尝试，所有策略都失败时返回最后一个错误
func (c *Chain) Embed(ctx context.Context, text string) (Vector, error) {
	ctx, span := chainTracer.Start(ctx, "embedding.Chain.Embed")
	defer span.End()

	var lastErr error
	for i, p := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Vector{}, err
		}
		v, err := p.Embed(ctx, text)
		if err == nil {
			span.SetAttributes(attribute.String("embedding.source", string(v.Source)))
			return v, nil
		}
		lastErr = err
		if i+1 < len(c.strategies) {
			next := c.strategies[i+1].Mode()
			tracing.RecordDegradation(span, string(p.Mode()), string(next), err)
			ev := c.logger.Warn()
			if errors.Is(err, ErrMissingCredential) {
				// 未配置凭证是预期情况，降为debug避免刷屏
				ev = c.logger.Debug()
			}
			ev.Err(err).
				Str("from", string(p.Mode())).
				Str("to", string(next)).
				Msg("嵌入生成失败，降级到下一策略")
		}
	}
	tracing.RecordError(span, lastErr, tracing.ErrorTypeEmbedding)
	return Vector{}, fmt.Errorf("所有嵌入策略均失败: %w", lastErr)
}

// EmbedWith 仅使用指定模式生成向量，不做降级
// 用于把已存储文本重新嵌入到查询向量所在的空间
func (c *Chain) EmbedWith(ctx context.Context, mode Mode, text string) (Vector, error) {
	for _, p := range c.strategies {
		if p.Mode() == mode {
			return p.Embed(ctx, text)
		}
	}
	return Vector{}, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}

package embedding

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/ratelimit"
)

// NewFromConfig 按 embedding.mode 构建降级链
// cache 为 nil 时不缓存；mock/simplified 计算成本低，不经过缓存
func NewFromConfig(cfg *config.Config, cache Cache, logger zerolog.Logger) (*Chain, error) {
	mode, err := ParseMode(cfg.Embedding.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Embedding.Mode)
	}

	var primary Provider
	switch mode {
	case ModeRemote:
		apiKey := cfg.EmbeddingAPIKey()
		remote := NewRemote(RemoteConfig{
			APIKey:     apiKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    config.GetDuration(cfg.Embedding.TimeoutSeconds, 30*time.Second),
		}, WithRemoteLogger(logger))

		if apiKey == "" {
			logger.Warn().Msg("未配置嵌入服务凭证，远程嵌入将降级为mock")
			primary = remote
		} else {
			limited := ratelimit.NewEmbedderWithRateLimit(
				remote,
				remote.Model(),
				cfg.ModelQPMLimits,
				cfg.Embedding.QPM,
				cfg.LLM.MaxRetries,
				config.GetDuration(cfg.LLM.RetryWaitSeconds, 2*time.Second),
			)
			primary = FromEino(limited, ModeRemote)
		}
		if cache != nil {
			ttl := time.Duration(cfg.Embedding.CacheTTLMinutes) * time.Minute
			primary = NewCached(primary, cache, ttl, logger)
		}
	case ModeMock:
		primary = NewMock()
	case ModeSimplified:
		primary = NewSimplified()
	}

	logger.Info().Str("mode", string(mode)).Msg("嵌入策略已初始化")
	return NewChain(primary, WithChainLogger(logger)), nil
}

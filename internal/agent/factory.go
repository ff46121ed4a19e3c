package agent

import (
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/ratelimit"
)

// NewChatModelFromConfig 按配置创建带限流与重试的聊天模型
// 未配置凭证时返回 ErrMissingAPIKey，调用方据此直接走兜底逻辑
func NewChatModelFromConfig(cfg *config.Config, logger zerolog.Logger) (model.ToolCallingChatModel, error) {
	chat, err := NewOpenAIChatModel(ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
		Timeout:     config.GetDuration(cfg.LLM.TimeoutSeconds, 60*time.Second),
	}, WithChatLogger(logger))
	if err != nil {
		return nil, err
	}
	return ratelimit.NewLLMWithRateLimit(
		chat,
		chat.ModelName(),
		cfg.ModelQPMLimits,
		cfg.LLM.QPM,
		cfg.LLM.MaxRetries,
		config.GetDuration(cfg.LLM.RetryWaitSeconds, 2*time.Second),
	), nil
}

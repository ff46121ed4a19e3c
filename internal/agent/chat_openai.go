package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/tracing"
)

const (
	defaultChatAPIURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultChatModel    = "openai/gpt-4o"
	defaultTemperature  = 0.2
	maxLoggedBodyLength = 500
)

// ErrMissingAPIKey 未配置生成式模型凭证
var ErrMissingAPIKey = errors.New("API 密钥不能为空")

var chatTracer = otel.Tracer("web3-resume-rag/agent/chat")

// --- OpenAI Compatible Structures ---

type openAIToolParams struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

type openAIFunction struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  openAIToolParams `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatConfig 聊天模型配置
type ChatConfig struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIChatModel 调用 OpenAI 兼容的 chat/completions 接口，实现 model.ToolCallingChatModel
type OpenAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	httpClient  *http.Client
	tools       []openAITool
	logger      zerolog.Logger
}

var _ model.ToolCallingChatModel = (*OpenAIChatModel)(nil)

// ChatOption 聊天模型选项
type ChatOption func(*OpenAIChatModel)

// WithChatHTTPClient 替换HTTP客户端
func WithChatHTTPClient(c *http.Client) ChatOption {
	return func(m *OpenAIChatModel) { m.httpClient = c }
}

// WithChatLogger 设置日志
func WithChatLogger(l zerolog.Logger) ChatOption {
	return func(m *OpenAIChatModel) { m.logger = l }
}

// NewOpenAIChatModel 创建聊天模型，凭证为空时返回 ErrMissingAPIKey
func NewOpenAIChatModel(cfg ChatConfig, opts ...ChatOption) (*OpenAIChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	m := &OpenAIChatModel{
		apiKey:      cfg.APIKey,
		modelName:   cfg.Model,
		apiURL:      cfg.APIURL,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      zerolog.Nop(),
	}
	if strings.TrimSpace(m.modelName) == "" {
		m.modelName = defaultChatModel
	}
	if strings.TrimSpace(m.apiURL) == "" {
		m.apiURL = defaultChatAPIURL
	}
	if m.temperature <= 0 {
		m.temperature = defaultTemperature
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logger.Info().Str("api_url", m.apiURL).Str("model", m.modelName).Msg("使用 OpenAI 兼容聊天模型")
	return m, nil
}

// ModelName 模型名
func (m *OpenAIChatModel) ModelName() string { return m.modelName }

// Generate 实现 model.ChatModel
// 支持 model.WithTemperature、model.WithModel、model.WithMaxTokens 覆盖默认参数
func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := m.temperature
	modelName := m.modelName
	options := model.GetCommonOptions(&model.Options{Temperature: &temperature, Model: &modelName}, opts...)

	ctx, span := chatTracer.Start(ctx, "agent.OpenAIChatModel.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", *options.Model),
		attribute.Int("llm.messages", len(messages)),
	)

	payload := chatCompletionRequest{
		Model:       *options.Model,
		Messages:    make([]openAIMessage, 0, len(messages)),
		Temperature: *options.Temperature,
		Tools:       m.tools,
	}
	if options.MaxTokens != nil {
		payload.MaxTokens = *options.MaxTokens
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	m.logger.Debug().
		Str("model", payload.Model).
		Str("prompt", tracing.SafePrompt(lastContent(messages))).
		Msg("发送聊天请求")

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API 请求失败，状态 %s: %s", resp.Status, tracing.TruncateString(string(raw), maxLoggedBodyLength))
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		err := fmt.Errorf("API 返回错误: %s", parsed.Error.Message)
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		err := errors.New("API 返回空选项")
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	choice := parsed.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	out := &schema.Message{
		Role:    role,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
		},
	}
	if parsed.Usage != nil {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
		span.SetAttributes(attribute.Int("llm.total_tokens", parsed.Usage.TotalTokens))
	}

	m.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("content_length", len(content)).
		Str("finish_reason", choice.FinishReason).
		Msg("收到聊天响应")
	return out, nil
}

// Stream 以单个分片返回完整响应
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 返回绑定了工具的新实例，原实例不受影响
// 工具参数以空对象声明，由提示词约束调用格式
func (m *OpenAIChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := make([]openAITool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		bound = append(bound, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  openAIToolParams{Type: "object", Properties: map[string]any{}},
			},
		})
	}
	clone := *m
	clone.tools = bound
	return &clone, nil
}

func lastContent(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i] != nil && messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}

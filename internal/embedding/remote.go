package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/tracing"
)

var remoteTracer = otel.Tracer("web3-resume-rag/embedding/remote")

// RemoteConfig 远程嵌入服务配置
type RemoteConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Remote 调用 OpenAI 兼容的 /embeddings 接口，同时实现 eino embedding.Embedder
type Remote struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ embedding.Embedder = (*Remote)(nil)

// RemoteOption 远程嵌入器选项
type RemoteOption func(*Remote)

// WithHTTPClient 替换HTTP客户端
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = c }
}

// WithRemoteLogger 设置日志
func WithRemoteLogger(l zerolog.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// NewRemote 创建远程嵌入器
// 凭证为空时仍然返回实例，但每次调用都会立即返回 ErrMissingCredential
func NewRemote(cfg RemoteConfig, opts ...RemoteOption) *Remote {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/embeddings"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := &Remote{
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode 实现 Provider
func (r *Remote) Mode() Mode { return ModeRemote }

// Model 使用的模型名
func (r *Remote) Model() string { return r.model }

// Embed 实现 Provider
func (r *Remote) Embed(ctx context.Context, text string) (Vector, error) {
	vectors, err := r.EmbedStrings(ctx, []string{text})
	if err != nil {
		return Vector{}, err
	}
	return Vector{Values: vectors[0], Source: ModeRemote}, nil
}

type remoteRequest struct {
	Input      any    `json:"input"` // string 或 []string
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type remoteResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *remoteError `json:"error,omitempty"`
}

type remoteError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// EmbedStrings 实现 eino embedding.Embedder
func (r *Remote) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if r.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	options := embedding.GetCommonOptions(&embedding.Options{}, opts...)
	model := r.model
	if options.Model != nil && *options.Model != "" {
		model = *options.Model
	}

	ctx, span := remoteTracer.Start(ctx, "embedding.remote.EmbedStrings")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.model", model),
		attribute.Int("embedding.texts", len(texts)),
	)

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	body, err := json.Marshal(remoteRequest{Input: input, Model: model, Dimensions: r.dimensions})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("发送HTTP请求失败: %w", err)
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, tracing.TruncateString(string(respBody), 300))
		var apiErr struct {
			Error *remoteError `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		tracing.RecordHTTPError(span, err, resp.StatusCode)
		return nil, err
	}

	var parsed remoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息=%s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: 期望%d条, 实际%d条", ErrEmptyResponse, len(texts), len(parsed.Data))
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: 第%d条向量为空", ErrEmptyResponse, i)
		}
		out[i] = d.Embedding
	}

	r.logger.Debug().
		Str("model", model).
		Int("texts", len(texts)).
		Int("dimension", len(out[0])).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Msg("远程嵌入完成")
	return out, nil
}

// EinoProvider 将任意 eino Embedder 适配为 Provider，用于挂接限流代理等包装器
type EinoProvider struct {
	embedder embedding.Embedder
	mode     Mode
}

// FromEino 以指定模式包装 eino Embedder
func FromEino(e embedding.Embedder, mode Mode) *EinoProvider {
	return &EinoProvider{embedder: e, mode: mode}
}

// Mode 实现 Provider
func (p *EinoProvider) Mode() Mode { return p.mode }

// Embed 实现 Provider
func (p *EinoProvider) Embed(ctx context.Context, text string) (Vector, error) {
	vectors, err := p.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return Vector{}, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return Vector{}, ErrEmptyResponse
	}
	return Vector{Values: vectors[0], Source: p.mode}, nil
}

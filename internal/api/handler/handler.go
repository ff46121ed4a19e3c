package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/rs/zerolog"

	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/knowledge"
	"web3-resume-rag/internal/processor"
	"web3-resume-rag/internal/types"
)

const defaultMaxUpload = 10 << 20

// Embedder 向量生成
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
}

// Screening 筛选服务
type Screening interface {
	ScreenFile(ctx context.Context, filename, mimeType string, data []byte, job *types.JobRequirement) (*processor.Outcome, error)
	ParseResume(ctx context.Context, filename, mimeType string, data []byte) types.ParseResult
	EvaluateResume(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement) (*processor.Outcome, error)
	GetEvaluation(ctx context.Context, recordID string) (*types.EvaluationResult, error)
	ListEvaluations(ctx context.Context, limit int) ([]processor.EvaluationSummary, error)
}

// Archiver 可选的原件归档
type Archiver interface {
	ArchiveResume(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Handler HTTP处理器集合
type Handler struct {
	knowledge *knowledge.Manager
	screening Screening
	embedder  Embedder
	archive   Archiver
	maxUpload int64
	logger    zerolog.Logger
}

// Option 处理器选项
type Option func(*Handler)

// WithArchiver 解析上传文件时同时归档
func WithArchiver(a Archiver) Option {
	return func(h *Handler) { h.archive = a }
}

// WithMaxUpload 上传大小上限(字节)
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New 创建处理器
func New(km *knowledge.Manager, screening Screening, embedder Embedder, opts ...Option) *Handler {
	h := &Handler{
		knowledge: km,
		screening: screening,
		embedder:  embedder,
		maxUpload: defaultMaxUpload,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func fail(c *app.RequestContext, status int, msg string) {
	c.JSON(status, utils.H{"success": false, "error": msg})
}

// Health 健康检查
func (h *Handler) Health(ctx context.Context, c *app.RequestContext) {
	name := ""
	if kb := h.knowledge.ActiveKnowledgeBase(); kb != nil {
		name = kb.Name
	}
	c.JSON(200, utils.H{"status": "ok", "knowledgeBase": name})
}

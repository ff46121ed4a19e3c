package parser // 简历文件解析: PDF、DOCX、纯文本 → 结构化简历

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/tracing"
	"web3-resume-rag/internal/types"
)

var tracer = otel.Tracer("web3-resume-rag/parser")

// 支持的MIME类型
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

const (
	defaultExtractTimeout = 30 * time.Second
	// DefaultMaxFileSize 上传文件的大小上限
	DefaultMaxFileSize = 10 << 20
)

// Kind 文件类型
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindDOCX        Kind = "docx"
	KindText        Kind = "txt"
	KindUnsupported Kind = ""
)

// DetectKind 先按MIME类型，再按扩展名判断文件类型
func DetectKind(filename, mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case mimeType == MimePDF || ext == ".pdf":
		return KindPDF
	case mimeType == MimeDOCX || ext == ".docx":
		return KindDOCX
	case mimeType == MimeText || ext == ".txt":
		return KindText
	}
	return KindUnsupported
}

// Parser 简历解析器
type Parser struct {
	pdf         einoparser.Parser
	llm         *LLMExtractor
	extractor   *skills.Extractor
	timeout     time.Duration
	maxFileSize int64
	logger      zerolog.Logger
}

// Option 解析器选项
type Option func(*Parser)

// WithPDFParser 替换PDF解析实现
func WithPDFParser(p einoparser.Parser) Option {
	return func(r *Parser) { r.pdf = p }
}

// WithLLMExtractor 优先用模型提取简历结构，失败时退回启发式解析
func WithLLMExtractor(x *LLMExtractor) Option {
	return func(r *Parser) { r.llm = x }
}

// WithExtractor 替换技能候选提取器
func WithExtractor(x *skills.Extractor) Option {
	return func(r *Parser) { r.extractor = x }
}

// WithTimeout 单个文件的文本提取超时
func WithTimeout(d time.Duration) Option {
	return func(r *Parser) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxFileSize 文件大小上限，<=0 表示不限制
func WithMaxFileSize(n int64) Option {
	return func(r *Parser) { r.maxFileSize = n }
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(r *Parser) { r.logger = l }
}

// New 创建解析器，未指定PDF实现时使用 eino-ext 的PDF解析器
func New(ctx context.Context, opts ...Option) (*Parser, error) {
	r := &Parser{
		timeout:     defaultExtractTimeout,
		maxFileSize: DefaultMaxFileSize,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pdf == nil {
		p, err := newPDFParser(ctx)
		if err != nil {
			return nil, err
		}
		r.pdf = p
	}
	if r.extractor == nil {
		r.extractor = skills.NewExtractor(skills.WithLogger(r.logger))
	}
	return r, nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Parse 解析上传的简历文件
// 不支持的类型、提取失败或提取不到文本都通过 Result.Error 返回
func (r *Parser) Parse(ctx context.Context, filename, mimeType string, data []byte) types.ParseResult {
	ctx, span := tracer.Start(ctx, "parser.Parse")
	defer span.End()

	kind := DetectKind(filename, mimeType)
	span.SetAttributes(
		attribute.String("file.kind", string(kind)),
		attribute.Int("file.size", len(data)),
	)

	if kind == KindUnsupported {
		err := fmt.Errorf("不支持的文件类型: %s", mimeType)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.ParseResult{Error: err.Error()}
	}
	if r.maxFileSize > 0 && int64(len(data)) > r.maxFileSize {
		err := fmt.Errorf("文件过大: %d 字节，上限 %d 字节", len(data), r.maxFileSize)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.ParseResult{Error: err.Error()}
	}

	start := time.Now()
	text, err := r.extractText(ctx, kind, filename, data)
	if err != nil {
		r.logger.Warn().Err(err).Str("file", filename).Str("kind", string(kind)).Msg("简历文本提取失败")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.ParseResult{Error: err.Error()}
	}

	text = strings.TrimSpace(blankLines.ReplaceAllString(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n"))
	if text == "" {
		return types.ParseResult{Error: "未能从文件中提取文本"}
	}

	resume, method := r.structure(ctx, text)
	span.SetAttributes(attribute.String("parse.method", method))
	r.logger.Info().
		Str("file", filename).
		Str("kind", string(kind)).
		Str("method", method).
		Int("chars", len([]rune(text))).
		Int("skills", len(resume.Skills)).
		Dur("duration", time.Since(start)).
		Msg("简历解析完成")
	return types.ParseResult{Data: resume}
}

func (r *Parser) extractText(ctx context.Context, kind Kind, filename string, data []byte) (string, error) {
	switch kind {
	case KindPDF:
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		text, err := extractPDF(ctx, r.pdf, filename, data)
		if err != nil {
			return "", fmt.Errorf("PDF解析失败: %w", err)
		}
		return text, nil
	case KindDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("DOCX解析失败: %w", err)
		}
		return text, nil
	default:
		return string(data), nil
	}
}

// structure 将文本转换为结构化简历，返回所用方式: llm 或 heuristic
func (r *Parser) structure(ctx context.Context, text string) (*types.ResumeData, string) {
	heuristic := r.ParseText(text)
	if r.llm == nil {
		return heuristic, "heuristic"
	}
	resume, err := r.llm.Extract(ctx, text)
	if err != nil {
		r.logger.Warn().Err(err).Msg("模型简历提取失败，使用启发式解析")
		return heuristic, "heuristic"
	}
	mergeHeuristic(resume, heuristic)
	return resume, "llm"
}

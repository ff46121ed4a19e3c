package processor // 简历筛选流程: 解析、归档、评估、持久化

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"web3-resume-rag/internal/storage"
	"web3-resume-rag/internal/types"
)

var tracer = otel.Tracer("web3-resume-rag/processor")

var (
	// ErrParseFailed 文档解析失败，错误信息可直接返回给用户
	ErrParseFailed = errors.New("简历解析失败")
	// ErrEvaluationNotFound 评估记录不存在或持久化未启用
	ErrEvaluationNotFound = errors.New("评估记录不存在")
	// ErrInvalidInput 请求缺少简历或岗位要求
	ErrInvalidInput = errors.New("缺少简历或岗位要求")
)

// DocumentParser 文档解析
type DocumentParser interface {
	Parse(ctx context.Context, filename, mimeType string, data []byte) types.ParseResult
}

// ResumeEvaluator 评估器，总会返回结果
type ResumeEvaluator interface {
	Evaluate(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement) *types.EvaluationResult
}

// Archiver 简历原件归档
type Archiver interface {
	ArchiveResume(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// ResultCache 评估结果缓存
type ResultCache interface {
	SetEvaluationResult(ctx context.Context, recordID string, result *types.EvaluationResult) error
	GetEvaluationResult(ctx context.Context, recordID string) (*types.EvaluationResult, error)
}

// Outcome 一次筛选的产出
type Outcome struct {
	RecordID   string                  `json:"recordId,omitempty"`
	ArchiveKey string                  `json:"archiveKey,omitempty"`
	Resume     *types.ResumeData       `json:"resume"`
	Result     *types.EvaluationResult `json:"result"`
}

// Service 筛选服务。解析器和评估器必需，其余依赖为空时跳过对应步骤，
// 可选步骤失败只记录日志，不影响评估结果返回。
type Service struct {
	parser     DocumentParser
	evaluator  ResumeEvaluator
	archive    Archiver
	repo       storage.EvaluationRepository
	cache      ResultCache
	exchange   string
	routingKey string
	logger     zerolog.Logger
}

// Option 服务选项
type Option func(*Service)

// WithArchiver 启用原件归档
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithRepository 启用评估记录持久化，事件写入发件箱投递到 exchange/routingKey
func WithRepository(repo storage.EvaluationRepository, exchange, routingKey string) Option {
	return func(s *Service) {
		s.repo = repo
		s.exchange = exchange
		s.routingKey = routingKey
	}
}

// WithResultCache 启用结果缓存
func WithResultCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService 创建筛选服务
func NewService(parser DocumentParser, evaluator ResumeEvaluator, opts ...Option) *Service {
	s := &Service{parser: parser, evaluator: evaluator, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseResume 只解析，不归档
func (s *Service) ParseResume(ctx context.Context, filename, mimeType string, data []byte) types.ParseResult {
	return s.parser.Parse(ctx, filename, mimeType, data)
}

// ScreenFile 解析上传文件后归档并评估
func (s *Service) ScreenFile(ctx context.Context, filename, mimeType string, data []byte, job *types.JobRequirement) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "ScreenFile", trace.WithAttributes(
		attribute.String("file.name", filename),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	if job == nil {
		return nil, ErrInvalidInput
	}

	parsed := s.parser.Parse(ctx, filename, mimeType, data)
	if parsed.Error != "" || parsed.Data == nil {
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, parsed.Error)
	}

	var archiveKey string
	if s.archive != nil {
		span.AddEvent("archiving_resume")
		key, err := s.archive.ArchiveResume(ctx, filename, mimeType, data)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", filename).Msg("归档简历原件失败，继续评估")
		} else {
			archiveKey = key
		}
	}

	return s.evaluate(ctx, parsed.Data, job, archiveKey), nil
}

// EvaluateResume 评估已结构化的简历
func (s *Service) EvaluateResume(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement) (*Outcome, error) {
	if resume == nil || job == nil {
		return nil, ErrInvalidInput
	}
	ctx, span := tracer.Start(ctx, "EvaluateResume")
	defer span.End()
	return s.evaluate(ctx, resume, job, ""), nil
}

func (s *Service) evaluate(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement, archiveKey string) *Outcome {
	result := s.evaluator.Evaluate(ctx, resume, job)
	out := &Outcome{ArchiveKey: archiveKey, Resume: resume, Result: result}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("evaluation.source", result.Source),
		attribute.Int("evaluation.missing_count", len(result.MissingSkills)),
	)

	if s.repo == nil {
		return out
	}

	rec, err := storage.NewEvaluationRecord(resume, job, result, archiveKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("构造评估记录失败")
		return out
	}
	msg, err := storage.NewEvaluationOutboxMessage(rec, result, s.exchange, s.routingKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("构造评估事件失败")
		msg = nil
	}
	if err := s.repo.SaveWithOutbox(ctx, rec, msg); err != nil {
		s.logger.Error().Err(err).Str("record_id", rec.ID).Msg("保存评估记录失败")
		return out
	}
	out.RecordID = rec.ID

	if s.cache != nil {
		if err := s.cache.SetEvaluationResult(ctx, rec.ID, result); err != nil {
			s.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("缓存评估结果失败")
		}
	}

	s.logger.Info().
		Str("record_id", rec.ID).
		Str("source", result.Source).
		Int("matching", len(result.MatchingSkills)).
		Int("missing", len(result.MissingSkills)).
		Msg("评估记录已保存")
	return out
}

// GetEvaluation 先查缓存再查数据库
func (s *Service) GetEvaluation(ctx context.Context, recordID string) (*types.EvaluationResult, error) {
	if s.cache != nil {
		result, err := s.cache.GetEvaluationResult(ctx, recordID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("record_id", recordID).Msg("读取评估结果缓存失败")
		}
	}

	if s.repo == nil {
		return nil, ErrEvaluationNotFound
	}
	rec, err := s.repo.GetEvaluation(ctx, recordID)
	if errors.Is(err, storage.ErrEvaluationNotFound) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	result, err := storage.DecodeResult(rec)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetEvaluationResult(ctx, recordID, result)
	}
	return result, nil
}

// ListEvaluations 最近的评估记录摘要
func (s *Service) ListEvaluations(ctx context.Context, limit int) ([]EvaluationSummary, error) {
	if s.repo == nil {
		return []EvaluationSummary{}, nil
	}
	recs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]EvaluationSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, EvaluationSummary{
			RecordID:      r.ID,
			CandidateName: r.CandidateName,
			JobTitle:      r.JobTitle,
			Source:        r.Source,
			MatchingCount: r.MatchingCount,
			MissingCount:  r.MissingCount,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

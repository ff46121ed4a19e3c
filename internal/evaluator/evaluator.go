package evaluator // 结合知识库上下文与生成式模型评估简历与岗位的匹配度

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/skills"
	"web3-resume-rag/internal/tracing"
	"web3-resume-rag/internal/types"
)

var tracer = otel.Tracer("web3-resume-rag/evaluator")

const (
	defaultTimeout        = 60 * time.Second
	defaultContextResults = 3
	topSkillsForContext   = 5
)

// KnowledgeSource 评估所需的知识库能力
type KnowledgeSource interface {
	GetSkillKnowledge(name string) (*types.Skill, error)
	GetKnowledgeContext(ctx context.Context, query string, maxResults int) (string, error)
	ExtractSkillsFromText(ctx context.Context, text string, threshold float64) ([]string, error)
}

// Evaluator 简历评估器
// Evaluate 总会返回结果: 未配置模型、调用失败或响应不合规时使用确定性兜底评估
type Evaluator struct {
	chat           model.ToolCallingChatModel
	knowledge      KnowledgeSource
	extractor      *skills.Extractor
	timeout        time.Duration
	contextResults int
	logger         zerolog.Logger
}

// Option 评估器选项
type Option func(*Evaluator)

// WithChatModel 设置生成式模型，nil 表示未配置凭证
func WithChatModel(m model.ToolCallingChatModel) Option {
	return func(e *Evaluator) { e.chat = m }
}

// WithKnowledge 设置知识库
func WithKnowledge(k KnowledgeSource) Option {
	return func(e *Evaluator) { e.knowledge = k }
}

// WithExtractor 替换技能提取器
func WithExtractor(x *skills.Extractor) Option {
	return func(e *Evaluator) { e.extractor = x }
}

// WithTimeout 模型调用超时
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithContextResults 知识库检索的条数
func WithContextResults(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.contextResults = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New 创建评估器
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		timeout:        defaultTimeout,
		contextResults: defaultContextResults,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		var xopts []skills.Option
		if e.knowledge != nil {
			xopts = append(xopts, skills.WithSemanticMatcher(e.knowledge))
		}
		e.extractor = skills.NewExtractor(append(xopts, skills.WithLogger(e.logger))...)
	}
	return e
}

// analysis 评估前的技能分析
type analysis struct {
	allSkills        []string
	requiredSkills   []string
	preferredSkills  []string
	requiredMatched  []string
	preferredMatched []string
	experienceYears  int
	experienceFields []string
}

// Evaluate 评估简历与岗位的匹配度，不返回错误
func (e *Evaluator) Evaluate(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement) (result *types.EvaluationResult) {
	if resume == nil {
		resume = &types.ResumeData{}
	}
	if job == nil {
		job = &types.JobRequirement{}
	}

	ctx, span := tracer.Start(ctx, "evaluator.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("job.title", job.Title))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("评估过程发生panic，使用兜底评估")
			tracing.RecordError(span, fmt.Errorf("panic: %v", r), tracing.ErrorTypeInternal)
			result = e.fallback(resume, job)
		}
		span.SetAttributes(attribute.String("evaluation.source", result.Source))
	}()

	a := e.analyze(ctx, resume, job)
	knowledgeContext := e.skillsContext(ctx, a.allSkills)
	prompt := buildPrompt(resume, job, knowledgeContext, a)

	if e.chat == nil {
		e.logger.Info().Msg("未配置生成式模型凭证，使用兜底评估")
		return e.fallback(resume, job)
	}

	parsed, err := e.callModel(ctx, prompt)
	if err != nil {
		e.logger.Warn().Err(err).Msg("模型评估失败，使用兜底评估")
		tracing.RecordDegradation(span, types.EvaluationSourceLLM, types.EvaluationSourceFallback, err)
		return e.fallback(resume, job)
	}

	if parsed.MatchingSkills == nil {
		parsed.MatchingSkills = a.requiredMatched
	}
	parsed.Source = types.EvaluationSourceLLM
	parsed.Normalize()
	return parsed
}

// analyze 合并声明的技能、从经历描述中提取的技能与语义匹配的技能
func (e *Evaluator) analyze(ctx context.Context, resume *types.ResumeData, job *types.JobRequirement) analysis {
	var descriptions []string
	for _, w := range resume.WorkExperience {
		if w.Description != "" {
			descriptions = append(descriptions, w.Description)
		}
		descriptions = append(descriptions, w.Highlights...)
	}
	for _, p := range resume.Projects {
		if p.Description != "" {
			descriptions = append(descriptions, p.Description)
		}
	}
	if resume.Summary != "" {
		descriptions = append(descriptions, resume.Summary)
	}
	freeText := strings.Join(descriptions, "\n")

	candidates := append([]string(nil), resume.Skills...)
	for _, w := range resume.WorkExperience {
		candidates = append(candidates, w.Technologies...)
	}
	for _, p := range resume.Projects {
		candidates = append(candidates, p.Technologies...)
	}
	if freeText != "" {
		candidates = append(candidates, e.extractor.ExtractCandidates(freeText)...)
	}

	fullText := resume.RawText
	if fullText == "" {
		fullText = freeText
	}
	extracted := e.extractor.ExtractSkillsContext(ctx, candidates, fullText)

	all := dedupeFold(resume.Skills, skills.Names(extracted))
	if e.knowledge != nil {
		joined := strings.TrimSpace(strings.Join(append(append([]string(nil), resume.Skills...), descriptions...), " "))
		if joined != "" {
			semantic, err := e.knowledge.ExtractSkillsFromText(ctx, joined, 0)
			if err != nil {
				e.logger.Debug().Err(err).Msg("语义技能提取失败，跳过")
			} else {
				all = dedupeFold(all, semantic)
			}
		}
	}

	a := analysis{
		allSkills:        all,
		requiredSkills:   nonNil(job.Skills.Required),
		preferredSkills:  nonNil(job.Skills.Preferred),
		experienceYears:  job.Experience.MinYears,
		experienceFields: nonNil(job.Experience.RequiredFields),
	}
	a.requiredMatched, _ = splitMatches(a.requiredSkills, all)
	a.preferredMatched, _ = splitMatches(a.preferredSkills, all)
	return a
}

// skillsContext 拼接技能背景知识与知识库检索结果，知识库错误只记录日志
func (e *Evaluator) skillsContext(ctx context.Context, allSkills []string) string {
	var sb strings.Builder
	sb.WriteString("以下是相关Web3技能的背景知识:\n\n")
	if e.knowledge == nil {
		return sb.String()
	}

	for _, name := range allSkills {
		skill, err := e.knowledge.GetSkillKnowledge(name)
		if err != nil {
			e.logger.Debug().Err(err).Str("skill", name).Msg("查询技能知识失败")
			break
		}
		if skill == nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", skill.Name, skill.Description)
		if len(skill.RelatedTechnologies) > 0 {
			fmt.Fprintf(&sb, "  相关技术: %s\n", strings.Join(skill.RelatedTechnologies, ", "))
		}
		sb.WriteString("\n")
	}

	top := allSkills
	if len(top) > topSkillsForContext {
		top = top[:topSkillsForContext]
	}
	if query := strings.Join(top, " "); query != "" {
		retrieved, err := e.knowledge.GetKnowledgeContext(ctx, query, e.contextResults)
		if err != nil {
			e.logger.Warn().Err(err).Msg("获取知识上下文失败")
		} else if retrieved != "" {
			sb.WriteString("从知识库中检索到的相关信息:\n\n")
			sb.WriteString(retrieved)
		}
	}
	return sb.String()
}

// callModel 调用模型并严格解析响应
func (e *Evaluator) callModel(ctx context.Context, prompt string) (*types.EvaluationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}
	e.logger.Debug().Str("prompt", tracing.SafePrompt(prompt)).Msg("发送评估请求")

	resp, err := e.chat.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("模型调用失败: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return ParseEvaluation(resp.Content)
}

// dedupeFold 按不区分大小写去重，保留首次出现的写法
func dedupeFold(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// splitMatches 将岗位技能分为候选人具备与缺失两组，保持岗位原有写法
// 候选技能不区分大小写地包含岗位技能即算具备，如 ReactJS 具备 React
func splitMatches(jobSkills, candidateSkills []string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	for _, js := range jobSkills {
		needle := strings.ToLower(strings.TrimSpace(js))
		found := false
		for _, cs := range candidateSkills {
			if needle != "" && strings.Contains(strings.ToLower(cs), needle) {
				found = true
				break
			}
		}
		if found {
			matched = append(matched, js)
		} else {
			missing = append(missing, js)
		}
	}
	return matched, missing
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

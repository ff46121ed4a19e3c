package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/embedding"
	"web3-resume-rag/internal/tracing"
	"web3-resume-rag/internal/types"
)

var tracer = otel.Tracer("web3-resume-rag/knowledge")

// Embedder 知识库依赖的向量化能力
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
	// EmbedWith 使用指定模式嵌入，用于跨模式比较时重新嵌入已存文本
	EmbedWith(ctx context.Context, mode embedding.Mode, text string) (embedding.Vector, error)
}

// Thresholds 检索阈值与分块参数
type Thresholds struct {
	ContextFloor      float64 // 上下文检索下限(严格大于)
	ExtractThreshold  float64 // 语义提取阈值(大于等于)
	ChunkSize         int
	ChunkOverlap      int
	MaxContextResults int
	TopK              int
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		ContextFloor:      0.6,
		ExtractThreshold:  0.75,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		MaxContextResults: 5,
		TopK:              5,
	}
}

// ThresholdsFromConfig 由配置生成阈值
func ThresholdsFromConfig(cfg config.KnowledgeConfig) Thresholds {
	return Thresholds{
		ContextFloor:      cfg.ContextFloor,
		ExtractThreshold:  cfg.ExtractThreshold,
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		MaxContextResults: cfg.MaxContextResults,
		TopK:              cfg.TopK,
	}
}

// Manager 知识库管理器
// 所有状态在构造时注入，由服务对象持有，不使用包级全局变量
type Manager struct {
	embedder   Embedder
	store      *Store
	thresholds Thresholds
	logger     zerolog.Logger
	now        func() time.Time

	loadMu sync.Mutex // 串行化 LoadKnowledgeBase

	mu              sync.RWMutex
	active          *types.KnowledgeBase
	skillVectors    map[string]embedding.Vector // key: 技能名
	resourceVectors []embedding.Vector          // 与 active.Resources 下标对齐，零值表示嵌入失败
}

// Option 管理器选项
type Option func(*Manager)

// WithStore 使用外部注册表
func WithStore(s *Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithThresholds 设置阈值
func WithThresholds(t Thresholds) Option {
	return func(m *Manager) { m.thresholds = t }
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager 创建知识库管理器
func NewManager(embedder Embedder, opts ...Option) *Manager {
	m := &Manager{
		embedder:   embedder,
		store:      NewStore(),
		thresholds: DefaultThresholds(),
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds 当前阈值
func (m *Manager) Thresholds() Thresholds {
	return m.thresholds
}

// CreateOption 创建知识库时的附加内容
type CreateOption func(*types.KnowledgeBase)

// WithSkills 预置技能
func WithSkills(skills ...types.Skill) CreateOption {
	return func(kb *types.KnowledgeBase) { kb.Skills = append(kb.Skills, skills...) }
}

// WithResources 预置学习资源
func WithResources(resources ...types.Resource) CreateOption {
	return func(kb *types.KnowledgeBase) { kb.Resources = append(kb.Resources, resources...) }
}

// CreateKnowledgeBase 创建并注册新知识库
func (m *Manager) CreateKnowledgeBase(name, description string, opts ...CreateOption) *types.KnowledgeBase {
	now := m.now()
	kb := &types.KnowledgeBase{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Skills:      []types.Skill{},
		Resources:   []types.Resource{},
	}
	for _, opt := range opts {
		opt(kb)
	}
	created := m.store.Put(kb)
	m.logger.Info().Str("kb_id", created.ID).Str("name", name).Msg("知识库已创建")
	return created
}

// LoadKnowledgeBase 设为当前知识库并预计算技能与资源的向量
// 单个嵌入失败只记录警告，不影响整体载入
func (m *Manager) LoadKnowledgeBase(ctx context.Context, kb *types.KnowledgeBase) error {
	if kb == nil {
		return errors.New("知识库不能为空")
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	ctx, span := tracer.Start(ctx, "knowledge.LoadKnowledgeBase")
	defer span.End()

	if kb.ID == "" || !m.store.Exists(kb.ID) {
		kb = m.store.Put(kb)
	} else {
		kb = cloneKnowledgeBase(kb)
	}
	span.SetAttributes(
		attribute.String("kb.id", kb.ID),
		attribute.Int("kb.skills", len(kb.Skills)),
		attribute.Int("kb.resources", len(kb.Resources)),
	)

	skillVectors := make(map[string]embedding.Vector, len(kb.Skills))
	var failed int
	for i := range kb.Skills {
		skill := &kb.Skills[i]
		v, err := m.embedder.Embed(ctx, skill.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				tracing.RecordError(span, ctxErr, tracing.ErrorTypeTimeout)
				return fmt.Errorf("载入知识库被中断: %w", ctxErr)
			}
			failed++
			m.logger.Warn().Err(err).Str("skill", skill.Name).Msg("技能嵌入失败，跳过")
			continue
		}
		skill.Embedding = v.Values
		skillVectors[skill.Name] = v
	}

	resourceVectors := make([]embedding.Vector, len(kb.Resources))
	for i, res := range kb.Resources {
		v, err := m.embedder.Embed(ctx, resourceText(res))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				tracing.RecordError(span, ctxErr, tracing.ErrorTypeTimeout)
				return fmt.Errorf("载入知识库被中断: %w", ctxErr)
			}
			failed++
			m.logger.Warn().Err(err).Str("resource", res.Title).Msg("资源嵌入失败，跳过")
			continue
		}
		resourceVectors[i] = v
	}

	m.mu.Lock()
	m.active = kb
	m.skillVectors = skillVectors
	m.resourceVectors = resourceVectors
	m.mu.Unlock()

	m.logger.Info().
		Str("kb_id", kb.ID).
		Int("skills", len(kb.Skills)).
		Int("resources", len(kb.Resources)).
		Int("failed", failed).
		Msg("知识库已载入")
	return nil
}

// AddToKnowledgeBase 分块、嵌入并追加到知识库
// 已成功嵌入的分块总会被追加；任一分块失败时返回错误
func (m *Manager) AddToKnowledgeBase(ctx context.Context, kbID, text string, metadata map[string]any) ([]types.EmbeddingResult, error) {
	ctx, span := tracer.Start(ctx, "knowledge.AddToKnowledgeBase")
	defer span.End()
	span.SetAttributes(attribute.String("kb.id", kbID))

	if !m.store.Exists(kbID) {
		err := fmt.Errorf("%w: %s", ErrKnowledgeBaseNotFound, kbID)
		tracing.RecordError(span, err, tracing.ErrorTypeKnowledge)
		return nil, err
	}

	chunks, err := ChunkText(text, m.thresholds.ChunkSize, m.thresholds.ChunkOverlap)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	results := make([]types.EmbeddingResult, 0, len(chunks))
	var firstErr error
	for i, chunk := range chunks {
		v, err := m.embedder.Embed(ctx, chunk)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("第%d个分块嵌入失败: %w", i, err)
			}
			m.logger.Warn().Err(err).Str("kb_id", kbID).Int("chunk", i).Msg("分块嵌入失败")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		meta := make(map[string]any, len(metadata)+2)
		for k, val := range metadata {
			meta[k] = val
		}
		meta["chunkIndex"] = i
		meta["source"] = string(v.Source)
		results = append(results, types.EmbeddingResult{
			Text:      chunk,
			Embedding: v.Values,
			Metadata:  meta,
			Source:    string(v.Source),
		})
	}

	now := m.now()
	if len(results) > 0 {
		if err := m.store.Append(kbID, results, now); err != nil {
			return nil, err
		}
		m.mu.Lock()
		if m.active != nil && m.active.ID == kbID {
			// 写时复制，已取出快照的读者不受影响
			updated := cloneKnowledgeBase(m.active)
			updated.UpdatedAt = now
			m.active = updated
		}
		m.mu.Unlock()
	}
	span.SetAttributes(attribute.Int("kb.chunks_added", len(results)))

	if firstErr != nil {
		tracing.RecordError(span, firstErr, tracing.ErrorTypeEmbedding)
		return results, firstErr
	}
	m.logger.Debug().Str("kb_id", kbID).Int("chunks", len(results)).Msg("知识已追加")
	return results, nil
}

// snapshot 读取当前知识库及其向量
func (m *Manager) snapshot() (*types.KnowledgeBase, map[string]embedding.Vector, []embedding.Vector) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.skillVectors, m.resourceVectors
}

// similarity 比较查询向量与已存向量
// 来源模式或维度不同时，用查询向量的模式重新嵌入已存文本；失败则跳过该条目
func (m *Manager) similarity(ctx context.Context, query, stored embedding.Vector, storedText string) (float64, bool) {
	if !query.Comparable(stored) {
		reembedded, err := m.embedder.EmbedWith(ctx, query.Source, storedText)
		if err != nil {
			m.logger.Warn().Err(err).
				Str("query_source", string(query.Source)).
				Str("stored_source", string(stored.Source)).
				Msg("向量来源不一致且无法重新嵌入，跳过")
			return 0, false
		}
		stored = reembedded
	}
	sim, err := CosineSimilarity(query.Values, stored.Values)
	if err != nil {
		m.logger.Warn().Err(err).Msg("相似度计算失败，跳过")
		return 0, false
	}
	return sim, true
}

// ExtractSkillsFromText 返回与文本相似度不低于阈值的技能名
// threshold<=0 时使用配置的默认阈值
func (m *Manager) ExtractSkillsFromText(ctx context.Context, text string, threshold float64) ([]string, error) {
	kb, skillVectors, _ := m.snapshot()
	if kb == nil {
		return nil, ErrNoKnowledgeBaseLoaded
	}
	if threshold <= 0 {
		threshold = m.thresholds.ExtractThreshold
	}

	query, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("文本嵌入失败: %w", err)
	}

	matched := []string{}
	for _, skill := range kb.Skills {
		stored, ok := skillVectors[skill.Name]
		if !ok {
			continue
		}
		if sim, ok := m.similarity(ctx, query, stored, skill.Name); ok && sim >= threshold {
			matched = append(matched, skill.Name)
		}
	}
	return matched, nil
}

// GetSkillKnowledge 按技能名(不区分大小写)精确查找，未找到返回 nil, nil
func (m *Manager) GetSkillKnowledge(name string) (*types.Skill, error) {
	kb, _, _ := m.snapshot()
	if kb == nil {
		return nil, ErrNoKnowledgeBaseLoaded
	}
	for i := range kb.Skills {
		if strings.EqualFold(kb.Skills[i].Name, name) {
			skill := kb.Skills[i]
			return &skill, nil
		}
	}
	return nil, nil
}

type scoredLine struct {
	text       string
	similarity float64
}

// GetKnowledgeContext 检索与查询相关的技能和资源，按相似度降序拼接前 maxResults 条
// 无条目超过下限时返回空字符串
func (m *Manager) GetKnowledgeContext(ctx context.Context, query string, maxResults int) (string, error) {
	kb, skillVectors, resourceVectors := m.snapshot()
	if kb == nil {
		return "", ErrNoKnowledgeBaseLoaded
	}
	if maxResults <= 0 {
		maxResults = m.thresholds.MaxContextResults
	}

	ctx, span := tracer.Start(ctx, "knowledge.GetKnowledgeContext")
	defer span.End()

	q, err := m.embedder.Embed(ctx, query)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return "", fmt.Errorf("查询嵌入失败: %w", err)
	}

	var lines []scoredLine
	for _, skill := range kb.Skills {
		stored, ok := skillVectors[skill.Name]
		if !ok {
			continue
		}
		if sim, ok := m.similarity(ctx, q, stored, skill.Name); ok && sim > m.thresholds.ContextFloor {
			lines = append(lines, scoredLine{
				text:       fmt.Sprintf("%s (%s): %s", skill.Name, skill.Category, skill.Description),
				similarity: sim,
			})
		}
	}
	for i, res := range kb.Resources {
		if i >= len(resourceVectors) || resourceVectors[i].Values == nil {
			continue
		}
		if sim, ok := m.similarity(ctx, q, resourceVectors[i], resourceText(res)); ok && sim > m.thresholds.ContextFloor {
			lines = append(lines, scoredLine{
				text:       fmt.Sprintf("资源: %s - %s", res.Title, res.Description),
				similarity: sim,
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].similarity > lines[j].similarity })
	if len(lines) > maxResults {
		lines = lines[:maxResults]
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	span.SetAttributes(attribute.Int("knowledge.context_lines", len(parts)))
	return strings.Join(parts, "\n\n"), nil
}

// QueryKnowledgeBase 对知识库全部分块做相似度排序，返回前 topK 条
// 未知或没有分块的知识库返回空切片
func (m *Manager) QueryKnowledgeBase(ctx context.Context, kbID, query string, topK int) ([]types.QueryResult, error) {
	chunks := m.store.Chunks(kbID)
	if len(chunks) == 0 {
		return []types.QueryResult{}, nil
	}
	if topK <= 0 {
		topK = m.thresholds.TopK
	}

	ctx, span := tracer.Start(ctx, "knowledge.QueryKnowledgeBase")
	defer span.End()
	span.SetAttributes(attribute.String("kb.id", kbID), attribute.Int("kb.chunks", len(chunks)))

	q, err := m.embedder.Embed(ctx, query)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, fmt.Errorf("查询嵌入失败: %w", err)
	}

	results := make([]types.QueryResult, 0, len(chunks))
	for _, c := range chunks {
		stored := embedding.Vector{Values: c.Embedding, Source: embedding.Mode(c.Source)}
		sim, ok := m.similarity(ctx, q, stored, c.Text)
		if !ok {
			continue
		}
		results = append(results, types.QueryResult{Text: c.Text, Similarity: sim, Metadata: c.Metadata})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListKnowledgeBases 所有知识库
func (m *Manager) ListKnowledgeBases() []types.KnowledgeBase {
	return m.store.List()
}

// GetKnowledgeBase 按ID获取知识库
func (m *Manager) GetKnowledgeBase(id string) (*types.KnowledgeBase, error) {
	kb, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKnowledgeBaseNotFound, id)
	}
	return kb, nil
}

// ActiveKnowledgeBase 当前载入的知识库，未载入时为nil
func (m *Manager) ActiveKnowledgeBase() *types.KnowledgeBase {
	kb, _, _ := m.snapshot()
	if kb == nil {
		return nil
	}
	return cloneKnowledgeBase(kb)
}

// ChunkCount 知识库分块数量
func (m *Manager) ChunkCount(kbID string) int {
	return m.store.ChunkCount(kbID)
}

func resourceText(r types.Resource) string {
	return r.Title + " " + r.Description
}

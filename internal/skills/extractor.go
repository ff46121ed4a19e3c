package skills // 将简历中的技能文本映射到标准技能名与分类

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"web3-resume-rag/internal/types"
)

// 技能熟练度
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelExpert       = "expert"
)

const (
	// DefaultSubstringPenalty 包含匹配相对精确匹配扣减的相关度
	DefaultSubstringPenalty = 2
	// DefaultLevelWindow 推断熟练度时在技能前后各取的字符数
	DefaultLevelWindow = 100
	// defaultRelevance 技能表之外的技能的基准相关度
	defaultRelevance = 5
	// minReverseLen 反向包含(技能名包含候选文本)要求的最短候选长度
	minReverseLen = 3
)

var (
	expertIndicators = []string{
		"精通", "专家", "高级", "资深", "专精于", "深入理解",
		"expert", "advanced", "proficient", "mastery", "specialist", "senior", "lead", "5+ years", "deep knowledge",
	}
	intermediateIndicators = []string{
		"熟练", "良好", "中级", "有经验", "掌握",
		"intermediate", "experienced", "competent", "skilled", "familiar", "2+ years", "3+ years",
	}
	beginnerIndicators = []string{
		"基础", "入门", "了解", "初级", "初学",
		"beginner", "basic", "novice", "limited", "fundamental", "junior", "learning",
	}
)

// SemanticMatcher 语义匹配，返回与文本相近的技能名
type SemanticMatcher interface {
	ExtractSkillsFromText(ctx context.Context, text string, threshold float64) ([]string, error)
}

// Extractor 技能提取器，构造后只读，可并发使用
type Extractor struct {
	taxonomy []Group
	penalty  int
	window   int
	semantic SemanticMatcher
	logger   zerolog.Logger
}

// Option 提取器选项
type Option func(*Extractor)

// WithTaxonomy 替换技能表
func WithTaxonomy(groups []Group) Option {
	return func(e *Extractor) { e.taxonomy = groups }
}

// WithSubstringPenalty 设置包含匹配的扣减值，负数视为0
func WithSubstringPenalty(p int) Option {
	return func(e *Extractor) {
		if p < 0 {
			p = 0
		}
		e.penalty = p
	}
}

// WithSemanticMatcher 词表未命中时使用语义匹配兜底
func WithSemanticMatcher(m SemanticMatcher) Option {
	return func(e *Extractor) { e.semantic = m }
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor 创建技能提取器
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		taxonomy: DefaultTaxonomy(),
		penalty:  DefaultSubstringPenalty,
		window:   DefaultLevelWindow,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractSkills 将候选技能文本映射到技能表
//
// 每个候选先在全部分类中做不区分大小写的名称/别名精确匹配，命中即止；
// 否则在每个分类中取第一个包含匹配(任一方向)，相关度扣减 penalty，最低为1。
// 结果按技能名去重保留相关度较高者，按相关度降序、名称升序排列。
// fullText 非空时根据技能附近的描述推断熟练度。
func (e *Extractor) ExtractSkills(candidates []string, fullText string) []types.SkillMatch {
	matches, _ := e.match(candidates, fullText)
	return finalize(matches)
}

// ExtractSkillsContext 与 ExtractSkills 相同，词表未命中的候选再交给语义匹配
// 语义匹配失败只记录日志
func (e *Extractor) ExtractSkillsContext(ctx context.Context, candidates []string, fullText string) []types.SkillMatch {
	matches, unmatched := e.match(candidates, fullText)
	if e.semantic != nil {
		for _, cand := range unmatched {
			names, err := e.semantic.ExtractSkillsFromText(ctx, cand, 0)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				e.logger.Debug().Err(err).Str("candidate", cand).Msg("语义匹配失败，跳过")
				continue
			}
			for _, name := range names {
				m := types.SkillMatch{
					Skill:     name,
					Category:  string(Categorize(name)),
					Relevance: max(1, defaultRelevance-e.penalty),
					Level:     e.inferLevel(cand, fullText),
				}
				if entry, cat, ok := e.lookupExact(strings.ToLower(name)); ok {
					m.Skill = entry.Name
					m.Category = string(cat)
					m.Relevance = max(1, entry.Relevance-e.penalty)
				}
				matches = append(matches, m)
			}
		}
	}
	return finalize(matches)
}

// match 词表匹配，同时返回未命中的候选
func (e *Extractor) match(candidates []string, fullText string) ([]types.SkillMatch, []string) {
	var matches []types.SkillMatch
	var unmatched []string
	for _, cand := range candidates {
		normalized := strings.ToLower(strings.TrimSpace(cand))
		if normalized == "" {
			continue
		}
		level := e.inferLevel(normalized, fullText)

		if entry, cat, ok := e.lookupExact(normalized); ok {
			matches = append(matches, types.SkillMatch{
				Skill:       entry.Name,
				Category:    string(cat),
				Relevance:   entry.Relevance,
				Level:       level,
				Description: entry.Description,
			})
			continue
		}

		found := false
		for _, group := range e.taxonomy {
			for _, entry := range group.Entries {
				if !entryContains(entry, normalized) {
					continue
				}
				matches = append(matches, types.SkillMatch{
					Skill:       entry.Name,
					Category:    string(group.Category),
					Relevance:   max(1, relevanceOf(entry)-e.penalty),
					Level:       level,
					Description: entry.Description,
				})
				found = true
				break
			}
		}
		if !found {
			unmatched = append(unmatched, strings.TrimSpace(cand))
		}
	}
	return matches, unmatched
}

func (e *Extractor) lookupExact(normalized string) (Entry, types.SkillCategory, bool) {
	for _, group := range e.taxonomy {
		for _, entry := range group.Entries {
			if strings.ToLower(entry.Name) == normalized {
				return entry, group.Category, true
			}
			for _, alias := range entry.Aliases {
				if strings.ToLower(alias) == normalized {
					return entry, group.Category, true
				}
			}
		}
	}
	return Entry{}, "", false
}

// entryContains 候选包含技能名/别名，或者技能名/别名包含候选
func entryContains(entry Entry, candidate string) bool {
	terms := make([]string, 0, len(entry.Aliases)+1)
	terms = append(terms, strings.ToLower(entry.Name))
	for _, a := range entry.Aliases {
		terms = append(terms, strings.ToLower(a))
	}
	if containsAny(candidate, terms) {
		return true
	}
	if utf8.RuneCountInString(candidate) < minReverseLen {
		return false
	}
	for _, t := range terms {
		if containsTerm(t, candidate) {
			return true
		}
	}
	return false
}

func relevanceOf(entry Entry) int {
	if entry.Relevance <= 0 {
		return defaultRelevance
	}
	return entry.Relevance
}

// inferLevel 在技能首次出现位置前后 window 个字符内寻找熟练度指示词
func (e *Extractor) inferLevel(skill, fullText string) string {
	if fullText == "" || skill == "" {
		return ""
	}
	lowerText := strings.ToLower(fullText)
	idx := strings.Index(lowerText, strings.ToLower(skill))
	if idx < 0 {
		return ""
	}

	runes := []rune(lowerText)
	pos := utf8.RuneCountInString(lowerText[:idx])
	start := max(0, pos-e.window)
	end := min(len(runes), pos+utf8.RuneCountInString(skill)+e.window)
	window := string(runes[start:end])

	switch {
	case containsIndicator(window, expertIndicators):
		return LevelExpert
	case containsIndicator(window, intermediateIndicators):
		return LevelIntermediate
	case containsIndicator(window, beginnerIndicators):
		return LevelBeginner
	}
	return ""
}

func containsIndicator(text string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

// finalize 去重并排序，同名时保留相关度较高者
func finalize(matches []types.SkillMatch) []types.SkillMatch {
	best := make(map[string]types.SkillMatch, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m.Skill)
		if cur, ok := best[key]; !ok || cur.Relevance < m.Relevance {
			best[key] = m
		}
	}

	out := make([]types.SkillMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Skill < out[j].Skill
	})
	return out
}

// Names 技能名列表，保持顺序
func Names(matches []types.SkillMatch) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Skill
	}
	return names
}

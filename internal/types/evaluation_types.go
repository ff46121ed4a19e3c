package types

// 评估结果来源
const (
	EvaluationSourceLLM      = "llm"
	EvaluationSourceFallback = "fallback"
)

// SkillMatch 技能匹配项
type SkillMatch struct {
	Skill       string `json:"skill"`
	Category    string `json:"category"`
	Relevance   int    `json:"relevance"` // 0-10
	Level       string `json:"level,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourceLink 单条学习资源
type ResourceLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// LearningResource 某项技能的学习资源列表
type LearningResource struct {
	Skill     string         `json:"skill"`
	Resources []ResourceLink `json:"resources"`
}

// EvaluationResult 简历评估结果，所有切片字段保证非nil
type EvaluationResult struct {
	SkillMatches      []SkillMatch       `json:"skillMatches"`
	MatchingSkills    []string           `json:"matchingSkills"`
	MissingSkills     []string           `json:"missingSkills"`
	StrengthAreas     []string           `json:"strengthAreas"`
	ImprovementAreas  []string           `json:"improvementAreas"`
	CareerSuggestions []string           `json:"careerSuggestions"`
	LearningResources []LearningResource `json:"learningResources"`
	Source            string             `json:"source"`
}

// Normalize 将nil切片替换为空切片，保证序列化后为 []
func (r *EvaluationResult) Normalize() {
	if r.SkillMatches == nil {
		r.SkillMatches = []SkillMatch{}
	}
	if r.MatchingSkills == nil {
		r.MatchingSkills = []string{}
	}
	if r.MissingSkills == nil {
		r.MissingSkills = []string{}
	}
	if r.StrengthAreas == nil {
		r.StrengthAreas = []string{}
	}
	if r.ImprovementAreas == nil {
		r.ImprovementAreas = []string{}
	}
	if r.CareerSuggestions == nil {
		r.CareerSuggestions = []string{}
	}
	if r.LearningResources == nil {
		r.LearningResources = []LearningResource{}
	}
	for i := range r.LearningResources {
		if r.LearningResources[i].Resources == nil {
			r.LearningResources[i].Resources = []ResourceLink{}
		}
	}
}

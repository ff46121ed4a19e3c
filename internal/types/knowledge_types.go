package types

import "time"

// SkillCategory 技能分类
type SkillCategory string

const (
	CategoryBlockchain  SkillCategory = "blockchain"
	CategoryWeb3        SkillCategory = "web3"
	CategoryDeFi        SkillCategory = "defi"
	CategoryNFT         SkillCategory = "nft"
	CategoryDAO         SkillCategory = "dao"
	CategoryProgramming SkillCategory = "programming"
	CategoryOther       SkillCategory = "other"
)

// Skill 知识库中的技能条目
type Skill struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	RelatedTechnologies []string `json:"relatedTechnologies,omitempty"`
	// Embedding 技能名的向量，载入知识库时计算
	Embedding []float64 `json:"embedding,omitempty"`
}

// Resource 学习资料，与技能之间只有文本相似度关联
type Resource struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type,omitempty"`
}

// KnowledgeBase 知识库
type KnowledgeBase struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Skills      []Skill    `json:"skills"`
	Resources   []Resource `json:"resources"`
}

// EmbeddingResult 文本分块及其向量
type EmbeddingResult struct {
	Text      string         `json:"text"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	// Source 产生该向量的嵌入模式
	Source string `json:"source,omitempty"`
}

// QueryResult 知识库查询结果
type QueryResult struct {
	Text       string         `json:"text"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

package constants

import "time"

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// EmbeddingModulePrefix 向量嵌入模块
	EmbeddingModulePrefix = "embedding"
	// EvaluationModulePrefix 简历评估模块
	EvaluationModulePrefix = "evaluation"

	// EntityVector 向量实体
	EntityVector = "vector"
	// EntityResult 评估结果实体
	EntityResult = "result"

	// KeyEmbeddingVector 文本向量缓存 (STRING, JSON数组)
	// 格式: app:embedding:vector:{mode}:{sha256(text)}
	KeyEmbeddingVector = AppPrefix + ":" + EmbeddingModulePrefix + ":" + EntityVector + ":%s:%s"

	// KeyEvaluationResult 评估结果缓存 (STRING)
	// 格式: app:evaluation:result:{recordID}
	KeyEvaluationResult = AppPrefix + ":" + EvaluationModulePrefix + ":" + EntityResult + ":%s"
)

const (
	// DefaultEmbeddingCacheTTL 向量缓存默认过期时间
	DefaultEmbeddingCacheTTL = 24 * time.Hour
	// EvaluationResultTTL 评估结果缓存过期时间
	EvaluationResultTTL = 7 * 24 * time.Hour
)

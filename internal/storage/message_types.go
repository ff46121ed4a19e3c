package storage

import "time"

// EventEvaluationCompleted 评估完成事件
const EventEvaluationCompleted = "evaluation.completed"

// EvaluationCompletedMessage 评估完成后经发件箱投递的消息体
type EvaluationCompletedMessage struct {
	RecordID       string    `json:"record_id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	JobTitle       string    `json:"job_title,omitempty"`
	Source         string    `json:"source"` // llm 或 fallback
	MatchingSkills []string  `json:"matching_skills"`
	MissingSkills  []string  `json:"missing_skills"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

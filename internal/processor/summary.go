package processor

import "time"

// EvaluationSummary 评估记录列表项
type EvaluationSummary struct {
	RecordID      string    `json:"recordId"`
	CandidateName string    `json:"candidateName,omitempty"`
	JobTitle      string    `json:"jobTitle,omitempty"`
	Source        string    `json:"source"`
	MatchingCount int       `json:"matchingCount"`
	MissingCount  int       `json:"missingCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

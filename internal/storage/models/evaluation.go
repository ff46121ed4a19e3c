package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationRecord 一次简历评估的快照
type EvaluationRecord struct {
	ID             string         `gorm:"type:char(36);primaryKey"`
	CandidateName  string         `gorm:"type:varchar(255);index:idx_er_candidate_name"`
	CandidateEmail string         `gorm:"type:varchar(255)"`
	JobTitle       string         `gorm:"type:varchar(255);index:idx_er_job_title"`
	Source         string         `gorm:"type:varchar(16);not null"` // llm 或 fallback
	MatchingCount  int            `gorm:"default:0"`
	MissingCount   int            `gorm:"default:0"`
	ArchiveKey     string         `gorm:"type:varchar(1024)"` // 简历原件在对象存储中的路径
	ResumeData     datatypes.JSON `gorm:"type:json"`
	JobRequirement datatypes.JSON `gorm:"type:json"`
	Result         datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_er_created_at"`
}

func (EvaluationRecord) TableName() string {
	return "evaluation_records"
}

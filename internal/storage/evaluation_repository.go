package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"web3-resume-rag/internal/storage/models"
	"web3-resume-rag/internal/types"
)

// ErrEvaluationNotFound 评估记录不存在
var ErrEvaluationNotFound = errors.New("评估记录不存在")

// EvaluationRepository 评估记录持久化
type EvaluationRepository interface {
	// SaveWithOutbox 在同一事务中写入评估记录与发件箱消息
	SaveWithOutbox(ctx context.Context, record *models.EvaluationRecord, msg *models.OutboxMessage) error
	GetEvaluation(ctx context.Context, id string) (*models.EvaluationRecord, error)
	ListRecent(ctx context.Context, limit int) ([]models.EvaluationRecord, error)
}

// GormEvaluationRepository 基于GORM的实现
type GormEvaluationRepository struct {
	db *gorm.DB
}

var _ EvaluationRepository = (*GormEvaluationRepository)(nil)

// NewEvaluationRepository 创建评估记录仓库
func NewEvaluationRepository(db *gorm.DB) *GormEvaluationRepository {
	return &GormEvaluationRepository{db: db}
}

// SaveWithOutbox 实现 EvaluationRepository
func (r *GormEvaluationRepository) SaveWithOutbox(ctx context.Context, record *models.EvaluationRecord, msg *models.OutboxMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("写入评估记录失败: %w", err)
		}
		if msg == nil {
			return nil
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("写入发件箱消息失败: %w", err)
		}
		return nil
	})
}

// GetEvaluation 实现 EvaluationRepository
func (r *GormEvaluationRepository) GetEvaluation(ctx context.Context, id string) (*models.EvaluationRecord, error) {
	var rec models.EvaluationRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询评估记录失败: %w", err)
	}
	return &rec, nil
}

// ListRecent 按创建时间倒序
func (r *GormEvaluationRepository) ListRecent(ctx context.Context, limit int) ([]models.EvaluationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.EvaluationRecord
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询评估记录失败: %w", err)
	}
	return out, nil
}

// NewEvaluationRecord 由一次评估构造记录，ID 为 UUIDv7
func NewEvaluationRecord(resume *types.ResumeData, job *types.JobRequirement, result *types.EvaluationResult, archiveKey string) (*models.EvaluationRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成记录ID失败: %w", err)
	}
	resumeJSON, err := json.Marshal(resume)
	if err != nil {
		return nil, fmt.Errorf("序列化简历失败: %w", err)
	}
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("序列化岗位要求失败: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("序列化评估结果失败: %w", err)
	}

	rec := &models.EvaluationRecord{
		ID:             id.String(),
		Source:         result.Source,
		MatchingCount:  len(result.MatchingSkills),
		MissingCount:   len(result.MissingSkills),
		ArchiveKey:     archiveKey,
		ResumeData:     datatypes.JSON(resumeJSON),
		JobRequirement: datatypes.JSON(jobJSON),
		Result:         datatypes.JSON(resultJSON),
		CreatedAt:      time.Now(),
	}
	if resume != nil {
		rec.CandidateName = resume.PersonalInfo.Name
		rec.CandidateEmail = resume.PersonalInfo.Email
	}
	if job != nil {
		rec.JobTitle = job.Title
	}
	return rec, nil
}

// NewEvaluationOutboxMessage 构造评估完成事件
func NewEvaluationOutboxMessage(rec *models.EvaluationRecord, result *types.EvaluationResult, exchange, routingKey string) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(EvaluationCompletedMessage{
		RecordID:       rec.ID,
		CandidateName:  rec.CandidateName,
		JobTitle:       rec.JobTitle,
		Source:         result.Source,
		MatchingSkills: result.MatchingSkills,
		MissingSkills:  result.MissingSkills,
		ArchiveKey:     rec.ArchiveKey,
		EvaluatedAt:    rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      rec.ID,
		EventType:        EventEvaluationCompleted,
		Payload:          string(payload),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

// DecodeResult 取出记录中的评估结果
func DecodeResult(rec *models.EvaluationRecord) (*types.EvaluationResult, error) {
	var r types.EvaluationResult
	if err := json.Unmarshal(rec.Result, &r); err != nil {
		return nil, fmt.Errorf("解析评估结果失败: %w", err)
	}
	r.Normalize()
	return &r, nil
}

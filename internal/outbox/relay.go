package outbox // 评估完成事件的发件箱中继

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"web3-resume-rag/internal/storage/models"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// Publisher 消息发布端，*storage.RabbitMQ 满足该接口
type Publisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

// MessageRelay 轮询发件箱表并把消息投递到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       Publisher
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	tracer          trace.Tracer
}

// Option 中继选项
type Option func(*MessageRelay)

// WithPollingInterval 设置轮询间隔，<=0 时忽略
func WithPollingInterval(d time.Duration) Option {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置每批处理条数，<=0 时忽略
func WithBatchSize(n int) Option {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewMessageRelay 创建中继
func NewMessageRelay(db *gorm.DB, publisher Publisher, logger zerolog.Logger, opts ...Option) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		tracer:          otel.Tracer("web3-resume-rag/outbox"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 阻塞轮询直到 ctx 取消
func (r *MessageRelay) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.pollingInterval).Int("batch", r.batchSize).Msg("发件箱中继已启动")
	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("发件箱中继已停止")
			return nil
		case <-ticker.C:
			if _, err := r.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error().Err(err).Msg("处理发件箱消息失败")
			}
		}
	}
}

// ProcessPending 取一批待投递消息并发布，返回处理条数。
// FOR UPDATE SKIP LOCKED 让多个实例可以并行中继。
func (r *MessageRelay) ProcessPending(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return 0, err
	}

	// 空轮询不建span
	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))),
	)
	defer span.End()

	failed := 0
	for i := range messages {
		msg := &messages[i]
		pubErr := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		if pubErr != nil {
			failed++
			r.logger.Warn().Err(pubErr).
				Uint64("id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry", msg.RetryCount+1).
				Msg("发布发件箱消息失败")
		}
		applyOutcome(msg, pubErr, time.Now())

		if err := tx.Save(msg).Error; err != nil {
			// 整批回滚，下次轮询重新拾取
			span.RecordError(err)
			span.SetStatus(codes.Error, "update outbox message failed")
			return 0, err
		}
	}

	if failed > 0 {
		span.SetAttributes(attribute.Int("outbox.failed_count", failed))
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	r.logger.Debug().Int("count", len(messages)).Int("failed", failed).Msg("发件箱批次处理完成")
	return len(messages), nil
}

// applyOutcome 按发布结果更新消息状态
func applyOutcome(msg *models.OutboxMessage, pubErr error, now time.Time) {
	if pubErr != nil {
		msg.RetryCount++
		msg.ErrorMessage = pubErr.Error()
		if msg.RetryCount >= maxRetryCount {
			msg.Status = models.OutboxStatusFailed
		}
		return
	}
	msg.Status = models.OutboxStatusSent
	msg.ProcessedAt = &now
	msg.ErrorMessage = ""
}

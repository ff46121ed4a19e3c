package outbox

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"web3-resume-rag/internal/storage/models"
)

func TestApplyOutcomeSuccess(t *testing.T) {
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: 2, ErrorMessage: "上次失败"}
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	applyOutcome(msg, nil, now)

	assert.Equal(t, models.OutboxStatusSent, msg.Status)
	assert.Empty(t, msg.ErrorMessage, "成功后应清空错误信息")
	if assert.NotNil(t, msg.ProcessedAt) {
		assert.Equal(t, now, *msg.ProcessedAt)
	}
	assert.Equal(t, 2, msg.RetryCount, "成功不应改变重试计数")
}

func TestApplyOutcomeRetriesUntilFailed(t *testing.T) {
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending}
	pubErr := errors.New("connection reset")

	for i := 1; i < maxRetryCount; i++ {
		applyOutcome(msg, pubErr, time.Now())
		assert.Equal(t, models.OutboxStatusPending, msg.Status, "第%d次失败后仍应等待重试", i)
		assert.Equal(t, i, msg.RetryCount)
	}

	applyOutcome(msg, pubErr, time.Now())
	assert.Equal(t, models.OutboxStatusFailed, msg.Status, "达到最大重试次数后应标记为失败")
	assert.Equal(t, "connection reset", msg.ErrorMessage)
	assert.Nil(t, msg.ProcessedAt)
}

func TestNewMessageRelayOptions(t *testing.T) {
	r := NewMessageRelay(nil, nil, zerolog.Nop())
	assert.Equal(t, defaultPollingInterval, r.pollingInterval)
	assert.Equal(t, defaultBatchSize, r.batchSize)

	r = NewMessageRelay(nil, nil, zerolog.Nop(), WithPollingInterval(2*time.Second), WithBatchSize(20))
	assert.Equal(t, 2*time.Second, r.pollingInterval)
	assert.Equal(t, 20, r.batchSize)

	r = NewMessageRelay(nil, nil, zerolog.Nop(), WithPollingInterval(0), WithBatchSize(-1))
	assert.Equal(t, defaultPollingInterval, r.pollingInterval, "非法参数应被忽略")
	assert.Equal(t, defaultBatchSize, r.batchSize)
}

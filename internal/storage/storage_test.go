package storage

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/storage/models"
	"web3-resume-rag/internal/types"
)

func sampleEvaluation() (*types.ResumeData, *types.JobRequirement, *types.EvaluationResult) {
	resume := &types.ResumeData{
		PersonalInfo: types.PersonalInfo{Name: "张三", Email: "zhangsan@example.com"},
		Skills:       []string{"Solidity"},
	}
	job := &types.JobRequirement{
		Title:  "智能合约工程师",
		Skills: types.SkillRequirements{Required: []string{"Solidity", "Rust"}},
	}
	result := &types.EvaluationResult{
		MatchingSkills: []string{"Solidity"},
		MissingSkills:  []string{"Rust"},
		Source:         types.EvaluationSourceFallback,
	}
	result.Normalize()
	return resume, job, result
}

func TestResumeObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "resumes/2025/03/abc.pdf", ResumeObjectKey(now, "abc", "简历.PDF"), "扩展名应转为小写")
	assert.Equal(t, "resumes/2025/03/abc", ResumeObjectKey(now, "abc", "noext"))
}

func TestGetContentType(t *testing.T) {
	cases := map[string]string{
		".pdf":  "application/pdf",
		".PDF":  "application/pdf",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".txt":  "text/plain",
		".exe":  "application/octet-stream",
	}
	for ext, want := range cases {
		assert.Equal(t, want, getContentType(ext), ext)
	}
}

func TestNewEvaluationRecord(t *testing.T) {
	resume, job, result := sampleEvaluation()

	rec, err := NewEvaluationRecord(resume, job, result, "resumes/2025/03/x.pdf")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-`), rec.ID, "ID应为UUIDv7")
	assert.Equal(t, "张三", rec.CandidateName)
	assert.Equal(t, "zhangsan@example.com", rec.CandidateEmail)
	assert.Equal(t, "智能合约工程师", rec.JobTitle)
	assert.Equal(t, types.EvaluationSourceFallback, rec.Source)
	assert.Equal(t, 1, rec.MatchingCount)
	assert.Equal(t, 1, rec.MissingCount)
	assert.Equal(t, "resumes/2025/03/x.pdf", rec.ArchiveKey)

	decoded, err := DecodeResult(rec)
	require.NoError(t, err)
	assert.Equal(t, result.MatchingSkills, decoded.MatchingSkills)
	assert.Equal(t, result.MissingSkills, decoded.MissingSkills)
	assert.NotNil(t, decoded.CareerSuggestions, "解码后的数组字段不应为nil")
}

func TestNewEvaluationRecordNilInputs(t *testing.T) {
	_, _, result := sampleEvaluation()
	rec, err := NewEvaluationRecord(nil, nil, result, "")
	require.NoError(t, err)
	assert.Empty(t, rec.CandidateName)
	assert.Empty(t, rec.JobTitle)
}

func TestNewEvaluationOutboxMessage(t *testing.T) {
	resume, job, result := sampleEvaluation()
	rec, err := NewEvaluationRecord(resume, job, result, "")
	require.NoError(t, err)

	msg, err := NewEvaluationOutboxMessage(rec, result, "resume.evaluation.exchange", "resume.evaluated")
	require.NoError(t, err)

	assert.Equal(t, rec.ID, msg.AggregateID)
	assert.Equal(t, EventEvaluationCompleted, msg.EventType)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, "resume.evaluation.exchange", msg.TargetExchange)
	assert.Equal(t, "resume.evaluated", msg.TargetRoutingKey)

	var payload EvaluationCompletedMessage
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload), "消息体应为合法JSON")
	assert.Equal(t, rec.ID, payload.RecordID)
	assert.Equal(t, "张三", payload.CandidateName)
	assert.Equal(t, []string{"Rust"}, payload.MissingSkills)
	assert.NotContains(t, msg.Payload, `"archive_key"`, "空归档路径应省略")
}

func TestDecodeResultInvalidJSON(t *testing.T) {
	_, err := DecodeResult(&models.EvaluationRecord{Result: []byte("{")})
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &config.MySQLConfig{
		Host: "db", Port: 3306, Username: "u", Password: "p", Database: "screening",
		ConnectTimeoutSeconds: 5, ReadTimeoutSeconds: 10, WriteTimeoutSeconds: 10,
	}
	assert.Equal(t, "u:p@tcp(db:3306)/screening?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s&readTimeout=10s&writeTimeout=10s", DSN(cfg))
}

func TestGormTracingPluginName(t *testing.T) {
	assert.Equal(t, "GormOpenTelemetryPlugin", NewGormTracingPlugin("screening").Name())
}

func TestNewStorageWithoutComponents(t *testing.T) {
	s, err := NewStorage(context.Background(), config.DefaultConfig(), testLogger())
	require.NoError(t, err, "未配置任何外部依赖时不应报错")
	assert.Nil(t, s.MinIO)
	assert.Nil(t, s.RabbitMQ)
	assert.Nil(t, s.MySQL)
	assert.Nil(t, s.Redis)
	s.Close(testLogger())
}

// 需要本地Redis，设置 REDIS_ADDR 后运行
func TestRedisEvaluationResultCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 REDIS_ADDR，跳过Redis集成测试")
	}
	ctx := context.Background()
	r, err := NewRedisAdapter(ctx, &config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.GetEvaluationResult(ctx, "missing-record")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, result := sampleEvaluation()
	require.NoError(t, r.SetEvaluationResult(ctx, "test-record", result))
	got, err := r.GetEvaluationResult(ctx, "test-record")
	require.NoError(t, err)
	assert.Equal(t, result.MissingSkills, got.MissingSkills)
	r.Client.Del(ctx, "app:evaluation:result:test-record")
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"

	"web3-resume-rag/internal/config"
)

// ObjectStorage 简历原件归档
type ObjectStorage interface {
	// ArchiveResume 归档上传的简历，返回对象键
	ArchiveResume(ctx context.Context, filename, contentType string, data []byte) (string, error)
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 对象存储
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建客户端，确保归档桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, log zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg, bucket: cfg.BucketName, logger: log}
	if err := m.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	if cfg.ArchiveExpireDays > 0 {
		if err := m.setupLifecycle(ctx, cfg.ArchiveExpireDays); err != nil {
			log.Warn().Err(err).Str("bucket", m.bucket).Msg("设置归档生命周期规则失败")
		}
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	m.logger.Info().Str("bucket", m.bucket).Msg("已创建存储桶")
	return nil
}

func (m *MinIO) setupLifecycle(ctx context.Context, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:         "expire-resume-archive",
			Status:     "Enabled",
			RuleFilter: lifecycle.Filter{Prefix: resumeArchivePrefix + "/"},
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(expiryDays)},
		},
	}
	return m.client.SetBucketLifecycle(ctx, m.bucket, cfg)
}

const resumeArchivePrefix = "resumes"

// ResumeObjectKey 归档路径: resumes/{yyyy}/{mm}/{id}{ext}
func ResumeObjectKey(now time.Time, id, filename string) string {
	return fmt.Sprintf("%s/%04d/%02d/%s%s", resumeArchivePrefix, now.Year(), int(now.Month()), id, strings.ToLower(filepath.Ext(filename)))
}

// ArchiveResume 实现 ObjectStorage，文件MD5写入对象元数据
func (m *MinIO) ArchiveResume(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成对象ID失败: %w", err)
	}
	key := ResumeObjectKey(time.Now(), id.String(), filename)
	if contentType == "" {
		contentType = getContentType(filepath.Ext(filename))
	}

	sum := md5.Sum(data)
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-filename": filename,
			"content-md5-hex":   hex.EncodeToString(sum[:]),
		},
	})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, key, err)
	}

	m.logger.Debug().Str("key", key).Int("size", len(data)).Msg("简历原件已归档")
	return key, nil
}

// GetResumeFile 实现 ObjectStorage
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectKey, err)
	}
	return data, nil
}

// GetPresignedURL 实现 ObjectStorage
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}

func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

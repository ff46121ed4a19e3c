package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"web3-resume-rag/internal/config"
	"web3-resume-rag/internal/constants"
	"web3-resume-rag/internal/types"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("缓存未命中")

// Redis 评估结果缓存与向量缓存共用的客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建带 OpenTelemetry 钩子的客户端并检查连接
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// SetEvaluationResult 缓存评估结果
func (r *Redis) SetEvaluationResult(ctx context.Context, recordID string, result *types.EvaluationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化评估结果失败: %w", err)
	}
	key := fmt.Sprintf(constants.KeyEvaluationResult, recordID)
	if err := r.Client.Set(ctx, key, raw, constants.EvaluationResultTTL).Err(); err != nil {
		return fmt.Errorf("写入评估结果缓存失败: %w", err)
	}
	return nil
}

// GetEvaluationResult 读取缓存的评估结果，不存在时返回 ErrNotFound
func (r *Redis) GetEvaluationResult(ctx context.Context, recordID string) (*types.EvaluationResult, error) {
	key := fmt.Sprintf(constants.KeyEvaluationResult, recordID)
	raw, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取评估结果缓存失败: %w", err)
	}
	var result types.EvaluationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("解析评估结果缓存失败: %w", err)
	}
	return &result, nil
}

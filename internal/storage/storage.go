package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"web3-resume-rag/internal/config"
)

// Storage 聚合外部存储依赖，未配置的组件为nil
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage 按配置初始化各组件。单个组件失败只记录警告，
// 只有在配置了组件却全部失败时才返回错误。
func NewStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var err error
	var initErrors []string
	configured := 0

	if cfg.MinIO.Endpoint != "" {
		configured++
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, log.With().Str("component", "minio").Logger())
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		configured++
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, log.With().Str("component", "rabbitmq").Logger())
		if err == nil {
			err = s.RabbitMQ.SetupEvaluationTopology()
		}
		if err != nil {
			log.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
			if s.RabbitMQ != nil {
				_ = s.RabbitMQ.Close()
				s.RabbitMQ = nil
			}
		}
	}

	if cfg.MySQL.Host != "" {
		configured++
		s.MySQL, err = NewMySQL(&cfg.MySQL, log.With().Str("component", "mysql").Logger())
		if err != nil {
			log.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		configured++
		s.Redis, err = NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if configured > 0 && len(initErrors) == configured {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		log.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件不可用")
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close(log zerolog.Logger) {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}

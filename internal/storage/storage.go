// Package storage 聚合MySQL、Redis和MinIO三类存储适配器。
// MySQL是持久化主库，Redis承担去重集合与持久缓存层，MinIO负责文档归档。
package storage

import (
	"context"
	"fmt"

	"recruit-agent-go/internal/config"
	appLogger "recruit-agent-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis

	// 对象存储
	MinIO *MinIO
}

// NewStorage 创建存储管理器。
// MySQL初始化失败直接返回错误；Redis和MinIO失败时降级运行，
// 对应的去重、缓存和归档能力由调用方按nil跳过。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	logger := appLogger.Component("storage")
	storage := &Storage{}
	var err error

	if cfg.MySQL.Host == "" {
		return nil, fmt.Errorf("MySQL未配置, 无法持久化候选人记录")
	}
	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败, 去重和持久缓存降级为不可用")
			storage.Redis = nil
		}
	} else {
		logger.Info().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败, 文档归档降级为不可用")
			storage.MinIO = nil
		}
	} else {
		logger.Info().Msg("MinIO未配置, 跳过初始化")
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	logger := appLogger.Component("storage")

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO客户端无需显式关闭
}

package cache

import (
	"context"
	"time"

	"recruit-agent-go/internal/logger"

	"github.com/rs/zerolog"
)

const defaultMemoryTTL = 5 * time.Minute

// Tiered 两级缓存：一级为进程内LRU，二级为持久后端
// 读路径先查一级，未命中再查二级并把命中值提升到一级
// 写路径两级都写。二级故障记录错误日志后当作未命中，不向调用方传播
type Tiered struct {
	memory    *LRU
	durable   DurableBackend
	memoryTTL time.Duration
	logger    zerolog.Logger
}

// TieredOption 配置Tiered缓存
type TieredOption func(*Tiered)

// WithMemoryTTL 设置一级缓存条目的最长存活时间
func WithMemoryTTL(ttl time.Duration) TieredOption {
	return func(t *Tiered) {
		if ttl > 0 {
			t.memoryTTL = ttl
		}
	}
}

// NewTiered 创建两级缓存，durable可为nil表示仅使用进程内一级
func NewTiered(memory *LRU, durable DurableBackend, options ...TieredOption) *Tiered {
	t := &Tiered{
		memory:    memory,
		durable:   durable,
		memoryTTL: defaultMemoryTTL,
		logger:    logger.Component("tiered_cache"),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Get 按一级、二级的顺序查找键
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, found := t.memory.Get(ctx, key); found {
		return value, true
	}
	if t.durable == nil {
		return nil, false
	}

	value, found, err := t.durable.CacheGet(ctx, key)
	if err != nil {
		t.logger.Error().Err(err).Str("key", key).Msg("持久缓存层读取失败，按未命中处理")
		return nil, false
	}
	if !found {
		return nil, false
	}

	t.memory.Put(ctx, key, value, t.memoryTTL)
	return value, true
}

// Put 把键值写入两级缓存，ttl只约束持久层，一级受memoryTTL限制
func (t *Tiered) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	memoryTTL := t.memoryTTL
	if ttl > 0 && ttl < memoryTTL {
		memoryTTL = ttl
	}
	t.memory.Put(ctx, key, value, memoryTTL)

	if t.durable == nil {
		return
	}
	if err := t.durable.CacheSet(ctx, key, value, ttl); err != nil {
		t.logger.Error().Err(err).Str("key", key).Msg("持久缓存层写入失败")
	}
}

var _ Cache = (*Tiered)(nil)

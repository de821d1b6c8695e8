// Package cache 提供两级缓存：进程内LRU一级、可插拔的持久后端二级
package cache

import (
	"context"
	"time"
)

// Cache 缓存读写契约
// Get未命中返回found=false；Put的ttl为0表示不过期
// 实现必须并发安全，且任何内部故障都不向调用方传播
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// DurableBackend 二级持久缓存后端的端口
// 与Cache不同，后端故障通过error上报，由组合层决定如何处理
type DurableBackend interface {
	CacheGet(ctx context.Context, key string) (value []byte, found bool, err error)
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

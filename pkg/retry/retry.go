// Package retry 提供统一的重试与退避封装
// 业务代码不再散落手写的 sleep 循环，所有外部调用共用同一套策略
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Policy 定义一次可重试操作的退避策略
type Policy struct {
	// MaxAttempts 总尝试次数（含首次），<=0 时按1处理
	MaxAttempts int
	// InitialInterval 首次重试前的等待时间
	InitialInterval time.Duration
	// MaxInterval 单次等待上限
	MaxInterval time.Duration
	// MaxElapsedTime 整个重试过程的总时长上限，0表示不限制
	MaxElapsedTime time.Duration
}

// DefaultPolicy 外部协作方调用的默认策略: 3次尝试，1s起步指数退避，总计约10s封顶
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     4 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsedTime
	eb.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = eb
	// WithMaxRetries 计的是重试次数，不含首次
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Permanent 标记不可重试的错误，Do 会立即停止并返回原始错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do 按策略执行op，失败时指数退避重试
// op 返回 Permanent 包装的错误时立即放弃，ctx取消时返回ctx错误
func Do(ctx context.Context, p Policy, logger zerolog.Logger, opName string, op func(ctx context.Context) error) error {
	notify := func(err error, wait time.Duration) {
		logger.Warn().
			Str("op", opName).
			Dur("retry_in", wait).
			Err(err).
			Msg("操作失败，准备重试")
	}

	return backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op(ctx)
	}, p.newBackOff(ctx), notify)
}

// DoWithResult 与 Do 相同，但透传op的返回值
func DoWithResult[T any](ctx context.Context, p Policy, logger zerolog.Logger, opName string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, logger, opName, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

package ratelimit

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ThrottledChatModel 在底层聊天模型前按QPM节流的代理
// 只负责限速，重试由调用方的退避策略处理
type ThrottledChatModel struct {
	inner   model.ToolCallingChatModel
	limiter *TokenBucket
}

// NewThrottledChatModel 创建限流代理，容量设为QPM的一半以允许突发
func NewThrottledChatModel(inner model.ToolCallingChatModel, qpm int) *ThrottledChatModel {
	return &ThrottledChatModel{
		inner:   inner,
		limiter: NewTokenBucket(qpm, qpm/2),
	}
}

// Generate 等待令牌后转发调用
func (t *ThrottledChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Generate(ctx, messages, options...)
}

// Stream 等待令牌后转发调用
func (t *ThrottledChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Stream(ctx, messages, options...)
}

// WithTools 转发工具绑定，新模型共享同一个限流器
func (t *ThrottledChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := t.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &ThrottledChatModel{inner: bound, limiter: t.limiter}, nil
}

var _ model.ToolCallingChatModel = (*ThrottledChatModel)(nil)

// Throttle 根据模型QPM配置表包装聊天模型
// 配置表命中时取限制值的90%作为安全水位，最终QPM非正时退回默认30
func Throttle(inner model.ToolCallingChatModel, modelName string, modelQPMLimits map[string]int, taskQPM int) model.ToolCallingChatModel {
	qpm := taskQPM
	if modelQPMLimits != nil && modelName != "" {
		if limit, ok := modelQPMLimits[modelName]; ok && limit > 0 {
			qpm = int(float64(limit) * 0.9)
		}
	}
	if qpm <= 0 {
		qpm = 30
	}
	return NewThrottledChatModel(inner, qpm)
}

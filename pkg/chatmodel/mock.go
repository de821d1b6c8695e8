package chatmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Err     error
}

// MockChatModel 按顺序返回预设响应的测试用聊天模型
// 并发安全，响应耗尽后返回错误
type MockChatModel struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int
	received  [][]*schema.Message
}

// NewMockChatModel 创建顺序响应的模拟模型
func NewMockChatModel(responses ...MockResponse) *MockChatModel {
	return &MockChatModel{responses: responses}
}

// Generate 返回下一个预设响应并记录收到的消息
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recorded := make([]*schema.Message, len(input))
	copy(recorded, input)
	m.received = append(m.received, recorded)

	if m.index >= len(m.responses) {
		return nil, errors.New("mock chat model has run out of responses")
	}
	resp := m.responses[m.index]
	m.index++

	if resp.Err != nil {
		return nil, resp.Err
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 未实现
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not implemented in mock chat model")
}

// WithTools 直接返回自身
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// CallCount 返回 Generate 被调用的次数
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// Received 返回各次调用收到的消息列表
func (m *MockChatModel) Received() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.received))
	copy(out, m.received)
	return out
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)

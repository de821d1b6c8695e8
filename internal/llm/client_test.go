package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"recruit-agent-go/pkg/chatmodel"
	"recruit-agent-go/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy 测试用的快速重试策略
func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestCompleteJSONPlainObject(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: `{"role": "engineer"}`})
	client := NewClient(mock, WithRetryPolicy(fastPolicy(1)))

	result, err := client.CompleteJSON(context.Background(), "test_op", "system instructions", "user text")

	require.NoError(t, err)
	assert.JSONEq(t, `{"role": "engineer"}`, result)

	// 验证发出的消息结构: system + user 各一条
	received := mock.Received()
	require.Len(t, received, 1)
	messages := received[0]
	require.Len(t, messages, 2)
	assert.Equal(t, "system", string(messages[0].Role))
	assert.Equal(t, "system instructions", messages[0].Content)
	assert.Equal(t, "user", string(messages[1].Role))
	assert.Equal(t, "user text", messages[1].Content)
}

func TestCompleteJSONCodeFence(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: "分析结果如下:\n```json\n{\"skills\": [\"go\"]}\n```\n以上。"})
	client := NewClient(mock, WithRetryPolicy(fastPolicy(1)))

	result, err := client.CompleteJSON(context.Background(), "test_op", "s", "u")

	require.NoError(t, err)
	assert.JSONEq(t, `{"skills": ["go"]}`, result)
}

func TestCompleteJSONBraceFallback(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: `结果: {"outer": {"inner": 2}} 完毕`})
	client := NewClient(mock, WithRetryPolicy(fastPolicy(1)))

	result, err := client.CompleteJSON(context.Background(), "test_op", "s", "u")

	require.NoError(t, err)
	assert.JSONEq(t, `{"outer": {"inner": 2}}`, result)
}

func TestCompleteJSONRetriesOnMalformedResponse(t *testing.T) {
	mock := chatmodel.NewMockChatModel(
		chatmodel.MockResponse{Content: "抱歉，我无法处理这个请求。"},
		chatmodel.MockResponse{Content: `{"ok": true}`},
	)
	client := NewClient(mock, WithRetryPolicy(fastPolicy(3)))

	result, err := client.CompleteJSON(context.Background(), "test_op", "s", "u")

	require.NoError(t, err, "第二次响应包含合法JSON，应重试成功")
	assert.JSONEq(t, `{"ok": true}`, result)
	assert.Equal(t, 2, mock.CallCount())
}

func TestCompleteJSONPermanentErrorNoRetry(t *testing.T) {
	mock := chatmodel.NewMockChatModel(
		chatmodel.MockResponse{Err: errors.New("API 请求失败，状态 401 Unauthorized: invalid api key")},
		chatmodel.MockResponse{Content: `{"ok": true}`},
	)
	client := NewClient(mock, WithRetryPolicy(fastPolicy(3)))

	_, err := client.CompleteJSON(context.Background(), "test_op", "s", "u")

	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount(), "鉴权类错误不应重试")
}

func TestCompleteJSONRetryableErrorExhaustion(t *testing.T) {
	mock := chatmodel.NewMockChatModel(
		chatmodel.MockResponse{Err: errors.New("dial tcp: connection refused")},
		chatmodel.MockResponse{Err: errors.New("dial tcp: connection refused")},
	)
	client := NewClient(mock, WithRetryPolicy(fastPolicy(2)))

	_, err := client.CompleteJSON(context.Background(), "test_op", "s", "u")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, mock.CallCount(), "连接类错误应重试到次数耗尽")
}

func TestCompletePlainText(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: "Score: 8\nReasoning:\n- 技能吻合"})
	client := NewClient(mock, WithRetryPolicy(fastPolicy(1)))

	result, err := client.Complete(context.Background(), "test_op", "s", "u")

	require.NoError(t, err)
	assert.Equal(t, "Score: 8\nReasoning:\n- 技能吻合", result)
}

func TestRequireFields(t *testing.T) {
	jsonStr := `{"personal_info": {}, "work_experience": {"total_years_experience": 3}}`

	assert.NoError(t, RequireFields(jsonStr, "personal_info", "work_experience"))

	err := RequireFields(jsonStr, "personal_info", "skills_and_tools", "additional_info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skills_and_tools")
	assert.Contains(t, err.Error(), "additional_info")
	assert.NotContains(t, err.Error(), "personal_info")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "纯JSON",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "json代码块",
			text: "前缀\n```json\n{\"a\": 1}\n```\n后缀",
			want: `{"a": 1}`,
		},
		{
			name: "嵌套大括号",
			text: `text {"a": {"b": {"c": 1}}} more`,
			want: `{"a": {"b": {"c": 1}}}`,
		},
		{
			name: "没有JSON",
			text: "这里没有任何结构化内容",
			want: "",
		},
		{
			name: "大括号不配对",
			text: `{"a": 1`,
			want: "",
		},
		{
			name: "空字符串",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.text))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.True(t, isRetryableError(errors.New("context deadline exceeded")))
	assert.True(t, isRetryableError(errors.New("read: connection reset by peer")))
	assert.True(t, isRetryableError(errors.New("API 请求失败，状态 429 Too Many Requests: slow down")))
	assert.False(t, isRetryableError(errors.New("API 请求失败，状态 400 Bad Request: bad payload")))
}

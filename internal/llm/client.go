// Package llm 封装对外部文本理解协作方的统一调用
// 三个LLM任务（画像抽取、检索条件抽取、外联生成）共用这里的重试、超时和JSON提取逻辑
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/pkg/retry"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const defaultCallTimeout = 60 * time.Second

// Client 统一的LLM调用客户端
// 限流在注入的模型上（ratelimit.ThrottledChatModel），这里只管重试和响应解析
type Client struct {
	model   model.ToolCallingChatModel
	policy  retry.Policy
	timeout time.Duration
	logger  zerolog.Logger
}

// ClientOption 配置Client
type ClientOption func(*Client)

// WithRetryPolicy 替换默认重试策略
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithCallTimeout 设置单次调用超时
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient 创建LLM客户端
func NewClient(chatModel model.ToolCallingChatModel, options ...ClientOption) *Client {
	c := &Client{
		model:   chatModel,
		policy:  retry.DefaultPolicy(),
		timeout: defaultCallTimeout,
		logger:  logger.Component("llm_client"),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// CompleteJSON 发送system+user提示，返回响应中提取出的JSON文本
// 响应里没有可解析的JSON时按可重试失败处理，模型偶发输出解释性文字的情况下换一次调用通常就能恢复
func (c *Client) CompleteJSON(ctx context.Context, opName string, systemPrompt string, userPrompt string) (string, error) {
	messages := []*einoschema.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	return retry.DoWithResult(ctx, c.policy, c.logger, opName, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		response, err := c.model.Generate(callCtx, messages)
		if err != nil {
			if !isRetryableError(err) {
				return "", retry.Permanent(err)
			}
			return "", err
		}

		jsonStr := extractJSON(response.Content)
		if jsonStr == "" || !gjson.Valid(jsonStr) {
			c.logger.Warn().
				Str("op", opName).
				Int("response_len", len(response.Content)).
				Msg("响应中没有可解析的JSON")
			return "", fmt.Errorf("响应中没有可解析的JSON")
		}
		return jsonStr, nil
	})
}

// Complete 发送system+user提示并返回原始响应文本，用于非JSON格式的任务
func (c *Client) Complete(ctx context.Context, opName string, systemPrompt string, userPrompt string) (string, error) {
	messages := []*einoschema.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	return retry.DoWithResult(ctx, c.policy, c.logger, opName, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		response, err := c.model.Generate(callCtx, messages)
		if err != nil {
			if !isRetryableError(err) {
				return "", retry.Permanent(err)
			}
			return "", err
		}
		return response.Content, nil
	})
}

// RequireFields 校验JSON文本包含全部指定的顶层字段
func RequireFields(jsonStr string, fields ...string) error {
	var missing []string
	for _, field := range fields {
		if !gjson.Get(jsonStr, field).Exists() {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("JSON缺少必需字段: %s", strings.Join(missing, ", "))
	}
	return nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "Too Many Requests")
}

var jsonBlockPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractJSON 从LLM响应文本中提取JSON部分
// 优先匹配```json代码块，回退到首个配对的大括号区间
func extractJSON(text string) string {
	matches := jsonBlockPattern.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

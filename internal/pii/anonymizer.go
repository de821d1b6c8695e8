package pii

import (
	"strings"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

// Anonymizer 把检测到的PII片段替换为固定占位符
// 替换后的文本是唯一允许离开进程边界送往外部LLM的文本
type Anonymizer struct {
	detector *Detector
	logger   zerolog.Logger
}

// NewAnonymizer 创建匿名化器
func NewAnonymizer(detector *Detector) *Anonymizer {
	return &Anonymizer{
		detector: detector,
		logger:   logger.Component("anonymizer"),
	}
}

// Anonymize 检测并替换文本中的PII，返回脱敏文本和PII记录
// 按 姓名→邮箱→电话→地址 的固定顺序做全文字面替换
// 检测结果全空时原样返回输入文本
func (a *Anonymizer) Anonymize(text string) (string, types.PIIRecord) {
	record := a.detector.Detect(text)

	anonymized := text
	if record.FullName != "" {
		anonymized = strings.ReplaceAll(anonymized, record.FullName, types.PlaceholderName)
	}
	if record.Email != "" {
		anonymized = strings.ReplaceAll(anonymized, record.Email, types.PlaceholderEmail)
	}
	if record.Phone != "" {
		anonymized = strings.ReplaceAll(anonymized, record.Phone, types.PlaceholderPhone)
	}
	if record.Address != "" {
		anonymized = strings.ReplaceAll(anonymized, record.Address, types.PlaceholderAddress)
	}

	a.logger.Debug().
		Int("original_len", len(text)).
		Int("anonymized_len", len(anonymized)).
		Bool("redacted", anonymized != text).
		Msg("文本匿名化完成")

	return anonymized, record
}

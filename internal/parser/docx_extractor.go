package parser

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"code.sajari.com/docconv"
)

// DocxExtractor 基于docconv的DOCX文本提取器
// 逐段落提取正文，段落之间以换行符分隔
type DocxExtractor struct {
	logger *log.Logger
}

// DocxOption DOCX提取器的配置选项
type DocxOption func(*DocxExtractor)

// WithDocxLogger 配置自定义日志记录器
func WithDocxLogger(logger *log.Logger) DocxOption {
	return func(e *DocxExtractor) {
		e.logger = logger
	}
}

var _ Engine = (*DocxExtractor)(nil)

// NewDocxExtractor 创建DOCX文本提取器
func NewDocxExtractor(options ...DocxOption) *DocxExtractor {
	extractor := &DocxExtractor{
		logger: log.New(os.Stderr, "[DOCX解析器] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractTextFromBytes 从字节数组提取DOCX正文文本
func (e *DocxExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	body, meta, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		e.logger.Printf("DOCX解析失败: %s (URI: %s)", err, uri)
		return "", nil, fmt.Errorf("docconv failed for URI %s: %w", uri, err)
	}

	metadata := map[string]interface{}{
		"source_file_path":       uri,
		"extraction_time":        time.Now().Format(time.RFC3339),
		"text_length":            len(body),
		"processing_duration_ms": time.Since(startTime).Milliseconds(),
	}
	for k, v := range meta {
		metadata[k] = v
	}

	e.logger.Printf("DOCX提取完成: %d 个字符 (用时 %.2f秒)", len(body), time.Since(startTime).Seconds())
	return body, metadata, nil
}

// ExtractFromFile 从DOCX文件提取文本内容
func (e *DocxExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("读取DOCX文件 %s 失败: %w", filePath, err)
	}

	return e.ExtractTextFromBytes(ctx, data, filePath)
}

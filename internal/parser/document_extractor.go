package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/types"
)

// Engine 单一文件格式的文本提取引擎
// PDF与DOCX各有实现，由DocumentTextExtractor按扩展名分发
type Engine interface {
	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// DocumentTextExtractor 文档文本提取器
// 负责扩展名分发与统一文本清洗，清洗后的文本是下游所有组件的输入
type DocumentTextExtractor struct {
	engines map[string]Engine
}

// NewDocumentTextExtractor 根据配置构建文档文本提取器
// parser.engine 选择PDF引擎：eino（默认，纯Go实现）或 tika（需要外部Tika服务）
func NewDocumentTextExtractor(ctx context.Context, cfg *config.Config) (*DocumentTextExtractor, error) {
	var pdfEngine Engine
	if cfg.Parser.Engine == "tika" && cfg.Parser.TikaServerURL != "" {
		var tikaOptions []TikaOption
		if cfg.Parser.Timeout > 0 {
			tikaOptions = append(tikaOptions, WithTimeout(time.Duration(cfg.Parser.Timeout)*time.Second))
		}
		pdfEngine = NewTikaPDFExtractor(cfg.Parser.TikaServerURL, tikaOptions...)
	} else {
		var err error
		pdfEngine, err = NewEinoPDFExtractor(ctx)
		if err != nil {
			return nil, fmt.Errorf("初始化Eino PDF引擎失败: %w", err)
		}
	}

	return NewDocumentTextExtractorWithEngines(pdfEngine, NewDocxExtractor()), nil
}

// NewDocumentTextExtractorWithEngines 用显式引擎构建提取器，便于测试替换
func NewDocumentTextExtractorWithEngines(pdfEngine, docxEngine Engine) *DocumentTextExtractor {
	return &DocumentTextExtractor{
		engines: map[string]Engine{
			".pdf":  pdfEngine,
			".docx": docxEngine,
		},
	}
}

// ExtractText 按扩展名分发到对应引擎并返回清洗后的文本
// PDF按页提取并以换行符连接，DOCX按段落提取，引擎输出统一过CleanText
// 下游的PII片段定位都发生在这份规范化文本上
// 不支持的扩展名返回 ErrUnsupportedFormat，引擎失败返回 ErrExtractionFailed
func (e *DocumentTextExtractor) ExtractText(ctx context.Context, doc types.RawDocument) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(doc.Ext))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(doc.Filename))
	}

	engine, ok := e.engines[ext]
	if !ok {
		return "", processor.NewUnsupportedFormatError(doc.Filename, ext)
	}

	text, _, err := engine.ExtractTextFromBytes(ctx, doc.Content, doc.Filename)
	if err != nil {
		return "", processor.NewExtractionError(doc.Filename, err.Error())
	}

	return CleanText(text), nil
}

// CleanText 规范化提取出的文本
// 先删除除换行/回车/制表符外的控制字符，再把所有空白串压成单个空格
// 对已清洗的文本再次调用，结果不变
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

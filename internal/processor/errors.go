package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	// ErrUnsupportedFormat 文件扩展名不受支持，该文档直接失败
	ErrUnsupportedFormat = errors.New("不支持的文件格式")
	// ErrExtractionFailed 文档损坏或无法读取，该文档失败，批次继续
	ErrExtractionFailed = errors.New("提取文档文本失败")
	// ErrPIIDetectionFailed PII检测失败，组件内部兜底为空记录，仅用于日志
	ErrPIIDetectionFailed = errors.New("PII检测失败")
	// ErrRiskScoringFailed 风险评分失败，组件内部兜底为零分结果，仅用于日志
	ErrRiskScoringFailed = errors.New("风险评分失败")
	// ErrExternalServiceFailed 外部协作方调用在重试耗尽后仍失败
	ErrExternalServiceFailed = errors.New("外部服务调用失败")
	// ErrRateLimitExceeded 外联生成触达单候选人频率上限，可稍后重试
	ErrRateLimitExceeded = errors.New("请求超过频率限制")
	// ErrStorageFailed 数据库操作失败
	ErrStorageFailed = errors.New("数据库操作失败")
	// ErrObjectStoreFailed 对象存储操作失败
	ErrObjectStoreFailed = errors.New("对象存储操作失败")
)

// ErrSchemaValidationFailed 外部响应结构不符合预期
// 包装外部服务错误，errors.Is 对两者都成立
var ErrSchemaValidationFailed = fmt.Errorf("响应结构校验失败: %w", ErrExternalServiceFailed)

// ProcessError 包含详细错误信息的自定义错误
type ProcessError struct {
	DocumentID string // 出错文档/候选人的标识
	Op         string // 出错的操作
	BaseErr    error  // 所属的基础错误类别
	Detail     string // 补充细节
}

func (e *ProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文档:%s): %s", e.BaseErr, e.Op, e.DocumentID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文档:%s)", e.BaseErr, e.Op, e.DocumentID)
}

func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewUnsupportedFormatError(docID, ext string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "dispatch",
		BaseErr:    ErrUnsupportedFormat,
		Detail:     fmt.Sprintf("扩展名 %q", ext),
	}
}

func NewExtractionError(docID, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "extract",
		BaseErr:    ErrExtractionFailed,
		Detail:     detail,
	}
}

func NewPIIDetectionError(docID, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "pii_detect",
		BaseErr:    ErrPIIDetectionFailed,
		Detail:     detail,
	}
}

func NewRiskScoringError(docID, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "risk_score",
		BaseErr:    ErrRiskScoringFailed,
		Detail:     detail,
	}
}

func NewExternalServiceError(docID, op, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         op,
		BaseErr:    ErrExternalServiceFailed,
		Detail:     detail,
	}
}

func NewSchemaValidationError(docID, op, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         op,
		BaseErr:    ErrSchemaValidationFailed,
		Detail:     detail,
	}
}

func NewRateLimitError(candidateID string, detail string) error {
	return &ProcessError{
		DocumentID: candidateID,
		Op:         "outreach",
		BaseErr:    ErrRateLimitExceeded,
		Detail:     detail,
	}
}

func NewStorageError(docID, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "persist",
		BaseErr:    ErrStorageFailed,
		Detail:     detail,
	}
}

func NewObjectStoreError(docID, detail string) error {
	return &ProcessError{
		DocumentID: docID,
		Op:         "archive",
		BaseErr:    ErrObjectStoreFailed,
		Detail:     detail,
	}
}

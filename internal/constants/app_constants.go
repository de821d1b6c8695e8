package constants

import "time"

const (
	// DefaultPipelineVersion 随候选人记录持久化的流水线版本号
	DefaultPipelineVersion = "1.0"

	// OutreachCacheDuration 外联缓存默认保留7天
	OutreachCacheDuration = 7 * 24 * time.Hour

	// ExtractionCacheDuration 抽取结果缓存默认保留30天
	ExtractionCacheDuration = 30 * 24 * time.Hour

	// DedupRecordDuration 文本去重登记默认保留30天
	DedupRecordDuration = 30 * 24 * time.Hour
)

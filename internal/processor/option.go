package processor

import (
	"time"

	"recruit-agent-go/internal/constants"
)

const (
	// 批量摄取并发度的下限和上限，未显式配置时生效
	minBatchWorkers = 3
	maxBatchWorkers = 10
)

// Settings 纯配置项，不包含任何业务组件
type Settings struct {
	// MaxConcurrency 批量摄取的并发上限，0表示按CPU核数推导
	MaxConcurrency int
	// DocumentTimeout 单份文档的整体处理时限，超时只放弃该文档
	DocumentTimeout time.Duration
	// PhoneRegion 电话号码E.164规范化使用的默认辖区
	PhoneRegion string
	// PipelineVersion 落库时记录的流水线版本号
	PipelineVersion string
	// CacheTTL 全流程结果缓存的存活时间
	CacheTTL time.Duration
}

// SettingOpt 设置选项函数类型
type SettingOpt func(*Settings)

func defaultSettings() Settings {
	return Settings{
		DocumentTimeout: 2 * time.Minute,
		PhoneRegion:     "AU",
		PipelineVersion: constants.DefaultPipelineVersion,
		CacheTTL:        constants.ExtractionCacheDuration,
	}
}

// WithMaxConcurrency 设置批量摄取的并发上限
func WithMaxConcurrency(n int) SettingOpt {
	return func(s *Settings) {
		s.MaxConcurrency = n
	}
}

// WithDocumentTimeout 设置单份文档的处理时限
func WithDocumentTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		if d > 0 {
			s.DocumentTimeout = d
		}
	}
}

// WithPhoneRegion 设置电话规范化的默认辖区
func WithPhoneRegion(region string) SettingOpt {
	return func(s *Settings) {
		if region != "" {
			s.PhoneRegion = region
		}
	}
}

// WithPipelineVersion 设置落库记录的流水线版本
func WithPipelineVersion(version string) SettingOpt {
	return func(s *Settings) {
		if version != "" {
			s.PipelineVersion = version
		}
	}
}

// WithCacheTTL 设置抽取结果缓存的存活时间
func WithCacheTTL(ttl time.Duration) SettingOpt {
	return func(s *Settings) {
		if ttl > 0 {
			s.CacheTTL = ttl
		}
	}
}

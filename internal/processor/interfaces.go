package processor

import (
	"context"

	"recruit-agent-go/internal/cache"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/types"
)

// Extractor 文档文本提取端口
type Extractor interface {
	// ExtractText 按扩展名分发引擎，返回清洗后的纯文本
	ExtractText(ctx context.Context, doc types.RawDocument) (string, error)
}

// Anonymizer PII检测与脱敏端口。
// 实现内部兜住一切失败，检测不到PII时原文原样返回。
type Anonymizer interface {
	Anonymize(text string) (string, types.PIIRecord)
}

// ProfileExtractor 匿名文本到结构化画像的LLM端口
type ProfileExtractor interface {
	Extract(ctx context.Context, documentID string, anonymizedText string) (types.CandidateProfile, error)
}

// RiskScorer 画像风险评分端口，纯计算不出错
type RiskScorer interface {
	Score(profile types.CandidateProfile) types.RiskAssessment
}

// CandidateStore 候选人持久化端口
type CandidateStore interface {
	UpsertCandidate(ctx context.Context, payload storage.CandidateUpsert) error
	FindCandidateIDByTextMD5(ctx context.Context, md5Hex string) (string, bool, error)
	GetCandidate(ctx context.Context, candidateID string) (types.CandidateRecord, error)
}

// Deduper 提取文本级的内容去重端口
type Deduper interface {
	// CheckAndAddTextMD5 原子地查重并登记，返回true表示此前已见过该文本
	CheckAndAddTextMD5(ctx context.Context, md5Hex string) (bool, error)
	// RemoveTextMD5 回收一条登记，流水线在登记后失败时调用
	RemoveTextMD5(ctx context.Context, md5Hex string) error
}

// Archiver 原始文档与提取文本的归档端口
type Archiver interface {
	UploadOriginal(ctx context.Context, candidateID, fileExt string, data []byte) (string, error)
	UploadExtractedText(ctx context.Context, candidateID string, text string) (string, error)
}

// Components 聚合流水线的全部组件依赖，便于集中装配和测试替换。
// Extractor、Anonymizer、ProfileExtractor、Scorer、Store为必需，
// Deduper、Archiver、Cache为nil时对应能力降级关闭。
type Components struct {
	Extractor        Extractor
	Anonymizer       Anonymizer
	ProfileExtractor ProfileExtractor
	Scorer           RiskScorer
	Store            CandidateStore
	Deduper          Deduper
	Archiver         Archiver
	Cache            cache.Cache
}

package search

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

// CandidateCorpus 匹配所需的最小语料访问能力
type CandidateCorpus interface {
	// SearchBlobs 返回 candidateID 到检索blob 的全量映射
	SearchBlobs(ctx context.Context) (map[string]string, error)
	// FetchRecords 按ID取回完整候选人记录，顺序不作保证
	FetchRecords(ctx context.Context, ids []string) ([]types.CandidateRecord, error)
}

// CandidateMatcher 基于关键词与检索blob的确定性匹配器
// 同一语料和条件下结果恒定，按candidateID升序返回，不做相关性排序
type CandidateMatcher struct {
	corpus CandidateCorpus
	logger zerolog.Logger
}

// NewCandidateMatcher 创建候选人匹配器
func NewCandidateMatcher(corpus CandidateCorpus) *CandidateMatcher {
	return &CandidateMatcher{
		corpus: corpus,
		logger: logger.Component("candidate_matcher"),
	}
}

// Match 按检索条件筛选候选人
// 关键词集合为空时整个语料进入后置过滤
func (m *CandidateMatcher) Match(ctx context.Context, filter types.SearchFilter) ([]types.CandidateRecord, error) {
	blobs, err := m.corpus.SearchBlobs(ctx)
	if err != nil {
		return nil, err
	}

	keywords := collectKeywords(filter)

	var ids []string
	for id, blob := range blobs {
		if len(keywords) == 0 || matchesAnyKeyword(blob, keywords) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		m.logger.Debug().Int("keyword_count", len(keywords)).Msg("没有候选人命中关键词")
		return []types.CandidateRecord{}, nil
	}

	records, err := m.corpus.FetchRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	filtered := make([]types.CandidateRecord, 0, len(records))
	for _, record := range records {
		if !passesLocationFilter(record, filter.Location) {
			continue
		}
		if !passesExperienceFilter(record, filter.ExperienceYearsMin) {
			continue
		}
		filtered = append(filtered, record)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CandidateID < filtered[j].CandidateID
	})

	m.logger.Debug().
		Int("keyword_count", len(keywords)).
		Int("matched", len(ids)).
		Int("after_filters", len(filtered)).
		Msg("候选人匹配完成")

	return filtered, nil
}

// collectKeywords 汇总检索关键词：职位 + 相近职位 + 必需技能，统一小写并去重
func collectKeywords(filter types.SearchFilter) []string {
	raw := make([]string, 0, 1+len(filter.RelatedRoles)+len(filter.RequiredSkills))
	if filter.Role != "" {
		raw = append(raw, filter.Role)
	}
	raw = append(raw, filter.RelatedRoles...)
	raw = append(raw, filter.RequiredSkills...)

	seen := make(map[string]struct{}, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, kw := range raw {
		lower := strings.ToLower(strings.TrimSpace(kw))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, lower)
	}
	return keywords
}

// matchesAnyKeyword 任一关键词命中即算匹配
// 3个字符以上允许blob内任意位置的子串匹配，更短的关键词必须是独立的管道分隔token，
// 避免 "go"、"r" 这类短词过度命中
func matchesAnyKeyword(blob string, keywords []string) bool {
	for _, kw := range keywords {
		if utf8.RuneCountInString(kw) >= 3 {
			if strings.Contains(blob, kw) {
				return true
			}
			continue
		}
		for _, token := range strings.Split(blob, "|") {
			if token == kw {
				return true
			}
		}
	}
	return false
}

// passesLocationFilter 候选人位置需包含过滤条件子串，大小写不敏感
func passesLocationFilter(record types.CandidateRecord, location string) bool {
	if location == "" {
		return true
	}
	return strings.Contains(strings.ToLower(record.Profile.PersonalInfo.LocationString()), strings.ToLower(location))
}

// passesExperienceFilter 设定最低年限时，年限缺失或为0的候选人不通过
func passesExperienceFilter(record types.CandidateRecord, minYears float64) bool {
	if minYears <= 0 {
		return true
	}
	return record.Profile.WorkExperience.TotalYearsExperience >= minYears
}


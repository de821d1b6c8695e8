package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

const defaultRankTopN = 5

// rankSystemPrompt 相关性排序的系统提示词
const rankSystemPrompt = `你是一位资深技术招聘专家，负责评估候选人画像与招聘查询的匹配程度。
给出0到10的相关性分数和2至3条简短的理由。严格按照以下格式输出：
Score: [数字]
Reasoning:
- [理由1]
- [理由2]
- [理由3]`

// RankedCandidate 带相关性评分的候选人
type RankedCandidate struct {
	Record    types.CandidateRecord `json:"record"`
	Score     int                   `json:"score"`
	Reasoning []string              `json:"reasoning"`
}

// Ranker 用LLM把匹配结果按原始查询的相关性降序排列
// 只对前N个匹配结果评分，单个候选人评分失败时跳过该候选人
type Ranker struct {
	client *llm.Client
	topN   int
	logger zerolog.Logger
}

// RankerOption 配置Ranker
type RankerOption func(*Ranker)

// WithTopN 设置参与评分的候选人数量上限
func WithTopN(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.topN = n
		}
	}
}

// NewRanker 创建相关性排序器
func NewRanker(client *llm.Client, options ...RankerOption) *Ranker {
	r := &Ranker{
		client: client,
		topN:   defaultRankTopN,
		logger: logger.Component("candidate_ranker"),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Rank 对匹配到的候选人按查询相关性评分并降序返回
func (r *Ranker) Rank(ctx context.Context, query string, records []types.CandidateRecord) []RankedCandidate {
	toRank := records
	if len(toRank) > r.topN {
		toRank = toRank[:r.topN]
	}

	ranked := make([]RankedCandidate, 0, len(toRank))
	for _, record := range toRank {
		response, err := r.client.Complete(ctx, "rank_candidate", rankSystemPrompt, buildRankPrompt(query, record))
		if err != nil {
			r.logger.Warn().Str("candidate_id", record.CandidateID).Err(err).Msg("候选人评分失败，跳过")
			continue
		}

		score, reasoning, err := parseRankResponse(response)
		if err != nil {
			r.logger.Warn().Str("candidate_id", record.CandidateID).Err(err).Msg("评分响应解析失败，跳过")
			continue
		}

		ranked = append(ranked, RankedCandidate{
			Record:    record,
			Score:     score,
			Reasoning: reasoning,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	r.logger.Debug().Int("ranked", len(ranked)).Int("input", len(records)).Msg("相关性排序完成")
	return ranked
}

// buildRankPrompt 把候选人画像摘要和查询拼成评估提示
func buildRankPrompt(query string, record types.CandidateRecord) string {
	profile := record.Profile
	return fmt.Sprintf(`招聘查询:
%q

候选人画像:
- Title: %s
- Experience: %.1f years
- Skills: %s
- Location: %s
- Education: %s`,
		query,
		profile.WorkExperience.CurrentOrLastJobTitle,
		profile.WorkExperience.TotalYearsExperience,
		strings.Join(profile.SkillsAndTools.Skills, ", "),
		record.Profile.PersonalInfo.LocationString(),
		strings.Join(profile.EducationAndCertifications.Education, ", "))
}

// parseRankResponse 解析 "Score: N" 加 "Reasoning:" 下的破折号列表
func parseRankResponse(response string) (int, []string, error) {
	score := -1
	var reasoning []string
	inReasoning := false

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Score:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "Score:"))
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return 0, nil, fmt.Errorf("无法解析分数 %q", value)
			}
			score = parsed
		case strings.HasPrefix(line, "Reasoning:"):
			inReasoning = true
		case inReasoning && strings.HasPrefix(line, "-"):
			point := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if point != "" {
				reasoning = append(reasoning, point)
			}
		}
	}

	if score < 0 {
		return 0, nil, fmt.Errorf("响应中没有Score行")
	}
	if score > 10 {
		score = 10
	}
	return score, reasoning, nil
}

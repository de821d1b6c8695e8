package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruit-agent-go/internal/cache"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/pkg/utils"

	"github.com/rs/zerolog"
)

const (
	screeningQuestionCount = 3
	defaultCacheTTL        = 7 * 24 * time.Hour
)

// outreachSystemPrompt 触达消息生成的系统提示词
const outreachSystemPrompt = `你是一位经验丰富的HR专家，擅长候选人触达和面试筛选。根据候选人画像和招聘查询，为该候选人生成一条个性化触达消息和3个高度针对性的筛选问题。

要求：
1. 触达消息需引用候选人的具体经验和技能，提及查询中的目标职位，语气专业而自然，并包含明确的行动号召。
2. 3个筛选问题必须针对该候选人的背景定制，关注职业发展轨迹和动机，回应画像中的潜在疑点，避免放之四海而皆准的通用问题。
3. 画像中的姓名等字段可能是[NAME]这类占位符，原样使用，不要替换或猜测真实值。
4. 严格按照以下JSON格式输出，不要包含任何解释性文字：
{
  "outreach_message": "string",
  "screening_questions": ["string", "string", "string"]
}`

// Generator 触达消息生成器
// 生成顺序：缓存命中直接返回（不计入频率配额），否则先过频率限制再调用LLM，
// LLM重试耗尽或响应结构不合法时落到模板兜底，兜底不算失败也不写缓存
type Generator struct {
	client   *llm.Client
	limiter  *RateLimiter
	cache    cache.Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// GeneratorOption 配置Generator
type GeneratorOption func(*Generator)

// WithCache 启用成功生成结果的缓存
func WithCache(c cache.Cache) GeneratorOption {
	return func(g *Generator) {
		g.cache = c
	}
}

// WithCacheTTL 设置缓存条目的存活时间
func WithCacheTTL(ttl time.Duration) GeneratorOption {
	return func(g *Generator) {
		if ttl > 0 {
			g.cacheTTL = ttl
		}
	}
}

// NewGenerator 创建触达消息生成器
func NewGenerator(client *llm.Client, limiter *RateLimiter, options ...GeneratorOption) *Generator {
	g := &Generator{
		client:   client,
		limiter:  limiter,
		cacheTTL: defaultCacheTTL,
		logger:   logger.Component("outreach_generator"),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Generate 为候选人生成针对查询的触达消息和3个筛选问题
// 超出频率配额时返回 ErrRateLimitExceeded 类错误，其余失败均以兜底结果收敛
func (g *Generator) Generate(ctx context.Context, record types.CandidateRecord, query string) (types.OutreachResult, error) {
	key := cacheKey(record.CandidateID, query)
	if g.cache != nil {
		if data, found := g.cache.Get(ctx, key); found {
			var result types.OutreachResult
			if err := json.Unmarshal(data, &result); err == nil {
				result.Source = types.OutreachSourceCache
				g.logger.Debug().Str("candidate_id", record.CandidateID).Msg("触达消息缓存命中")
				return result, nil
			}
			g.logger.Warn().Str("key", key).Msg("缓存条目无法解析，忽略")
		}
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(record.CandidateID); err != nil {
			return types.OutreachResult{}, err
		}
	}

	result, err := g.generateWithLLM(ctx, record, query)
	if err != nil {
		g.logger.Warn().
			Str("candidate_id", record.CandidateID).
			Err(err).
			Msg("触达消息生成失败，使用模板兜底")
		return g.fallbackResult(record), nil
	}

	if g.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			g.cache.Put(ctx, key, data, g.cacheTTL)
		}
	}

	g.logger.Info().Str("candidate_id", record.CandidateID).Msg("触达消息生成完成")
	return result, nil
}

// generateWithLLM 调用LLM并校验响应结构
func (g *Generator) generateWithLLM(ctx context.Context, record types.CandidateRecord, query string) (types.OutreachResult, error) {
	jsonStr, err := g.client.CompleteJSON(ctx, "outreach_generate", outreachSystemPrompt, buildOutreachPrompt(record, query))
	if err != nil {
		return types.OutreachResult{}, err
	}

	if err := llm.RequireFields(jsonStr, "outreach_message", "screening_questions"); err != nil {
		return types.OutreachResult{}, err
	}

	var result types.OutreachResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return types.OutreachResult{}, err
	}
	if strings.TrimSpace(result.OutreachMessage) == "" {
		return types.OutreachResult{}, errors.New("outreach_message为空")
	}
	if len(result.ScreeningQuestions) != screeningQuestionCount {
		return types.OutreachResult{}, fmt.Errorf("筛选问题数量为%d，期望%d", len(result.ScreeningQuestions), screeningQuestionCount)
	}

	result.Source = types.OutreachSourceLLM
	return result, nil
}

// buildOutreachPrompt 拼出包含画像摘要和原始查询的用户消息
func buildOutreachPrompt(record types.CandidateRecord, query string) string {
	profile := record.Profile
	return fmt.Sprintf(`候选人画像:
- Name: %s
- Current Role: %s
- Years of Experience: %.1f
- Location: %s
- Skills: %s

Original Query: %s`,
		profile.PersonalInfo.FullName,
		profile.WorkExperience.CurrentOrLastJobTitle,
		profile.WorkExperience.TotalYearsExperience,
		profile.PersonalInfo.LocationString(),
		strings.Join(profile.SkillsAndTools.Skills, ", "),
		query)
}

// fallbackResult 基于画像字段的模板兜底，引用姓名占位符、职位和靠前的技能
func (g *Generator) fallbackResult(record types.CandidateRecord) types.OutreachResult {
	profile := record.Profile

	name := profile.PersonalInfo.FullName
	if name == "" {
		name = "there"
	}
	title := profile.WorkExperience.CurrentOrLastJobTitle
	if title == "" {
		title = "your recent role"
	}
	skills := topSkills(profile, 3)
	if skills == "" {
		skills = "your areas of expertise"
	}

	message := fmt.Sprintf("Hi %s,\n\nYour experience in %s and your background in %s caught our attention for a role we are hiring for right now. We would love to tell you more about the opportunity and hear what you are looking for in your next move.\n\nWould you be open to a brief chat this week?", name, title, skills)

	return types.OutreachResult{
		OutreachMessage: message,
		ScreeningQuestions: []string{
			fmt.Sprintf("Given your experience in %s, what aspects of this opportunity interest you most?", title),
			fmt.Sprintf("How has your background in %s prepared you for this role?", skills),
			"What are your expectations regarding career growth in this position?",
		},
		Source: types.OutreachSourceFallback,
	}
}

// topSkills 取技能列表的前n项
func topSkills(profile types.CandidateProfile, n int) string {
	skills := profile.SkillsAndTools.Skills
	if len(skills) > n {
		skills = skills[:n]
	}
	return strings.Join(skills, ", ")
}

// cacheKey 由候选人ID和归一化查询的MD5组成
func cacheKey(candidateID, query string) string {
	return fmt.Sprintf(constants.KeyOutreachMessage, candidateID, utils.QueryHash(query))
}

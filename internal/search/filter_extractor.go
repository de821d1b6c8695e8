// Package search 提供自然语言查询到候选人集合的检索链路
// 链路分三段：LLM抽取检索条件、确定性的关键词匹配、LLM对命中结果的相关性排序
package search

import (
	"context"
	"encoding/json"

	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/tracing"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("recruit-agent-go/search")

// filterSystemPrompt 检索条件抽取的系统提示词
const filterSystemPrompt = `你是一个招聘检索条件抽取助手，负责把招聘方的自然语言查询转换为结构化的检索条件JSON。

规则：
1. 只抽取查询中明确表达的条件。缺失时字符串设为null，数组设为[]，experience_years_min设为null。
2. related_roles 给出可能同样匹配的相近职位，related_keywords 给出与职位相关的关键词。
3. 严格按照下面的JSON格式输出，不要包含任何解释性文字。

JSON输出格式规范：
{
  "role": "string or null",
  "related_roles": ["string"],
  "related_keywords": ["string"],
  "location": "string or null",
  "required_skills": ["string"],
  "experience_years_min": "number or null"
}

示例：
Query: "Find me Python developers in Sydney with 3 years of experience"
输出: {
  "role": "Python Developer",
  "related_roles": ["Software Developer", "Backend Developer"],
  "related_keywords": ["Python", "Development"],
  "location": "Sydney",
  "required_skills": ["Python"],
  "experience_years_min": 3
}

Query: "Looking for project managers with PMP certification"
输出: {
  "role": "Project Manager",
  "related_roles": ["Program Manager", "Project Lead"],
  "related_keywords": ["Project Management", "PMP"],
  "location": null,
  "required_skills": ["Project Management", "PMP"],
  "experience_years_min": null
}

接下来你将收到一条查询，请对其进行抽取。`

// filterRequiredFields 匹配环节依赖的顶层字段
var filterRequiredFields = []string{"role", "related_roles", "required_skills"}

// FilterExtractor 从自然语言查询中抽取结构化检索条件
// 无状态：每次查询产出的条件整体替换上一次，不做跨查询合并
type FilterExtractor struct {
	client *llm.Client
	logger zerolog.Logger
}

// NewFilterExtractor 创建检索条件抽取器
func NewFilterExtractor(client *llm.Client) *FilterExtractor {
	return &FilterExtractor{
		client: client,
		logger: logger.Component("filter_extractor"),
	}
}

// Extract 对查询执行条件抽取
func (e *FilterExtractor) Extract(ctx context.Context, query string) (types.SearchFilter, error) {
	ctx, span := tracer.Start(ctx, "FilterExtractor.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("search.query", tracing.SafeQuery(query)))

	jsonStr, err := e.client.CompleteJSON(ctx, "filter_extract", filterSystemPrompt, "Query: "+query)
	if err != nil {
		wrapped := processor.NewExternalServiceError("", "filter_extract", err.Error())
		tracing.RecordError(span, wrapped, tracing.ErrorTypeLLM)
		return types.SearchFilter{}, wrapped
	}

	if err := llm.RequireFields(jsonStr, filterRequiredFields...); err != nil {
		wrapped := processor.NewSchemaValidationError("", "filter_extract", err.Error())
		tracing.RecordError(span, wrapped, tracing.ErrorTypeValidation)
		return types.SearchFilter{}, wrapped
	}

	var filter types.SearchFilter
	if err := json.Unmarshal([]byte(jsonStr), &filter); err != nil {
		wrapped := processor.NewSchemaValidationError("", "filter_extract", err.Error())
		tracing.RecordError(span, wrapped, tracing.ErrorTypeValidation)
		return types.SearchFilter{}, wrapped
	}
	filter.Normalize()

	span.SetAttributes(attribute.Int("filter.keyword_count", len(filter.RelatedRoles)+len(filter.RequiredSkills)))
	span.SetStatus(codes.Ok, "")

	e.logger.Debug().
		Str("role", filter.Role).
		Int("related_roles", len(filter.RelatedRoles)).
		Int("required_skills", len(filter.RequiredSkills)).
		Float64("experience_years_min", filter.ExperienceYearsMin).
		Msg("检索条件抽取完成")

	return filter, nil
}

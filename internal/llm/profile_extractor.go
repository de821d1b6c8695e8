package llm

import (
	"context"
	"encoding/json"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

// profileSystemPrompt 画像抽取的系统提示词
// 输入文本已经过匿名化，姓名/邮箱/电话/地址均为占位符，提示词要求模型原样保留占位符
const profileSystemPrompt = `你是一个专业的简历信息抽取专家，负责把已脱敏的英文简历文本转换为结构化的候选人画像JSON。

核心规则：
1. 输入文本中的 [NAME]、[EMAIL]、[PHONE]、[ADDRESS] 是脱敏占位符，输出时必须原样保留，严禁还原、猜测或编造任何真实个人信息。
2. 只抽取文本中明确存在的信息。某字段缺失时：字符串设为空字符串""，数组设为[]，数字设为0。请勿编造。
3. total_years_experience 根据工作经历综合估算为数字（如0.5, 3, 10.5），无法判断时设为0。
4. previous_job_titles 按简历中出现的顺序列出全部历史职位，companies_worked_at 列出全部公司。
5. skills 列出明确提到的技能与技术，degree_level 列出学位层级（如 "Bachelor", "Master", "PhD"）。
6. 严格按照下面的JSON格式输出，不要包含任何解释性文字或Markdown标记。

JSON输出格式规范：
{
  "personal_info": {
    "full_name": "string",
    "email": "string",
    "phone": "string",
    "location": "string",
    "state": "string",
    "country": "string",
    "linkedin_url": "string"
  },
  "work_experience": {
    "total_years_experience": 0,
    "current_or_last_job_title": "string",
    "previous_job_titles": ["string"],
    "companies_worked_at": ["string"],
    "employment_type": "string",
    "availability": "string"
  },
  "skills_and_tools": {
    "skills": ["string"],
    "skill_categories": {"category": ["string"]},
    "tools_technologies": ["string"]
  },
  "education_and_certifications": {
    "education": ["string"],
    "degree_level": ["string"],
    "certifications": ["string"]
  },
  "additional_info": {
    "summary_statement": "string",
    "languages_spoken": ["string"]
  }
}

示例输入：
"""
[NAME] [EMAIL] [PHONE] Melbourne, VIC Senior Backend Engineer with 8 years building payment systems. Experience Senior Backend Engineer at FinPay 2019-2024 Backend Engineer at RetailCo 2016-2019 Skills Go, PostgreSQL, Kafka, Docker Education Bachelor of Computer Science, Monash University
"""
示例输出：
{
  "personal_info": {
    "full_name": "[NAME]", "email": "[EMAIL]", "phone": "[PHONE]",
    "location": "Melbourne", "state": "VIC", "country": "Australia", "linkedin_url": ""
  },
  "work_experience": {
    "total_years_experience": 8,
    "current_or_last_job_title": "Senior Backend Engineer",
    "previous_job_titles": ["Backend Engineer", "Senior Backend Engineer"],
    "companies_worked_at": ["RetailCo", "FinPay"],
    "employment_type": "", "availability": ""
  },
  "skills_and_tools": {
    "skills": ["Go", "PostgreSQL", "Kafka", "Docker"],
    "skill_categories": {}, "tools_technologies": ["Docker"]
  },
  "education_and_certifications": {
    "education": ["Bachelor of Computer Science, Monash University"],
    "degree_level": ["Bachelor"], "certifications": []
  },
  "additional_info": {
    "summary_statement": "Senior Backend Engineer with 8 years building payment systems.",
    "languages_spoken": []
  }
}

接下来你将收到一份脱敏后的简历文本，请对其进行抽取。`

// profileRequiredFields 响应JSON必须具备的顶层结构
var profileRequiredFields = []string{
	"personal_info",
	"work_experience",
	"skills_and_tools",
	"education_and_certifications",
	"additional_info",
}

// ProfileExtractor 从匿名化简历文本中抽取结构化候选人画像
type ProfileExtractor struct {
	client *Client
	logger zerolog.Logger
}

// NewProfileExtractor 创建画像抽取器
func NewProfileExtractor(client *Client) *ProfileExtractor {
	return &ProfileExtractor{
		client: client,
		logger: logger.Component("profile_extractor"),
	}
}

// Extract 对匿名化文本执行画像抽取
// 重试耗尽或响应结构不合法时返回错误，画像抽取失败对单份文档是致命的
func (e *ProfileExtractor) Extract(ctx context.Context, documentID string, anonymizedText string) (types.CandidateProfile, error) {
	jsonStr, err := e.client.CompleteJSON(ctx, "profile_extract", profileSystemPrompt, anonymizedText)
	if err != nil {
		return types.CandidateProfile{}, processor.NewExternalServiceError(documentID, "profile_extract", err.Error())
	}

	if err := RequireFields(jsonStr, profileRequiredFields...); err != nil {
		return types.CandidateProfile{}, processor.NewSchemaValidationError(documentID, "profile_extract", err.Error())
	}

	var profile types.CandidateProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		return types.CandidateProfile{}, processor.NewSchemaValidationError(documentID, "profile_extract", err.Error())
	}
	profile.Normalize()

	e.logger.Debug().
		Str("document_id", documentID).
		Float64("total_years", profile.WorkExperience.TotalYearsExperience).
		Int("skill_count", len(profile.SkillsAndTools.Skills)).
		Msg("画像抽取完成")

	return profile, nil
}

package types

import "strings"

// 占位符常量，匿名化后文本中PII的固定替换形式
const (
	PlaceholderName    = "[NAME]"
	PlaceholderEmail   = "[EMAIL]"
	PlaceholderPhone   = "[PHONE]"
	PlaceholderAddress = "[ADDRESS]"
)

// RawDocument 摄取入口的原始文档，仅在流水线内部短暂存在
type RawDocument struct {
	Content  []byte // 文件原始字节
	Filename string // 上传时的文件名
	Ext      string // 声明的扩展名（含点，如 ".pdf"）
}

// GeoLocation 结构化的地理位置
type GeoLocation struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// PIIRecord 从文档中抽取出的个人身份信息
// 每份文档生成一次，创建后不再修改，与主档案分表存储
type PIIRecord struct {
	FullName string      `json:"full_name,omitempty"`
	Email    string      `json:"email,omitempty"`
	Phone    string      `json:"phone,omitempty"`
	Address  string      `json:"address,omitempty"`
	Location GeoLocation `json:"location"`
}

// IsEmpty 四个直接字段均为空时为真（检测失败的安全默认值）
func (p PIIRecord) IsEmpty() bool {
	return p.FullName == "" && p.Email == "" && p.Phone == "" && p.Address == ""
}

// PersonalInfo 候选人基本信息
// 进入档案的姓名/邮箱/电话只会是占位符字面量，真实PII只存在于PIIRecord
type PersonalInfo struct {
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Location    string `json:"location,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
}

// LocationString 拼出完整位置串 "城市, 州, 国家"，空字段跳过
func (p PersonalInfo) LocationString() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Location, p.State, p.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// WorkExperience 工作经历汇总
type WorkExperience struct {
	// TotalYearsExperience 总工作年限，0 表示未知
	TotalYearsExperience  float64  `json:"total_years_experience"`
	CurrentOrLastJobTitle string   `json:"current_or_last_job_title,omitempty"`
	PreviousJobTitles     []string `json:"previous_job_titles"`
	CompaniesWorkedAt     []string `json:"companies_worked_at"`
	EmploymentType        string   `json:"employment_type,omitempty"`
	Availability          string   `json:"availability,omitempty"`
}

// SkillsAndTools 技能与工具
type SkillsAndTools struct {
	Skills            []string            `json:"skills"`
	SkillCategories   map[string][]string `json:"skill_categories"`
	ToolsTechnologies []string            `json:"tools_technologies"`
}

// EducationAndCertifications 教育与认证
type EducationAndCertifications struct {
	Education      []string `json:"education"`
	DegreeLevel    []string `json:"degree_level"`
	Certifications []string `json:"certifications"`
}

// AdditionalInfo 附加信息
type AdditionalInfo struct {
	SummaryStatement string   `json:"summary_statement,omitempty"`
	LanguagesSpoken  []string `json:"languages_spoken"`
}

// CandidateProfile 结构化候选人档案，由LLM从匿名化文本中抽取
type CandidateProfile struct {
	PersonalInfo               PersonalInfo               `json:"personal_info"`
	WorkExperience             WorkExperience             `json:"work_experience"`
	SkillsAndTools             SkillsAndTools             `json:"skills_and_tools"`
	EducationAndCertifications EducationAndCertifications `json:"education_and_certifications"`
	AdditionalInfo             AdditionalInfo             `json:"additional_info"`
}

// Normalize 在反序列化边界统一填充默认值
// 列表字段一律补为空切片而不是nil，后续逻辑不再逐处判空
func (p *CandidateProfile) Normalize() {
	if p.WorkExperience.PreviousJobTitles == nil {
		p.WorkExperience.PreviousJobTitles = []string{}
	}
	if p.WorkExperience.CompaniesWorkedAt == nil {
		p.WorkExperience.CompaniesWorkedAt = []string{}
	}
	if p.WorkExperience.TotalYearsExperience < 0 {
		p.WorkExperience.TotalYearsExperience = 0
	}
	if p.SkillsAndTools.Skills == nil {
		p.SkillsAndTools.Skills = []string{}
	}
	if p.SkillsAndTools.SkillCategories == nil {
		p.SkillsAndTools.SkillCategories = map[string][]string{}
	}
	if p.SkillsAndTools.ToolsTechnologies == nil {
		p.SkillsAndTools.ToolsTechnologies = []string{}
	}
	if p.EducationAndCertifications.Education == nil {
		p.EducationAndCertifications.Education = []string{}
	}
	if p.EducationAndCertifications.DegreeLevel == nil {
		p.EducationAndCertifications.DegreeLevel = []string{}
	}
	if p.EducationAndCertifications.Certifications == nil {
		p.EducationAndCertifications.Certifications = []string{}
	}
	if p.AdditionalInfo.LanguagesSpoken == nil {
		p.AdditionalInfo.LanguagesSpoken = []string{}
	}
}

// RiskAssessment 简历风险评估结果
// issues[0] 固定为 "Risk Level: <级别> (<分数>/10)" 汇总行
// 整体替换，从不原地修改
type RiskAssessment struct {
	RiskScore int      `json:"risk_score"`
	Issues    []string `json:"issues"`
}

// SearchFilter 自然语言查询抽取出的结构化检索条件
// 每次新查询整体替换，不与上一次合并
type SearchFilter struct {
	Role            string   `json:"role,omitempty"`
	RelatedRoles    []string `json:"related_roles"`
	RelatedKeywords []string `json:"related_keywords"`
	Location        string   `json:"location,omitempty"`
	RequiredSkills  []string `json:"required_skills"`
	// ExperienceYearsMin 最低年限要求，0 表示未指定
	ExperienceYearsMin float64 `json:"experience_years_min,omitempty"`
}

// Normalize 填充列表默认值
func (f *SearchFilter) Normalize() {
	if f.RelatedRoles == nil {
		f.RelatedRoles = []string{}
	}
	if f.RelatedKeywords == nil {
		f.RelatedKeywords = []string{}
	}
	if f.RequiredSkills == nil {
		f.RequiredSkills = []string{}
	}
	if f.ExperienceYearsMin < 0 {
		f.ExperienceYearsMin = 0
	}
}

// OutreachSource 外联消息的产生来源
type OutreachSource string

const (
	// OutreachSourceLLM 由LLM生成
	OutreachSourceLLM OutreachSource = "llm"
	// OutreachSourceFallback LLM失败后的模板兜底
	OutreachSourceFallback OutreachSource = "fallback"
	// OutreachSourceCache 缓存命中
	OutreachSourceCache OutreachSource = "cache"
)

// OutreachResult 单个候选人的外联生成结果
// ScreeningQuestions 恒为3条
type OutreachResult struct {
	OutreachMessage    string         `json:"outreach_message"`
	ScreeningQuestions []string       `json:"screening_questions"`
	Source             OutreachSource `json:"source,omitempty"`
}

// CandidateRecord 持久层回读的候选人完整记录
type CandidateRecord struct {
	CandidateID string           `json:"candidate_id"`
	Profile     CandidateProfile `json:"profile"`
	Risk        RiskAssessment   `json:"risk"`
	SearchBlob  string           `json:"-"`
}

// IngestResult 单份文档走完流水线后的产出
type IngestResult struct {
	CandidateID string           `json:"candidate_id"`
	Filename    string           `json:"filename"`
	Profile     CandidateProfile `json:"profile"`
	PII         PIIRecord        `json:"-"`
	Risk        RiskAssessment   `json:"risk"`
	ObjectKey   string           `json:"object_key,omitempty"`
	TextMD5     string           `json:"text_md5"`
	FromCache   bool             `json:"from_cache"`
}

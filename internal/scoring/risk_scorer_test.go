package scoring

import (
	"regexp"
	"strings"
	"testing"

	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeProfile 构造一份不触发任何规则的完整画像
func completeProfile() types.CandidateProfile {
	return types.CandidateProfile{
		PersonalInfo: types.PersonalInfo{
			FullName: types.PlaceholderName,
			Email:    types.PlaceholderEmail,
			Phone:    types.PlaceholderPhone,
			Location: "Melbourne",
		},
		WorkExperience: types.WorkExperience{
			TotalYearsExperience:  10,
			CurrentOrLastJobTitle: "Senior Software Engineer",
			PreviousJobTitles:     []string{"Software Engineer", "Senior Software Engineer"},
			CompaniesWorkedAt:     []string{"Acme Corp", "Globex"},
		},
		SkillsAndTools: types.SkillsAndTools{
			Skills: []string{"Go", "Python", "SQL", "Docker", "Kubernetes", "AWS", "Kafka", "Redis", "MySQL", "gRPC", "Terraform", "Linux"},
		},
		EducationAndCertifications: types.EducationAndCertifications{
			Education:   []string{"Bachelor of Science in Computer Science"},
			DegreeLevel: []string{"Bachelor"},
		},
		AdditionalInfo: types.AdditionalInfo{
			SummaryStatement: "Seasoned backend engineer with ten years of experience designing and operating distributed systems for large retail platforms.",
		},
	}
}

func TestScoreCompleteProfileIsLowRisk(t *testing.T) {
	scorer := NewRiskScorer()

	result := scorer.Score(completeProfile())

	assert.Equal(t, 0, result.RiskScore, "完整画像不应累计任何罚分")
	require.Len(t, result.Issues, 1, "除级别行外不应有任何问题条目")
	assert.Equal(t, "Risk Level: Low (0/10)", result.Issues[0])
}

func TestScoreEmptyProfile(t *testing.T) {
	scorer := NewRiskScorer()

	// 空画像只触发关键信息缺失和总结信息不足两条规则
	result := scorer.Score(types.CandidateProfile{})

	assert.Equal(t, 2, result.RiskScore)
	require.Len(t, result.Issues, 3)
	assert.Equal(t, "Risk Level: Low (2/10)", result.Issues[0])
	assert.Equal(t, "Missing key information: email, phone, location, education", result.Issues[1], "缺失字段应合并为一条并按固定顺序命名")
	assert.Contains(t, result.Issues[2], "summary")
}

func TestScoreLevelLineFormat(t *testing.T) {
	scorer := NewRiskScorer()
	levelLine := regexp.MustCompile(`^Risk Level: (Low|Medium|High|Very High) \(\d+/10\)$`)

	profiles := []types.CandidateProfile{
		{},
		completeProfile(),
		{
			WorkExperience: types.WorkExperience{
				TotalYearsExperience:  2,
				CurrentOrLastJobTitle: "Junior Developer",
				PreviousJobTitles:     []string{"Senior Developer", "Senior Developer", "Developer"},
				CompaniesWorkedAt:     []string{"A", "B", "C", "D"},
			},
			SkillsAndTools: types.SkillsAndTools{
				Skills: []string{"Go", "Python", "SQL", "Docker", "Kubernetes", "AWS", "Kafka"},
			},
			EducationAndCertifications: types.EducationAndCertifications{
				DegreeLevel: []string{"PhD"},
			},
		},
	}

	for _, profile := range profiles {
		result := scorer.Score(profile)

		assert.GreaterOrEqual(t, result.RiskScore, 0)
		assert.LessOrEqual(t, result.RiskScore, 10)
		require.NotEmpty(t, result.Issues)
		assert.Regexp(t, levelLine, result.Issues[0], "首条问题必须是标准格式的级别行")
	}
}

func TestScoreWorstCaseHitsAllRules(t *testing.T) {
	scorer := NewRiskScorer()

	// 逐条对应8条规则：信息缺失、职位重复、技能密度、频繁跳槽、职级倒退、总结缺失、学历错配、晋升过快
	profile := types.CandidateProfile{
		WorkExperience: types.WorkExperience{
			TotalYearsExperience:  2,
			CurrentOrLastJobTitle: "Junior Architect",
			PreviousJobTitles:     []string{"Senior Developer", "Senior Developer", "Developer"},
			CompaniesWorkedAt:     []string{"A", "B", "C", "D"},
		},
		SkillsAndTools: types.SkillsAndTools{
			Skills: []string{"Go", "Python", "SQL", "Docker", "Kubernetes", "AWS", "Kafka"},
		},
		EducationAndCertifications: types.EducationAndCertifications{
			DegreeLevel: []string{"PhD"},
		},
	}

	result := scorer.Score(profile)

	assert.Equal(t, 10, result.RiskScore)
	assert.Equal(t, "Risk Level: Very High (10/10)", result.Issues[0])
	assert.Len(t, result.Issues, 9, "级别行加8条规则各一条")
}

func TestScoreSeniorToNonSeniorWithoutSummary(t *testing.T) {
	scorer := NewRiskScorer()

	// 历史职位从Senior Engineer回落到Engineer，且没有个人总结
	profile := types.CandidateProfile{
		WorkExperience: types.WorkExperience{
			TotalYearsExperience:  6,
			CurrentOrLastJobTitle: "Engineer",
			PreviousJobTitles:     []string{"Senior Engineer", "Engineer"},
			CompaniesWorkedAt:     []string{"Acme Corp"},
		},
	}

	result := scorer.Score(profile)

	assert.GreaterOrEqual(t, result.RiskScore, 3, "职级倒退、信息缺失、总结缺失至少累计3分")
	assert.Equal(t, 3, result.RiskScore)
	require.GreaterOrEqual(t, len(result.Issues), 4)
	assert.Equal(t, "Risk Level: Medium (3/10)", result.Issues[0])
	assert.Contains(t, result.Issues[2], "Inconsistent title progression")
}

func TestScoreDuplicateTitleNeverDecreasesScore(t *testing.T) {
	scorer := NewRiskScorer()

	tests := []struct {
		name    string
		profile types.CandidateProfile
	}{
		{
			name:    "完整画像追加重复职位",
			profile: completeProfile(),
		},
		{
			name: "倒退画像追加重复的Senior职位会抹掉倒退罚分",
			profile: types.CandidateProfile{
				WorkExperience: types.WorkExperience{
					TotalYearsExperience: 6,
					PreviousJobTitles:    []string{"Senior Engineer", "Engineer"},
				},
			},
		},
		{
			name: "年限未知的画像",
			profile: types.CandidateProfile{
				WorkExperience: types.WorkExperience{
					PreviousJobTitles: []string{"Developer", "Lead Developer"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := scorer.Score(tt.profile)

			for _, dup := range tt.profile.WorkExperience.PreviousJobTitles {
				mutated := tt.profile
				mutated.WorkExperience.PreviousJobTitles = append(
					append([]string{}, tt.profile.WorkExperience.PreviousJobTitles...), dup)

				after := scorer.Score(mutated)
				assert.GreaterOrEqual(t, after.RiskScore, before.RiskScore,
					"追加重复职位 %q 后分数不应下降", dup)
			}
		})
	}
}

func TestScoreIndividualRules(t *testing.T) {
	scorer := NewRiskScorer()

	tests := []struct {
		name          string
		mutate        func(*types.CandidateProfile)
		wantScore     int
		wantSubstring string
	}{
		{
			name: "缺失邮箱",
			mutate: func(p *types.CandidateProfile) {
				p.PersonalInfo.Email = ""
			},
			wantScore:     1,
			wantSubstring: "email",
		},
		{
			name: "缺失多个字段仍只算一条",
			mutate: func(p *types.CandidateProfile) {
				p.PersonalInfo.Email = ""
				p.PersonalInfo.Phone = ""
			},
			wantScore:     1,
			wantSubstring: "email, phone",
		},
		{
			name: "教育经历为空",
			mutate: func(p *types.CandidateProfile) {
				p.EducationAndCertifications.Education = nil
			},
			wantScore:     1,
			wantSubstring: "education",
		},
		{
			name: "历史职位重复",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.PreviousJobTitles = []string{"Senior Software Engineer", "Senior Software Engineer"}
			},
			wantScore:     2,
			wantSubstring: "Overlapping roles",
		},
		{
			name: "技能密度过高",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 2
			},
			wantScore:     1,
			wantSubstring: "skill density",
		},
		{
			name: "频繁跳槽",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 4
				p.WorkExperience.CompaniesWorkedAt = []string{"A", "B", "C", "D", "E"}
				p.SkillsAndTools.Skills = []string{"Go", "SQL"}
			},
			wantScore:     2,
			wantSubstring: "short stints",
		},
		{
			name: "职级倒退",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.PreviousJobTitles = []string{"Senior Engineer", "Engineer"}
			},
			wantScore:     1,
			wantSubstring: "Inconsistent title progression",
		},
		{
			name: "总结不足100字符",
			mutate: func(p *types.CandidateProfile) {
				p.AdditionalInfo.SummaryStatement = strings.Repeat("a", 99)
			},
			wantScore:     1,
			wantSubstring: "summary",
		},
		{
			name: "博士学历配初级职位",
			mutate: func(p *types.CandidateProfile) {
				p.EducationAndCertifications.DegreeLevel = []string{"PhD"}
				p.WorkExperience.CurrentOrLastJobTitle = "Junior Engineer"
			},
			wantScore:     1,
			wantSubstring: "Education-job mismatch",
		},
		{
			name: "晋升过快",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 2
				p.WorkExperience.PreviousJobTitles = []string{"Engineer", "Lead Engineer", "Senior Engineer"}
				p.SkillsAndTools.Skills = []string{"Go", "SQL"}
			},
			wantScore:     1,
			wantSubstring: "Rapid progression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := completeProfile()
			tt.mutate(&profile)

			result := scorer.Score(profile)

			assert.Equal(t, tt.wantScore, result.RiskScore)
			require.Len(t, result.Issues, 2, "应恰好触发一条规则")
			assert.Contains(t, result.Issues[1], tt.wantSubstring)
		})
	}
}

func TestScoreRuleBoundaries(t *testing.T) {
	scorer := NewRiskScorer()

	tests := []struct {
		name      string
		mutate    func(*types.CandidateProfile)
		wantScore int
	}{
		{
			name: "年均技能数恰好为3不触发",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 4
				p.SkillsAndTools.Skills = p.SkillsAndTools.Skills[:12]
			},
			wantScore: 0,
		},
		{
			name: "年限未知时技能密度规则不触发",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 0
				p.SkillsAndTools.Skills = append(p.SkillsAndTools.Skills, "Rust", "C++", "Java", "Scala")
			},
			wantScore: 0,
		},
		{
			name: "恰好3家公司不触发跳槽规则",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 4
				p.WorkExperience.CompaniesWorkedAt = []string{"A", "B", "C"}
				p.SkillsAndTools.Skills = []string{"Go", "SQL"}
			},
			wantScore: 0,
		},
		{
			name: "重复公司名按去重后数量计算",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.TotalYearsExperience = 4
				p.WorkExperience.CompaniesWorkedAt = []string{"A", "A", "B", "C", "D"}
				p.SkillsAndTools.Skills = []string{"Go", "SQL"}
			},
			wantScore: 2,
		},
		{
			name: "年限超过5年时多家公司不触发",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.CompaniesWorkedAt = []string{"A", "B", "C", "D", "E"}
			},
			wantScore: 0,
		},
		{
			name: "总结恰好100字符不触发",
			mutate: func(p *types.CandidateProfile) {
				p.AdditionalInfo.SummaryStatement = strings.Repeat("a", 100)
			},
			wantScore: 0,
		},
		{
			name: "硕士学历配初级职位不触发错配",
			mutate: func(p *types.CandidateProfile) {
				p.EducationAndCertifications.DegreeLevel = []string{"Master"}
				p.WorkExperience.CurrentOrLastJobTitle = "Junior Engineer"
			},
			wantScore: 0,
		},
		{
			name: "博士学历配高级职位不触发错配",
			mutate: func(p *types.CandidateProfile) {
				p.EducationAndCertifications.DegreeLevel = []string{"Doctorate"}
				p.WorkExperience.CurrentOrLastJobTitle = "Staff Engineer"
			},
			wantScore: 0,
		},
		{
			name: "最后一个历史职位含Senior不算倒退",
			mutate: func(p *types.CandidateProfile) {
				p.WorkExperience.PreviousJobTitles = []string{"Senior Engineer", "Engineer", "Senior Staff Engineer"}
			},
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := completeProfile()
			tt.mutate(&profile)

			result := scorer.Score(profile)
			assert.Equal(t, tt.wantScore, result.RiskScore)
		})
	}
}

func TestScoreIssuesFollowRuleOrder(t *testing.T) {
	scorer := NewRiskScorer()

	profile := completeProfile()
	profile.WorkExperience.PreviousJobTitles = []string{"Developer", "Developer"}
	profile.AdditionalInfo.SummaryStatement = ""

	result := scorer.Score(profile)

	require.Len(t, result.Issues, 3)
	assert.Contains(t, result.Issues[1], "Overlapping roles", "问题条目应按规则评估顺序排列")
	assert.Contains(t, result.Issues[2], "summary")
}

func TestScoreLevelMapping(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "Low"},
		{2, "Low"},
		{3, "Medium"},
		{5, "Medium"},
		{6, "High"},
		{8, "High"},
		{9, "Very High"},
		{10, "Very High"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, riskLevel(tt.score), "分数 %d 的级别映射错误", tt.score)
	}
}

// Package scoring 对候选人画像做确定性的风险启发式评分
package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

// 各档风险级别的分数上界
const (
	lowMax    = 2
	mediumMax = 5
	highMax   = 8
)

// RiskScorer 基于规则的风险评分器
// 纯函数式评估，规则按固定顺序累加罚分，任何内部异常都降级为零分结果
type RiskScorer struct {
	logger zerolog.Logger
}

// NewRiskScorer 创建风险评分器
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{
		logger: logger.Component("risk_scorer"),
	}
}

// Score 对画像评分并产出问题列表
// issues[0] 固定为风险级别行，后续条目按规则评估顺序排列
func (s *RiskScorer) Score(profile types.CandidateProfile) (result types.RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("风险评分内部失败，返回零分结果")
			result = types.RiskAssessment{
				RiskScore: 0,
				Issues:    []string{"Error calculating risk score"},
			}
		}
	}()

	score := 0
	var issues []string

	// 1. 关键信息缺失 (+1)：邮箱/电话/位置/教育经历任一缺失，合并为一条问题
	if missing := missingKeyInfo(profile); len(missing) > 0 {
		score++
		issues = append(issues, "Missing key information: "+strings.Join(missing, ", "))
	}

	// 2. 职位重叠 (+2)：历史职位存在重复条目
	if hasDuplicates(profile.WorkExperience.PreviousJobTitles) {
		score += 2
		issues = append(issues, "Overlapping roles: duplicate titles in work history")
	}

	// 3. 技能密度失真 (+1)：年均技能数超过3
	years := profile.WorkExperience.TotalYearsExperience
	skillCount := len(profile.SkillsAndTools.Skills)
	if years > 0 && float64(skillCount)/years > 3 {
		score++
		issues = append(issues, fmt.Sprintf("Unrealistic skill density: %d skills across %.1f years", skillCount, years))
	}

	// 4. 频繁跳槽 (+2)：超过3家公司且总年限不足5年（或未知）
	companies := distinctCount(profile.WorkExperience.CompaniesWorkedAt)
	if companies > 3 && years < 5 {
		score += 2
		issues = append(issues, fmt.Sprintf("Multiple short stints across %d companies", companies))
	}

	// 5. 职级倒退 (+1)：更早的职位含senior而最后一个历史职位不含
	if hasTitleRegression(profile.WorkExperience.PreviousJobTitles) {
		score++
		issues = append(issues, "Inconsistent title progression: senior role followed by non-senior title")
	}

	// 6. 信息量不足 (+1)：个人总结缺失或不足100字符
	if utf8.RuneCountInString(profile.AdditionalInfo.SummaryStatement) < 100 {
		score++
		issues = append(issues, "Insufficient detail in summary statement")
	}

	// 7. 学历与职级不匹配 (+1)：博士学历配初级职位
	if hasEducationJobMismatch(profile) {
		score++
		issues = append(issues, "Education-job mismatch: advanced degree with junior-level title")
	}

	// 8. 晋升过快 (+1)：超过2个历史职位且总年限不足3年（或未知）
	if len(profile.WorkExperience.PreviousJobTitles) > 2 && years < 3 {
		score++
		issues = append(issues, fmt.Sprintf("Rapid progression: %d previous titles in a short period", len(profile.WorkExperience.PreviousJobTitles)))
	}

	level := riskLevel(score)
	issues = append([]string{fmt.Sprintf("Risk Level: %s (%d/10)", level, score)}, issues...)

	s.logger.Debug().Int("score", score).Str("level", level).Int("issue_count", len(issues)-1).Msg("风险评分完成")

	return types.RiskAssessment{
		RiskScore: score,
		Issues:    issues,
	}
}

// missingKeyInfo 收集缺失的关键字段名
func missingKeyInfo(profile types.CandidateProfile) []string {
	var missing []string
	if profile.PersonalInfo.Email == "" {
		missing = append(missing, "email")
	}
	if profile.PersonalInfo.Phone == "" {
		missing = append(missing, "phone")
	}
	if profile.PersonalInfo.Location == "" {
		missing = append(missing, "location")
	}
	if len(profile.EducationAndCertifications.Education) == 0 {
		missing = append(missing, "education")
	}
	return missing
}

func hasDuplicates(items []string) bool {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			return true
		}
		seen[item] = struct{}{}
	}
	return false
}

func distinctCount(items []string) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item] = struct{}{}
	}
	return len(seen)
}

// hasTitleRegression 检查最后一个历史职位之前是否出现过senior头衔
func hasTitleRegression(titles []string) bool {
	if len(titles) < 2 {
		return false
	}
	final := strings.ToLower(titles[len(titles)-1])
	if strings.Contains(final, "senior") {
		return false
	}
	for _, title := range titles[:len(titles)-1] {
		if strings.Contains(strings.ToLower(title), "senior") {
			return true
		}
	}
	return false
}

// hasEducationJobMismatch 博士学历但当前职位是初级头衔
func hasEducationJobMismatch(profile types.CandidateProfile) bool {
	advanced := false
	for _, degree := range profile.EducationAndCertifications.DegreeLevel {
		lower := strings.ToLower(degree)
		if strings.Contains(lower, "phd") || strings.Contains(lower, "doctorate") {
			advanced = true
			break
		}
	}
	if !advanced {
		return false
	}

	title := strings.ToLower(profile.WorkExperience.CurrentOrLastJobTitle)
	for _, marker := range []string{"junior", "entry", "associate", "trainee"} {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

func riskLevel(score int) string {
	switch {
	case score <= lowMax:
		return "Low"
	case score <= mediumMax:
		return "Medium"
	case score <= highMax:
		return "High"
	default:
		return "Very High"
	}
}

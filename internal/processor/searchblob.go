package processor

import (
	"sort"
	"strings"

	"recruit-agent-go/internal/types"
)

// BuildSearchBlob 把画像压成管道分隔的小写检索blob，入库时预计算。
// 包含当前职位、历史职位、技能、工具和技能分类，顺序固定、完全去重，
// 检索侧按这一格式做子串和管道词元匹配。
func BuildSearchBlob(profile types.CandidateProfile) string {
	raw := make([]string, 0, 16)
	if profile.WorkExperience.CurrentOrLastJobTitle != "" {
		raw = append(raw, profile.WorkExperience.CurrentOrLastJobTitle)
	}
	raw = append(raw, profile.WorkExperience.PreviousJobTitles...)
	raw = append(raw, profile.SkillsAndTools.Skills...)
	raw = append(raw, profile.SkillsAndTools.ToolsTechnologies...)

	categories := make([]string, 0, len(profile.SkillsAndTools.SkillCategories))
	for category := range profile.SkillsAndTools.SkillCategories {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		raw = append(raw, category)
		raw = append(raw, profile.SkillsAndTools.SkillCategories[category]...)
	}

	seen := make(map[string]struct{}, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, item := range raw {
		lower := strings.ToLower(strings.TrimSpace(item))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		tokens = append(tokens, lower)
	}
	return strings.Join(tokens, "|")
}

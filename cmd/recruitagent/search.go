package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/search"

	"github.com/spf13/pflag"
)

// 检索命令的命令行参数
var (
	searchQuery = pflag.String("search-query", "", "自然语言检索查询 (必填)")
	searchTopN  = pflag.Int("search-top", 5, "参与LLM相关性评分的候选人数量上限")
	searchJSON  = pflag.Bool("search-json", false, "以JSON格式输出结果")
)

// handleSearchCommand 自然语言检索候选人
func handleSearchCommand(cfg *config.Config) {
	query := strings.TrimSpace(*searchQuery)
	if query == "" {
		fmt.Println("错误: 必须通过 -search-query 提供检索查询")
		pflag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Printf("初始化组件失败: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	fmt.Printf("解析检索条件: %s\n", query)
	filterExtractor := search.NewFilterExtractor(app.filterClient)
	filter, err := filterExtractor.Extract(ctx, query)
	if err != nil {
		fmt.Printf("检索条件抽取失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("结构化条件: 角色=%q, 相关角色=%v, 技能=%v, 地点=%q, 最低年限=%.1f\n",
		filter.Role, filter.RelatedRoles, filter.RequiredSkills, filter.Location, filter.ExperienceYearsMin)

	matcher := search.NewCandidateMatcher(app.storage.MySQL)
	records, err := matcher.Match(ctx, filter)
	if err != nil {
		fmt.Printf("候选人匹配失败: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("没有匹配的候选人。")
		return
	}

	fmt.Printf("匹配到 %d 位候选人, 对前 %d 位进行相关性评分...\n", len(records), *searchTopN)
	ranker := search.NewRanker(app.filterClient, search.WithTopN(*searchTopN))
	ranked := ranker.Rank(ctx, query, records)

	if *searchJSON {
		data, err := json.MarshalIndent(ranked, "", "  ")
		if err != nil {
			fmt.Printf("序列化检索结果失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println("\n===== 检索结果 =====")
	for i, rc := range ranked {
		profile := rc.Record.Profile
		fmt.Printf("[%d] %s  相关性 %d/10\n", i+1, rc.Record.CandidateID, rc.Score)
		fmt.Printf("    职位: %s  年限: %.1f  位置: %s\n",
			profile.WorkExperience.CurrentOrLastJobTitle,
			profile.WorkExperience.TotalYearsExperience,
			profile.PersonalInfo.LocationString())
		for _, reason := range rc.Reasoning {
			fmt.Printf("    - %s\n", reason)
		}
	}
}

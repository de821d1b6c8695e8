package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/processor"

	"github.com/spf13/pflag"
)

// 外联命令的命令行参数
var (
	outreachCandidate = pflag.String("outreach-candidate", "", "目标候选人ID (必填)")
	outreachQuery     = pflag.String("outreach-query", "", "招聘查询，用于定制消息内容 (必填)")
	outreachJSON      = pflag.Bool("outreach-json", false, "以JSON格式输出结果")
)

// handleOutreachCommand 为候选人生成外联消息和筛选问题
func handleOutreachCommand(cfg *config.Config) {
	candidateID := strings.TrimSpace(*outreachCandidate)
	query := strings.TrimSpace(*outreachQuery)
	if candidateID == "" || query == "" {
		fmt.Println("错误: 必须同时提供 -outreach-candidate 和 -outreach-query")
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

	record, err := app.storage.MySQL.GetCandidate(ctx, candidateID)
	if err != nil {
		fmt.Printf("加载候选人 %s 失败: %v\n", candidateID, err)
		os.Exit(1)
	}

	result, err := app.generator.Generate(ctx, record, query)
	if err != nil {
		if errors.Is(err, processor.ErrRateLimitExceeded) {
			fmt.Printf("候选人 %s 的外联频率已达上限, 请稍后重试: %v\n", candidateID, err)
		} else {
			fmt.Printf("生成外联消息失败: %v\n", err)
		}
		os.Exit(1)
	}

	// 审计日志失败不影响结果输出
	if err := app.storage.MySQL.LogOutreach(ctx, candidateID, query, result); err != nil {
		logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("记录外联审计日志失败")
	}

	if *outreachJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("序列化外联结果失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("消息来源: %s\n", result.Source)
	fmt.Println("\n===== 外联消息 =====")
	fmt.Println(result.OutreachMessage)
	fmt.Println("\n===== 筛选问题 =====")
	for i, question := range result.ScreeningQuestions {
		fmt.Printf("%d. %s\n", i+1, question)
	}
}

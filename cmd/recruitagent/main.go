package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var version = "1.0.0"

// 命令行参数定义
var (
	configPath  = pflag.StringP("config", "c", "", "配置文件路径，留空时在默认位置查找")
	envFile     = pflag.String("env", ".env", ".env文件路径，文件不存在时忽略")
	command     = pflag.String("cmd", "", "执行的命令: ingest=摄取文档, search=检索候选人, outreach=生成外联消息, init-config=生成示例配置")
	showVersion = pflag.Bool("version", false, "打印版本号后退出")
)

func main() {
	pflag.Parse()

	if *showVersion {
		fmt.Printf("recruitagent %s\n", version)
		return
	}

	// .env中的LLM_API_KEY等密钥在LoadConfig时覆盖配置文件取值
	if err := godotenv.Load(*envFile); err == nil {
		fmt.Printf("已从 %s 加载环境变量\n", *envFile)
	}

	// init-config 不依赖已有配置文件，先于配置加载处理
	if *command == "init-config" {
		handleInitConfigCommand()
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracerProvider(context.Background(), tracing.ProviderConfig{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("初始化链路追踪失败, 继续运行")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("链路追踪关闭失败")
				}
			}()
		}
	}

	// 根据命令执行不同的功能
	switch *command {
	case "ingest":
		handleIngestCommand(cfg)
	case "search":
		handleSearchCommand(cfg)
	case "outreach":
		handleOutreachCommand(cfg)
	default:
		fmt.Printf("错误: 未知命令 '%s'。支持的命令: ingest, search, outreach, init-config\n", *command)
		pflag.Usage()
		os.Exit(1)
	}
}

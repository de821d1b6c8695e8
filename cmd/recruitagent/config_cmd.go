package main

import (
	"fmt"
	"os"

	"recruit-agent-go/internal/config"

	"github.com/spf13/pflag"
)

// init-config命令的命令行参数
var initConfigPath = pflag.String("init-config-path", "config.yaml", "示例配置文件的写入路径")

// handleInitConfigCommand 生成一份带默认值的示例配置文件
func handleInitConfigCommand() {
	if err := config.CreateSampleConfig(*initConfigPath); err != nil {
		fmt.Printf("生成示例配置失败: %v\n", err)
		os.Exit(1)
	}
}

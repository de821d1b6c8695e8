package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/types"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// 摄取命令的命令行参数
var (
	ingestFiles  = pflag.StringSlice("ingest-file", nil, "要摄取的文档路径，可多次指定")
	ingestDir    = pflag.String("ingest-dir", "", "要批量摄取的目录，取其中的PDF和DOCX文件")
	ingestOutput = pflag.String("ingest-output", "", "摄取结果JSON的输出文件路径")
)

// ingestOutputItem 输出文件中单份文档的条目
type ingestOutputItem struct {
	Filename string              `json:"filename"`
	Result   *types.IngestResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleIngestCommand 摄取一份或一批文档
func handleIngestCommand(cfg *config.Config) {
	docs := collectDocuments()
	if len(docs) == 0 {
		fmt.Println("错误: 必须通过 -ingest-file 或 -ingest-dir 提供至少一份文档")
		pflag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Printf("初始化组件失败: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// 为本次运行生成批次ID，日志按它关联同一批文档
	batchID := uuid.NewString()
	logger.Info().Str("batch_id", batchID).Int("documents", len(docs)).Msg("开始批量摄取")
	fmt.Printf("开始摄取 %d 份文档 (批次 %s)...\n", len(docs), batchID)
	startTime := time.Now()

	items := app.pipeline.ProcessBatch(ctx, docs)

	succeeded := 0
	for _, item := range items {
		if item.Err != nil {
			fmt.Printf("[%d] %s: 失败: %v\n", item.Index+1, item.Filename, item.Err)
			continue
		}
		succeeded++
		marker := ""
		if item.Result.FromCache {
			marker = " (缓存命中)"
		}
		riskLine := ""
		if len(item.Result.Risk.Issues) > 0 {
			riskLine = item.Result.Risk.Issues[0]
		}
		fmt.Printf("[%d] %s: 候选人 %s, %s%s\n", item.Index+1, item.Filename, item.Result.CandidateID, riskLine, marker)
	}
	fmt.Printf("摄取完成! 成功 %d/%d, 耗时: %v\n", succeeded, len(items), time.Since(startTime))

	// 单份文档摄取成功时展开完整档案，PII字段不参与序列化
	if len(items) == 1 && items[0].Err == nil {
		if data, err := json.MarshalIndent(items[0].Result, "", "  "); err == nil {
			fmt.Println("\n===== 摄取结果 =====")
			fmt.Println(string(data))
		}
	}

	if *ingestOutput != "" {
		writeIngestOutput(items)
	}

	if succeeded == 0 {
		os.Exit(1)
	}
}

// collectDocuments 从命令行参数收集待摄取文档
func collectDocuments() []types.RawDocument {
	paths := make([]string, 0, len(*ingestFiles))
	paths = append(paths, *ingestFiles...)

	if *ingestDir != "" {
		entries, err := os.ReadDir(*ingestDir)
		if err != nil {
			fmt.Printf("读取目录 %s 失败: %v\n", *ingestDir, err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".pdf" && ext != ".docx" {
				continue
			}
			paths = append(paths, filepath.Join(*ingestDir, entry.Name()))
		}
	}

	docs := make([]types.RawDocument, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("读取文件 %s 失败: %v\n", path, err)
			os.Exit(1)
		}
		docs = append(docs, types.RawDocument{
			Content:  data,
			Filename: filepath.Base(path),
			Ext:      strings.ToLower(filepath.Ext(path)),
		})
	}
	return docs
}

// writeIngestOutput 把批量结果以JSON写入指定文件
func writeIngestOutput(items []processor.BatchItem) {
	output := make([]ingestOutputItem, 0, len(items))
	for _, item := range items {
		entry := ingestOutputItem{Filename: item.Filename}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		} else {
			result := item.Result
			entry.Result = &result
		}
		output = append(output, entry)
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Printf("序列化摄取结果失败: %v\n", err)
		return
	}
	if err := os.WriteFile(*ingestOutput, data, 0644); err != nil {
		fmt.Printf("保存结果到 %s 失败: %v\n", *ingestOutput, err)
		return
	}
	fmt.Printf("结果已保存到: %s\n", *ingestOutput)
}

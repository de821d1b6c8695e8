package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recruit-agent-go/internal/cache"
	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/outreach"
	"recruit-agent-go/internal/parser"
	"recruit-agent-go/internal/pii"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/scoring"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/pkg/chatmodel"
	"recruit-agent-go/pkg/ratelimit"
	"recruit-agent-go/pkg/retry"
)

// app 聚合各命令共享的组件，一次装配处处可用
type app struct {
	cfg          *config.Config
	storage      *storage.Storage
	cache        *cache.Tiered
	pipeline     *processor.Pipeline
	filterClient *llm.Client
	generator    *outreach.Generator
}

// newApp 按配置装配全部组件。
// MySQL不可用时直接失败；Redis和MinIO缺席按nil降级，
// 对应的去重、持久缓存和归档能力自动关闭。
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	// 进程内LRU + Redis的两级缓存，摄取结果和外联消息共用
	var durable cache.DurableBackend
	if storageManager.Redis != nil {
		durable = storageManager.Redis
	}
	tiered := cache.NewTiered(cache.NewLRU(cfg.Cache.LocalSize), durable)

	extractor, err := parser.NewDocumentTextExtractor(ctx, cfg)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("初始化文本提取器失败: %w", err)
	}

	detector, err := pii.NewDetector(cfg.PII)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("初始化PII检测器失败: %w", err)
	}

	profileClient, err := newTaskClient(cfg, "profile_extract", cfg.ProfileExtractor, 60*time.Second)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	components := processor.Components{
		Extractor:        extractor,
		Anonymizer:       pii.NewAnonymizer(detector),
		ProfileExtractor: llm.NewProfileExtractor(profileClient),
		Scorer:           scoring.NewRiskScorer(),
		Store:            storageManager.MySQL,
		Cache:            tiered,
	}
	// 可选组件只在具体实例存在时放进接口，避免带类型的nil穿透判空
	if storageManager.Redis != nil {
		components.Deduper = storageManager.Redis
	}
	if storageManager.MinIO != nil {
		components.Archiver = storageManager.MinIO
	}

	pipeline, err := processor.New(components,
		processor.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency),
		processor.WithDocumentTimeout(config.GetDuration(cfg.Pipeline.DocumentTimeout, 2*time.Minute)),
		processor.WithPhoneRegion(cfg.PII.PhoneRegion),
		processor.WithCacheTTL(time.Duration(cfg.Cache.ExtractionTTLDays)*24*time.Hour),
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("初始化摄取流水线失败: %w", err)
	}

	// 条件抽取和相关性评分共用同一个客户端
	filterClient, err := newTaskClient(cfg, "filter_extract", cfg.FilterExtractor, 30*time.Second)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	outreachClient, err := newTaskClient(cfg, "outreach_generate", cfg.Outreach.LLMTaskConfig, 30*time.Second)
	if err != nil {
		storageManager.Close()
		return nil, err
	}
	limiter := outreach.NewRateLimiter(
		cfg.Outreach.RateLimitPerCandidate,
		time.Duration(cfg.Outreach.RateWindowSeconds)*time.Second,
	)
	genOpts := []outreach.GeneratorOption{outreach.WithCache(tiered)}
	if cfg.Cache.OutreachTTLDays > 0 {
		genOpts = append(genOpts, outreach.WithCacheTTL(time.Duration(cfg.Cache.OutreachTTLDays)*24*time.Hour))
	}
	generator := outreach.NewGenerator(outreachClient, limiter, genOpts...)

	return &app{
		cfg:          cfg,
		storage:      storageManager,
		cache:        tiered,
		pipeline:     pipeline,
		filterClient: filterClient,
		generator:    generator,
	}, nil
}

// Close 释放所有存储连接
func (a *app) Close() {
	a.storage.Close()
}

// newTaskClient 按任务配置组装限流后的LLM客户端
func newTaskClient(cfg *config.Config, taskName string, task config.LLMTaskConfig, defaultTimeout time.Duration) (*llm.Client, error) {
	modelName := cfg.GetModelForTask(taskName)
	apiURL := strings.TrimRight(cfg.LLM.BaseURL, "/") + "/chat/completions"

	opts := []chatmodel.ModelOption{chatmodel.WithTemperature(task.Temperature)}
	if task.MaxTokens > 0 {
		opts = append(opts, chatmodel.WithMaxTokens(task.MaxTokens))
	}
	base, err := chatmodel.NewOpenAIChatModel(cfg.LLM.APIKey, modelName, apiURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建%s任务的聊天模型失败: %w", taskName, err)
	}

	throttled := ratelimit.Throttle(base, modelName, cfg.ModelQPMLimits, task.QPM)

	policy := retry.DefaultPolicy()
	if task.MaxRetries > 0 {
		policy.MaxAttempts = task.MaxRetries
	}
	if task.RetryWaitSeconds > 0 {
		policy.InitialInterval = time.Duration(task.RetryWaitSeconds) * time.Second
	}

	return llm.NewClient(throttled,
		llm.WithRetryPolicy(policy),
		llm.WithCallTimeout(config.GetDuration(task.Timeout, defaultTimeout)),
	), nil
}

// Package processor 实现文档摄取流水线：归档、提取、脱敏、画像抽取、
// 风险评分到落库的整条链路，以及按槽位返回的批量摄取。
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"recruit-agent-go/internal/constants"
	appLogger "recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/pii"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/tracing"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/pkg/utils"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("recruit-agent-go/processor")

// Pipeline 文档摄取流水线
type Pipeline struct {
	components Components
	settings   Settings
	logger     zerolog.Logger
}

// New 创建流水线实例，校验必需组件
func New(components Components, opts ...SettingOpt) (*Pipeline, error) {
	if components.Extractor == nil {
		return nil, fmt.Errorf("文本提取组件未初始化")
	}
	if components.Anonymizer == nil {
		return nil, fmt.Errorf("脱敏组件未初始化")
	}
	if components.ProfileExtractor == nil {
		return nil, fmt.Errorf("画像抽取组件未初始化")
	}
	if components.Scorer == nil {
		return nil, fmt.Errorf("风险评分组件未初始化")
	}
	if components.Store == nil {
		return nil, fmt.Errorf("持久化组件未初始化")
	}

	settings := defaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	return &Pipeline{
		components: components,
		settings:   settings,
		logger:     appLogger.Component("pipeline"),
	}, nil
}

// ProcessDocument 摄取单份文档并返回候选人档案。
// 流程：抽取缓存查询、原始字节归档、文本提取、内容去重、脱敏、
// LLM画像抽取、风险评分、检索blob构建、落库、结果写缓存。
// 画像抽取和落库失败对该文档致命；脱敏和评分内部兜底，从不致命。
func (p *Pipeline) ProcessDocument(ctx context.Context, doc types.RawDocument) (types.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.ProcessDocument")
	defer span.End()
	span.SetAttributes(
		// 文件名常含候选人姓名，掩码后再上报
		attribute.String("document.filename", tracing.SafeAttributeValue("document.filename", doc.Filename, tracing.DefaultMaxLength)),
		attribute.Int("document.size_bytes", len(doc.Content)),
	)

	if len(doc.Content) == 0 {
		err := NewExtractionError(doc.Filename, "文档内容为空")
		tracing.RecordError(span, err, spanErrorType(err))
		return types.IngestResult{}, err
	}

	// 同样的原始字节再次进来直接命中全流程结果，不再消耗LLM调用
	fileMD5 := utils.CalculateMD5(doc.Content)
	if cached, ok := p.lookupCachedResult(ctx, fileMD5); ok {
		cached.Filename = doc.Filename
		span.AddEvent("extraction cache hit")
		p.logger.Info().Str("filename", doc.Filename).Str("file_md5", fileMD5).Msg("摄取命中抽取缓存")
		return cached, nil
	}

	candidateID, err := newCandidateID()
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("生成候选人ID失败: %w", err)
	}

	// 原始字节先归档，后续阶段失败也不丢文档
	objectKey := ""
	if p.components.Archiver != nil {
		objectKey, err = p.components.Archiver.UploadOriginal(ctx, candidateID, doc.Ext, doc.Content)
		if err != nil {
			wrapped := NewObjectStoreError(doc.Filename, err.Error())
			tracing.RecordError(span, wrapped, spanErrorType(wrapped))
			return types.IngestResult{}, wrapped
		}
		span.AddEvent("original document archived")
	}

	text, err := p.components.Extractor.ExtractText(ctx, doc)
	if err != nil {
		tracing.RecordError(span, err, spanErrorType(err))
		return types.IngestResult{}, err
	}
	span.AddEvent("text extracted")

	textMD5 := utils.CalculateMD5([]byte(text))

	// 同样的文本换个文件名进来，直接复用已有候选人
	registered := false
	if p.components.Deduper != nil {
		exists, dedupErr := p.components.Deduper.CheckAndAddTextMD5(ctx, textMD5)
		if dedupErr != nil {
			p.logger.Warn().Err(dedupErr).Str("filename", doc.Filename).Msg("文本去重检查失败, 跳过去重继续处理")
		} else if exists {
			if result, ok := p.resolveDuplicate(ctx, doc, textMD5); ok {
				span.AddEvent("duplicate content short-circuited")
				return result, nil
			}
			// 集合有登记但主库无对应行，按新文档继续并在失败时回收登记
			registered = true
		} else {
			registered = true
		}
	}

	result, err := p.processExtractedText(ctx, doc, candidateID, fileMD5, textMD5, objectKey, text)
	if err != nil {
		if registered {
			p.compensateDedup(ctx, textMD5)
		}
		tracing.RecordError(span, err, spanErrorType(err))
		return types.IngestResult{}, err
	}

	span.SetAttributes(attribute.String("candidate.id", result.CandidateID))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// processExtractedText 承接提取文本之后的阶段：脱敏、文本归档、
// 画像抽取、评分、落库和结果缓存
func (p *Pipeline) processExtractedText(ctx context.Context, doc types.RawDocument, candidateID, fileMD5, textMD5, objectKey, text string) (types.IngestResult, error) {
	anonText, piiRecord := p.components.Anonymizer.Anonymize(text)

	textObjectKey := ""
	if p.components.Archiver != nil {
		var archiveErr error
		textObjectKey, archiveErr = p.components.Archiver.UploadExtractedText(ctx, candidateID, text)
		if archiveErr != nil {
			// 原始字节已落桶，文本归档失败不值得废掉整份文档
			p.logger.Warn().Err(archiveErr).Str("candidate_id", candidateID).Msg("提取文本归档失败")
			textObjectKey = ""
		}
	}

	profile, err := p.components.ProfileExtractor.Extract(ctx, candidateID, anonText)
	if err != nil {
		return types.IngestResult{}, err
	}

	risk := p.components.Scorer.Score(profile)
	blob := BuildSearchBlob(profile)

	payload := storage.CandidateUpsert{
		CandidateID:      candidateID,
		Profile:          profile,
		Risk:             risk,
		SearchBlob:       blob,
		PII:              piiRecord,
		PhoneE164:        pii.NormalizeE164(piiRecord.Phone, p.settings.PhoneRegion),
		OriginalFilename: doc.Filename,
		ObjectKey:        objectKey,
		TextObjectKey:    textObjectKey,
		TextMD5:          textMD5,
		PipelineVersion:  p.settings.PipelineVersion,
	}
	if err := p.components.Store.UpsertCandidate(ctx, payload); err != nil {
		return types.IngestResult{}, NewStorageError(candidateID, err.Error())
	}

	result := types.IngestResult{
		CandidateID: candidateID,
		Filename:    doc.Filename,
		Profile:     profile,
		PII:         piiRecord,
		Risk:        risk,
		ObjectKey:   objectKey,
		TextMD5:     textMD5,
	}
	p.storeCachedResult(ctx, fileMD5, result)

	p.logger.Info().
		Str("candidate_id", candidateID).
		Str("filename", doc.Filename).
		Int("risk_score", risk.RiskScore).
		Msg("文档摄取完成")
	return result, nil
}

// resolveDuplicate 把去重命中映射回已有候选人记录。
// 主库查不到对应行时返回false，调用方按新文档继续。
func (p *Pipeline) resolveDuplicate(ctx context.Context, doc types.RawDocument, textMD5 string) (types.IngestResult, bool) {
	existingID, found, err := p.components.Store.FindCandidateIDByTextMD5(ctx, textMD5)
	if err != nil {
		p.logger.Warn().Err(err).Str("filename", doc.Filename).Msg("按文本MD5回查候选人失败, 按新文档处理")
		return types.IngestResult{}, false
	}
	if !found {
		return types.IngestResult{}, false
	}

	record, err := p.components.Store.GetCandidate(ctx, existingID)
	if err != nil {
		p.logger.Warn().Err(err).Str("candidate_id", existingID).Msg("加载已有候选人失败, 按新文档处理")
		return types.IngestResult{}, false
	}

	p.logger.Info().Str("candidate_id", existingID).Str("filename", doc.Filename).Msg("内容重复, 复用已有候选人")
	return types.IngestResult{
		CandidateID: record.CandidateID,
		Filename:    doc.Filename,
		Profile:     record.Profile,
		Risk:        record.Risk,
		TextMD5:     textMD5,
		FromCache:   true,
	}, true
}

func (p *Pipeline) compensateDedup(ctx context.Context, textMD5 string) {
	if p.components.Deduper == nil {
		return
	}
	if err := p.components.Deduper.RemoveTextMD5(ctx, textMD5); err != nil {
		p.logger.Warn().Err(err).Str("text_md5", textMD5).Msg("回收去重登记失败, 该文档重试时可能被误判重复")
	}
}

func (p *Pipeline) lookupCachedResult(ctx context.Context, fileMD5 string) (types.IngestResult, bool) {
	if p.components.Cache == nil {
		return types.IngestResult{}, false
	}
	key := fmt.Sprintf(constants.KeyExtractionResult, fileMD5)
	data, ok := p.components.Cache.Get(ctx, key)
	if !ok {
		return types.IngestResult{}, false
	}

	var result types.IngestResult
	if err := json.Unmarshal(data, &result); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("抽取缓存内容损坏, 按未命中处理")
		return types.IngestResult{}, false
	}
	result.Profile.Normalize()
	result.FromCache = true
	return result, true
}

// storeCachedResult 把完整摄取结果写入缓存。
// IngestResult的PII字段不参与JSON序列化，缓存里不落原始PII。
func (p *Pipeline) storeCachedResult(ctx context.Context, fileMD5 string, result types.IngestResult) {
	if p.components.Cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		p.logger.Warn().Err(err).Str("candidate_id", result.CandidateID).Msg("序列化摄取结果失败, 跳过缓存")
		return
	}
	key := fmt.Sprintf(constants.KeyExtractionResult, fileMD5)
	p.components.Cache.Put(ctx, key, data, p.settings.CacheTTL)
}

func newCandidateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// BatchItem 批量摄取中单份文档的结果槽位，Err非nil时Result为零值
type BatchItem struct {
	Index    int
	Filename string
	Result   types.IngestResult
	Err      error
}

// ProcessBatch 并发摄取一批文档。
// 每份文档由单个worker端到端处理并套用独立时限；
// 单份失败只占用自己的槽位，不影响批内其他文档。
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []types.RawDocument) []BatchItem {
	ctx, span := tracer.Start(ctx, "Pipeline.ProcessBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(docs)))

	results := make([]BatchItem, len(docs))
	if len(docs) == 0 {
		return results
	}

	workers := p.workerCount(len(docs))
	span.SetAttributes(attribute.Int("batch.workers", workers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = p.processBatchItem(ctx, idx, docs[idx])
			}
		}()
	}

	for idx := range docs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, item := range results {
		if item.Err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("batch.failed", failed))
	p.logger.Info().Int("total", len(docs)).Int("failed", failed).Msg("批量摄取完成")
	return results
}

func (p *Pipeline) processBatchItem(ctx context.Context, idx int, doc types.RawDocument) BatchItem {
	docCtx := ctx
	if p.settings.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, p.settings.DocumentTimeout)
		defer cancel()
	}

	result, err := p.ProcessDocument(docCtx, doc)
	if err != nil {
		p.logger.Error().Err(err).Str("filename", doc.Filename).Msg("批量摄取中单份文档失败")
	}
	return BatchItem{Index: idx, Filename: doc.Filename, Result: result, Err: err}
}

// spanErrorType 把流水线错误映射到追踪用的错误类别
func spanErrorType(err error) tracing.ErrorType {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tracing.ErrorTypeTimeout
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrExtractionFailed):
		return tracing.ErrorTypeParse
	case errors.Is(err, ErrExternalServiceFailed):
		return tracing.ErrorTypeLLM
	case errors.Is(err, ErrStorageFailed):
		return tracing.ErrorTypeDB
	case errors.Is(err, ErrObjectStoreFailed):
		return tracing.ErrorTypeObjectStorage
	default:
		return tracing.ErrorTypeInternal
	}
}

// workerCount 推导批量并发度：显式配置优先，否则取
// min(批量大小, CPU核数)并收敛到[minBatchWorkers, maxBatchWorkers]
func (p *Pipeline) workerCount(batchSize int) int {
	if p.settings.MaxConcurrency > 0 {
		if p.settings.MaxConcurrency < batchSize {
			return p.settings.MaxConcurrency
		}
		return batchSize
	}

	workers := runtime.GOMAXPROCS(0)
	if batchSize < workers {
		workers = batchSize
	}
	if workers < minBatchWorkers {
		workers = minBatchWorkers
	}
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}
	return workers
}

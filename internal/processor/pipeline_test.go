package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"recruit-agent-go/internal/cache"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu      sync.Mutex
	text    string
	errFor  map[string]error // 按文件名返回错误
	calls   int
	lastDoc types.RawDocument
}

func (f *fakeExtractor) ExtractText(ctx context.Context, doc types.RawDocument) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastDoc = doc
	if err, ok := f.errFor[doc.Filename]; ok {
		return "", err
	}
	if f.text != "" {
		return f.text, nil
	}
	return "resume text for " + doc.Filename, nil
}

type fakeAnonymizer struct {
	record types.PIIRecord
}

// Anonymize 把record中的非空字段字面替换为占位符
func (f *fakeAnonymizer) Anonymize(text string) (string, types.PIIRecord) {
	out := text
	if f.record.FullName != "" {
		out = strings.ReplaceAll(out, f.record.FullName, types.PlaceholderName)
	}
	if f.record.Email != "" {
		out = strings.ReplaceAll(out, f.record.Email, types.PlaceholderEmail)
	}
	if f.record.Phone != "" {
		out = strings.ReplaceAll(out, f.record.Phone, types.PlaceholderPhone)
	}
	return out, f.record
}

type fakeProfileExtractor struct {
	mu       sync.Mutex
	profile  types.CandidateProfile
	err      error
	calls    int
	lastText string
}

func (f *fakeProfileExtractor) Extract(ctx context.Context, documentID string, anonymizedText string) (types.CandidateProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastText = anonymizedText
	if f.err != nil {
		return types.CandidateProfile{}, f.err
	}
	profile := f.profile
	profile.Normalize()
	return profile, nil
}

type fakeScorer struct {
	risk types.RiskAssessment
}

func (f *fakeScorer) Score(profile types.CandidateProfile) types.RiskAssessment {
	return f.risk
}

type fakeStore struct {
	mu        sync.Mutex
	upserts   []storage.CandidateUpsert
	upsertErr error
	byMD5     map[string]string
	records   map[string]types.CandidateRecord
}

func (f *fakeStore) UpsertCandidate(ctx context.Context, payload storage.CandidateUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, payload)
	return nil
}

func (f *fakeStore) FindCandidateIDByTextMD5(ctx context.Context, md5Hex string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byMD5[md5Hex]
	return id, ok, nil
}

func (f *fakeStore) GetCandidate(ctx context.Context, candidateID string) (types.CandidateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[candidateID]
	if !ok {
		return types.CandidateRecord{}, fmt.Errorf("%w: %s", storage.ErrCandidateNotFound, candidateID)
	}
	return record, nil
}

type fakeDeduper struct {
	mu       sync.Mutex
	existing map[string]bool
	checkErr error
	removed  []string
}

func (f *fakeDeduper) CheckAndAddTextMD5(ctx context.Context, md5Hex string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.existing[md5Hex] {
		return true, nil
	}
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[md5Hex] = true
	return false, nil
}

func (f *fakeDeduper) RemoveTextMD5(ctx context.Context, md5Hex string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, md5Hex)
	delete(f.existing, md5Hex)
	return nil
}

type fakeArchiver struct {
	mu            sync.Mutex
	originalErr   error
	textErr       error
	originalCalls int
}

func (f *fakeArchiver) UploadOriginal(ctx context.Context, candidateID, fileExt string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.originalCalls++
	if f.originalErr != nil {
		return "", f.originalErr
	}
	return "candidate/" + candidateID + "/original" + fileExt, nil
}

func (f *fakeArchiver) UploadExtractedText(ctx context.Context, candidateID string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return "", f.textErr
	}
	return "candidate/" + candidateID + "/extracted_text.txt", nil
}

func sampleProfile() types.CandidateProfile {
	profile := types.CandidateProfile{
		PersonalInfo: types.PersonalInfo{FullName: types.PlaceholderName},
		WorkExperience: types.WorkExperience{
			CurrentOrLastJobTitle: "Senior Engineer",
			TotalYearsExperience:  7,
		},
		SkillsAndTools: types.SkillsAndTools{Skills: []string{"Go", "SQL"}},
	}
	profile.Normalize()
	return profile
}

type pipelineFixture struct {
	extractor *fakeExtractor
	anonymous *fakeAnonymizer
	profiles  *fakeProfileExtractor
	store     *fakeStore
	deduper   *fakeDeduper
	archiver  *fakeArchiver
	cache     *cache.LRU
}

func newPipelineFixture() *pipelineFixture {
	return &pipelineFixture{
		extractor: &fakeExtractor{},
		anonymous: &fakeAnonymizer{
			record: types.PIIRecord{
				FullName: "John Smith",
				Email:    "john@example.com",
				Phone:    "+61 412 345 678",
				Location: types.GeoLocation{City: "Melbourne", State: "VIC", Country: "Australia"},
			},
		},
		profiles: &fakeProfileExtractor{profile: sampleProfile()},
		store: &fakeStore{
			byMD5:   map[string]string{},
			records: map[string]types.CandidateRecord{},
		},
		deduper:  &fakeDeduper{existing: map[string]bool{}},
		archiver: &fakeArchiver{},
		cache:    cache.NewLRU(64),
	}
}

func (fx *pipelineFixture) build(t *testing.T, opts ...SettingOpt) *Pipeline {
	t.Helper()
	p, err := New(Components{
		Extractor:        fx.extractor,
		Anonymizer:       fx.anonymous,
		ProfileExtractor: fx.profiles,
		Scorer:           &fakeScorer{risk: types.RiskAssessment{RiskScore: 2, Issues: []string{"Risk Level: Low 2/10"}}},
		Store:            fx.store,
		Deduper:          fx.deduper,
		Archiver:         fx.archiver,
		Cache:            fx.cache,
	}, opts...)
	require.NoError(t, err)
	return p
}

func sampleDoc(filename string) types.RawDocument {
	return types.RawDocument{
		Content:  []byte("%PDF-1.4 fake bytes for " + filename),
		Filename: filename,
		Ext:      ".pdf",
	}
}

func TestNewValidatesRequiredComponents(t *testing.T) {
	fx := newPipelineFixture()

	_, err := New(Components{})
	require.Error(t, err)

	_, err = New(Components{
		Extractor:        fx.extractor,
		Anonymizer:       fx.anonymous,
		ProfileExtractor: fx.profiles,
		Scorer:           &fakeScorer{},
	})
	require.Error(t, err, "缺少持久化组件时必须拒绝构建")

	_, err = New(Components{
		Extractor:        fx.extractor,
		Anonymizer:       fx.anonymous,
		ProfileExtractor: fx.profiles,
		Scorer:           &fakeScorer{},
		Store:            fx.store,
	})
	assert.NoError(t, err, "Deduper/Archiver/Cache可缺省")
}

func TestProcessDocumentSuccess(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.text = "John Smith, john@example.com, +61 412 345 678. Senior Engineer at Acme."
	p := fx.build(t)

	result, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.CandidateID)
	assert.Equal(t, "resume.pdf", result.Filename)
	assert.False(t, result.FromCache)
	assert.Equal(t, utils.CalculateMD5([]byte(fx.extractor.text)), result.TextMD5)
	assert.Contains(t, result.ObjectKey, "/original.pdf")
	assert.Equal(t, "John Smith", result.PII.FullName)

	// LLM只见得到脱敏后的文本
	assert.NotContains(t, fx.profiles.lastText, "John Smith")
	assert.NotContains(t, fx.profiles.lastText, "john@example.com")
	assert.Contains(t, fx.profiles.lastText, types.PlaceholderName)

	require.Len(t, fx.store.upserts, 1)
	payload := fx.store.upserts[0]
	assert.Equal(t, result.CandidateID, payload.CandidateID)
	assert.Equal(t, "senior engineer|go|sql", payload.SearchBlob)
	assert.Equal(t, "+61412345678", payload.PhoneE164, "电话按辖区规范化为E.164")
	assert.Equal(t, "John Smith", payload.PII.FullName)
	assert.NotEmpty(t, payload.TextObjectKey)
	assert.Equal(t, "1.0", payload.PipelineVersion)
}

func TestProcessDocumentEmptyContent(t *testing.T) {
	fx := newPipelineFixture()
	p := fx.build(t)

	_, err := p.ProcessDocument(context.Background(), types.RawDocument{Filename: "empty.pdf", Ext: ".pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, 0, fx.extractor.calls)
}

func TestProcessDocumentCachesWholeResult(t *testing.T) {
	fx := newPipelineFixture()
	p := fx.build(t)
	doc := sampleDoc("resume.pdf")

	first, err := p.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	// 同样的字节换个文件名，不再走提取和LLM
	again := doc
	again.Filename = "renamed.pdf"
	second, err := p.ProcessDocument(context.Background(), again)
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.CandidateID, second.CandidateID)
	assert.Equal(t, "renamed.pdf", second.Filename, "文件名反映本次请求")
	assert.Equal(t, 1, fx.extractor.calls)
	assert.Equal(t, 1, fx.profiles.calls)
}

func TestProcessDocumentCachedResultOmitsPII(t *testing.T) {
	fx := newPipelineFixture()
	p := fx.build(t)
	doc := sampleDoc("resume.pdf")

	_, err := p.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)

	key := fmt.Sprintf("app:extract:result:%s", utils.CalculateMD5(doc.Content))
	data, ok := fx.cache.Get(context.Background(), key)
	require.True(t, ok, "结果应写入抽取缓存")
	assert.NotContains(t, string(data), "John Smith")
	assert.NotContains(t, string(data), "john@example.com")

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "pii")
}

func TestProcessDocumentDuplicateContent(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.text = "identical resume body"
	textMD5 := utils.CalculateMD5([]byte(fx.extractor.text))

	existing := types.CandidateRecord{
		CandidateID: "cand-existing",
		Profile:     sampleProfile(),
		Risk:        types.RiskAssessment{RiskScore: 3, Issues: []string{"Risk Level: Medium 3/10"}},
	}
	fx.deduper.existing[textMD5] = true
	fx.store.byMD5[textMD5] = existing.CandidateID
	fx.store.records[existing.CandidateID] = existing

	p := fx.build(t)
	result, err := p.ProcessDocument(context.Background(), sampleDoc("copy.pdf"))
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Equal(t, "cand-existing", result.CandidateID)
	assert.Equal(t, "copy.pdf", result.Filename)
	assert.Equal(t, 0, fx.profiles.calls, "重复内容不应触发LLM")
	assert.Empty(t, fx.store.upserts)
}

func TestProcessDocumentDuplicateUnresolvable(t *testing.T) {
	// 去重集合有登记但主库行已不在，按新文档处理
	fx := newPipelineFixture()
	fx.extractor.text = "orphaned duplicate body"
	textMD5 := utils.CalculateMD5([]byte(fx.extractor.text))
	fx.deduper.existing[textMD5] = true

	p := fx.build(t)
	result, err := p.ProcessDocument(context.Background(), sampleDoc("orphan.pdf"))
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, 1, fx.profiles.calls)
	assert.Len(t, fx.store.upserts, 1)
}

func TestProcessDocumentDedupCheckFailureNonFatal(t *testing.T) {
	fx := newPipelineFixture()
	fx.deduper.checkErr = fmt.Errorf("redis down")

	p := fx.build(t)
	_, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.NoError(t, err, "去重检查失败只降级, 不影响摄取")
	assert.Len(t, fx.store.upserts, 1)
}

func TestProcessDocumentProfileExtractionFatal(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.text = "resume body"
	fx.profiles.err = NewExternalServiceError("doc", "profile_extract", "外部服务持续500")

	p := fx.build(t)
	_, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalServiceFailed)

	textMD5 := utils.CalculateMD5([]byte(fx.extractor.text))
	assert.Contains(t, fx.deduper.removed, textMD5, "失败后应回收去重登记")
	assert.Empty(t, fx.store.upserts)

	key := fmt.Sprintf("app:extract:result:%s", utils.CalculateMD5(sampleDoc("resume.pdf").Content))
	_, ok := fx.cache.Get(context.Background(), key)
	assert.False(t, ok, "失败结果不得入缓存")
}

func TestProcessDocumentStoreFailure(t *testing.T) {
	fx := newPipelineFixture()
	fx.store.upsertErr = fmt.Errorf("db gone")

	p := fx.build(t)
	_, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFailed)
	assert.NotEmpty(t, fx.deduper.removed)
}

func TestProcessDocumentExtractionErrorPropagates(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.errFor = map[string]error{
		"weird.xyz": NewUnsupportedFormatError("weird.xyz", ".xyz"),
	}

	p := fx.build(t)
	doc := sampleDoc("weird.xyz")
	doc.Ext = ".xyz"
	_, err := p.ProcessDocument(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, 0, fx.profiles.calls)
	assert.Empty(t, fx.deduper.removed, "未走到去重登记, 无需回收")
}

func TestProcessDocumentArchiveFailureFatal(t *testing.T) {
	fx := newPipelineFixture()
	fx.archiver.originalErr = fmt.Errorf("bucket unavailable")

	p := fx.build(t)
	_, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectStoreFailed)
	assert.Equal(t, 0, fx.extractor.calls, "归档失败时不再继续提取")
}

func TestProcessDocumentTextArchiveFailureNonFatal(t *testing.T) {
	fx := newPipelineFixture()
	fx.archiver.textErr = fmt.Errorf("slow bucket")

	p := fx.build(t)
	result, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ObjectKey)
	require.Len(t, fx.store.upserts, 1)
	assert.Empty(t, fx.store.upserts[0].TextObjectKey)
}

func TestProcessDocumentWithoutOptionalComponents(t *testing.T) {
	fx := newPipelineFixture()
	p, err := New(Components{
		Extractor:        fx.extractor,
		Anonymizer:       fx.anonymous,
		ProfileExtractor: fx.profiles,
		Scorer:           &fakeScorer{},
		Store:            fx.store,
	})
	require.NoError(t, err)

	result, err := p.ProcessDocument(context.Background(), sampleDoc("resume.pdf"))
	require.NoError(t, err)
	assert.Empty(t, result.ObjectKey)
	assert.Len(t, fx.store.upserts, 1)
}

func TestProcessBatchPartialFailure(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.errFor = map[string]error{
		"bad.pdf": NewExtractionError("bad.pdf", "文件损坏"),
	}
	p := fx.build(t)

	docs := []types.RawDocument{
		sampleDoc("a.pdf"),
		sampleDoc("bad.pdf"),
		sampleDoc("c.pdf"),
	}
	results := p.ProcessBatch(context.Background(), docs)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, ErrExtractionFailed)
	assert.NoError(t, results[2].Err)

	for i, item := range results {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, docs[i].Filename, item.Filename, "结果槽位与输入顺序一致")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	fx := newPipelineFixture()
	p := fx.build(t)
	assert.Empty(t, p.ProcessBatch(context.Background(), nil))
}

func TestProcessBatchDocumentTimeout(t *testing.T) {
	fx := newPipelineFixture()
	fx.extractor.errFor = map[string]error{
		"slow.pdf": context.DeadlineExceeded,
	}
	p := fx.build(t, WithDocumentTimeout(10*time.Millisecond))

	results := p.ProcessBatch(context.Background(), []types.RawDocument{
		sampleDoc("slow.pdf"),
		sampleDoc("fast.pdf"),
	})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err, "超时只放弃该文档")
}

func TestWorkerCount(t *testing.T) {
	fx := newPipelineFixture()

	p := fx.build(t, WithMaxConcurrency(4))
	assert.Equal(t, 4, p.workerCount(20), "显式配置优先")
	assert.Equal(t, 2, p.workerCount(2), "不超过批量大小")

	p = fx.build(t)
	derived := p.workerCount(100)
	assert.GreaterOrEqual(t, derived, 3)
	assert.LessOrEqual(t, derived, 10)
}

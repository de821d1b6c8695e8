package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"recruit-agent-go/internal/llm"
	"recruit-agent-go/internal/processor"
	"recruit-agent-go/pkg/chatmodel"
	"recruit-agent-go/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(mock *chatmodel.MockChatModel, attempts int) *llm.Client {
	return llm.NewClient(mock,
		llm.WithRetryPolicy(retry.Policy{
			MaxAttempts:     attempts,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		}),
		llm.WithCallTimeout(time.Second),
	)
}

const sydneyFilterJSON = `{
  "role": "Python Developer",
  "related_roles": ["Python Engineer", "Backend Developer", "Software Engineer"],
  "related_keywords": ["Django", "Flask", "FastAPI"],
  "location": "Sydney",
  "required_skills": ["Python"],
  "experience_years_min": 3
}`

func TestFilterExtractSuccess(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: sydneyFilterJSON})
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	filter, err := extractor.Extract(context.Background(), "Python developer in Sydney with 3 years experience")
	require.NoError(t, err)

	assert.Equal(t, "Python Developer", filter.Role)
	assert.Equal(t, []string{"Python Engineer", "Backend Developer", "Software Engineer"}, filter.RelatedRoles)
	assert.Equal(t, []string{"Django", "Flask", "FastAPI"}, filter.RelatedKeywords)
	assert.Equal(t, "Sydney", filter.Location)
	assert.Equal(t, []string{"Python"}, filter.RequiredSkills)
	assert.Equal(t, 3.0, filter.ExperienceYearsMin)

	// 查询文本进入user消息
	received := mock.Received()
	require.Len(t, received, 1)
	require.Len(t, received[0], 2)
	assert.Contains(t, received[0][1].Content, "Python developer in Sydney")
}

func TestFilterExtractNullOptionalFields(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: `{
	  "role": "Project Manager",
	  "related_roles": ["Program Manager", "Delivery Manager"],
	  "related_keywords": ["Agile", "Scrum", "PMP"],
	  "location": null,
	  "required_skills": ["PMP"],
	  "experience_years_min": null
	}`})
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	filter, err := extractor.Extract(context.Background(), "Project manager with PMP certification")
	require.NoError(t, err)

	assert.Equal(t, "Project Manager", filter.Role)
	assert.Equal(t, "", filter.Location, "location为null时应落到空值")
	assert.Equal(t, 0.0, filter.ExperienceYearsMin, "年限为null时0表示未指定")
	assert.Equal(t, []string{"PMP"}, filter.RequiredSkills)
}

func TestFilterExtractNormalizesMissingArrays(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: `{
	  "role": "Data Analyst",
	  "related_roles": [],
	  "required_skills": []
	}`})
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	filter, err := extractor.Extract(context.Background(), "data analyst")
	require.NoError(t, err)

	assert.NotNil(t, filter.RelatedRoles)
	assert.NotNil(t, filter.RelatedKeywords)
	assert.NotNil(t, filter.RequiredSkills)
	assert.Empty(t, filter.RelatedKeywords)
}

func TestFilterExtractMissingRequiredField(t *testing.T) {
	// required_skills整个字段缺失，与空数组不同，视为模式违例
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Content: `{
	  "role": "Data Analyst",
	  "related_roles": ["BI Analyst"]
	}`})
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	_, err := extractor.Extract(context.Background(), "data analyst")
	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrSchemaValidationFailed)
	assert.ErrorIs(t, err, processor.ErrExternalServiceFailed)
}

func TestFilterExtractModelFailure(t *testing.T) {
	mock := chatmodel.NewMockChatModel(chatmodel.MockResponse{Err: errors.New("API请求失败，状态码: 401, 响应: unauthorized")})
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	_, err := extractor.Extract(context.Background(), "python developer")
	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrExternalServiceFailed)
	assert.NotErrorIs(t, err, processor.ErrSchemaValidationFailed)
}

func TestFilterExtractReplacesPreviousQuery(t *testing.T) {
	// 提取器无状态：第二次查询的结果不继承第一次的location等字段
	mock := chatmodel.NewMockChatModel(
		chatmodel.MockResponse{Content: sydneyFilterJSON},
		chatmodel.MockResponse{Content: `{
		  "role": "Project Manager",
		  "related_roles": ["Program Manager"],
		  "required_skills": ["PMP"]
		}`},
	)
	extractor := NewFilterExtractor(newTestClient(mock, 1))

	first, err := extractor.Extract(context.Background(), "Python developer in Sydney")
	require.NoError(t, err)
	assert.Equal(t, "Sydney", first.Location)

	second, err := extractor.Extract(context.Background(), "Project manager with PMP")
	require.NoError(t, err)
	assert.Equal(t, "Project Manager", second.Role)
	assert.Equal(t, "", second.Location)
	assert.Equal(t, 0.0, second.ExperienceYearsMin)
}

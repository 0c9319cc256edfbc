package answer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

// mockLLMService implements interfaces.LLMService for testing
type mockLLMService struct {
	reply      string
	err        error
	mode       interfaces.LLMMode
	lastPrompt string
}

func (m *mockLLMService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) > 0 {
		m.lastPrompt = messages[len(messages)-1].Content
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}
func (m *mockLLMService) HealthCheck(ctx context.Context) error { return m.err }
func (m *mockLLMService) GetMode() interfaces.LLMMode {
	if m.mode == "" {
		return interfaces.LLMModeCloud
	}
	return m.mode
}
func (m *mockLLMService) Close() error { return nil }

func testEvidence() (*models.Context, []*models.Citation) {
	date, _ := time.Parse("2006-01-02", "2024-07-18")
	queryContext := &models.Context{
		Intent:      models.IntentMedication,
		Summary:     "Found 1 record(s) for John Doe. Date range: 2024-07-18 to 2024-07-18.",
		KeyFindings: []string{"Medications found: Lisinopril 10mg daily"},
	}
	citations := []*models.Citation{{
		SourceID:    "rec_1",
		PatientID:   "P001",
		PatientName: "John Doe",
		Date:        date,
		RecordType:  models.RecordTypeVisit,
		Text:        "Prescribed Lisinopril 10mg daily for hypertension.",
		Confidence:  0.85,
	}}
	return queryContext, citations
}

func TestGenerateAnswer_NoCitations(t *testing.T) {
	service := NewService(&mockLLMService{reply: "unused"}, common.GetLogger())

	answer, err := service.GenerateAnswer(context.Background(), "What medications?", &models.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, noEvidenceAnswer, answer)
}

func TestGenerateAnswer_UsesLLMReply(t *testing.T) {
	llm := &mockLLMService{reply: "John Doe is taking Lisinopril 10mg daily."}
	service := NewService(llm, common.GetLogger())

	queryContext, citations := testEvidence()
	answer, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)
	assert.Equal(t, "John Doe is taking Lisinopril 10mg daily.", answer)
}

func TestGenerateAnswer_PromptCarriesEvidence(t *testing.T) {
	llm := &mockLLMService{reply: "ok"}
	service := NewService(llm, common.GetLogger())

	queryContext, citations := testEvidence()
	_, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)

	assert.Contains(t, llm.lastPrompt, "What medications is John Doe taking?")
	assert.Contains(t, llm.lastPrompt, queryContext.Summary)
	assert.Contains(t, llm.lastPrompt, "Medications found: Lisinopril 10mg daily")
	assert.Contains(t, llm.lastPrompt, "[Source 1]")
	assert.Contains(t, llm.lastPrompt, "Prescribed Lisinopril 10mg daily for hypertension.")
}

func TestGenerateAnswer_StripsArtifacts(t *testing.T) {
	llm := &mockLLMService{reply: "Answer: John Doe is taking Lisinopril."}
	service := NewService(llm, common.GetLogger())

	queryContext, citations := testEvidence()
	answer, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)
	assert.Equal(t, "John Doe is taking Lisinopril.", answer)
}

func TestGenerateAnswer_FallbackWhenDisabled(t *testing.T) {
	llm := &mockLLMService{mode: interfaces.LLMModeDisabled}
	service := NewService(llm, common.GetLogger())

	queryContext, citations := testEvidence()
	answer, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)

	assert.Contains(t, answer, queryContext.Summary)
	assert.Contains(t, answer, "Lisinopril")
	assert.Empty(t, llm.lastPrompt, "disabled provider must not be called")
}

func TestGenerateAnswer_FallbackOnLLMError(t *testing.T) {
	llm := &mockLLMService{err: fmt.Errorf("api unreachable")}
	service := NewService(llm, common.GetLogger())

	queryContext, citations := testEvidence()
	answer, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)
	assert.True(t, strings.Contains(answer, "John Doe"))
}

func TestGenerateAnswer_FallbackDeterministic(t *testing.T) {
	service := NewService(&mockLLMService{mode: interfaces.LLMModeDisabled}, common.GetLogger())

	queryContext, citations := testEvidence()
	first, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)
	second, err := service.GenerateAnswer(context.Background(), "What medications is John Doe taking?", queryContext, citations)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

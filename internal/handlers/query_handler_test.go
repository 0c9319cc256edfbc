package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
	"github.com/ternarybob/medgraph/internal/services/retrieval"
)

// mockQueryService implements interfaces.QueryService for testing
type mockQueryService struct {
	result    *models.QueryResult
	err       error
	lastQuery *models.Query
}

func (m *mockQueryService) AnswerQuery(ctx context.Context, query *models.Query) (*models.QueryResult, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func postQuery(t *testing.T, handler *QueryHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/query", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)
	return rec
}

func TestQueryHandler_Success(t *testing.T) {
	service := &mockQueryService{result: &models.QueryResult{
		Answer: "John Doe is taking Lisinopril 10mg daily.",
		Citations: []*models.Citation{
			{SourceID: "rec_1", PatientID: "P001", Confidence: 0.85},
		},
		Intent: models.IntentMedication,
		Trace:  &models.AgentTrace{RouterDecision: models.IntentMedication},
	}}
	handler := NewQueryHandler(service, common.GetLogger())

	rec := postQuery(t, handler, `{"question": "What medications is John Doe taking?", "patient_id": "P001"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "John Doe is taking Lisinopril 10mg daily.", resp.Answer)
	assert.Equal(t, models.IntentMedication, resp.Intent)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "rec_1", resp.Citations[0].SourceID)
	require.NotNil(t, resp.Trace)

	assert.Equal(t, "P001", service.lastQuery.PatientID)
}

func TestQueryHandler_EmptyCitationsSerializeAsArray(t *testing.T) {
	service := &mockQueryService{result: &models.QueryResult{
		Answer: "I couldn't find any relevant information.",
		Intent: models.IntentGeneral,
		Trace:  &models.AgentTrace{},
	}}
	handler := NewQueryHandler(service, common.GetLogger())

	rec := postQuery(t, handler, `{"question": "What about unknown patient?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"citations":[]`)
}

func TestQueryHandler_RejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "not json at all"},
		{"missing question", `{"patient_id": "P001"}`},
		{"question too short", `{"question": "ab"}`},
		{"max sources negative", `{"question": "What medications?", "max_sources": -2}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewQueryHandler(&mockQueryService{}, common.GetLogger())
			rec := postQuery(t, handler, tc.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQueryHandler_MethodNotAllowed(t *testing.T) {
	handler := NewQueryHandler(&mockQueryService{}, common.GetLogger())

	req := httptest.NewRequest("GET", "/api/query", nil)
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueryHandler_RetrievalUnavailable(t *testing.T) {
	service := &mockQueryService{err: retrieval.ErrRetrievalUnavailable}
	handler := NewQueryHandler(service, common.GetLogger())

	rec := postQuery(t, handler, `{"question": "What medications is John Doe taking?"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

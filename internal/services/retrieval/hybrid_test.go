package retrieval

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

// mockRecordStorage implements interfaces.RecordStorage for testing
type mockRecordStorage struct {
	records []*models.Record
	fail    bool
}

func (m *mockRecordStorage) SaveRecord(record *models.Record) error     { return nil }
func (m *mockRecordStorage) SaveRecords(records []*models.Record) error { return nil }
func (m *mockRecordStorage) GetRecord(id string) (*models.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("record not found: %s", id)
}
func (m *mockRecordStorage) DeleteRecord(id string) error { return nil }
func (m *mockRecordStorage) ListRecords(limit, offset int) ([]*models.Record, error) {
	return m.records, nil
}
func (m *mockRecordStorage) ListPatientRecords(patientID string) ([]*models.Record, error) {
	var result []*models.Record
	for _, r := range m.records {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	return result, nil
}
func (m *mockRecordStorage) SearchRecords(filters interfaces.RecordFilters) ([]*models.Record, error) {
	if m.fail {
		return nil, fmt.Errorf("structured store unreachable")
	}
	var result []*models.Record
	for _, r := range m.records {
		if filters.PatientID != "" && r.PatientID != filters.PatientID {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}
func (m *mockRecordStorage) GetStats() (*models.RecordStats, error) { return &models.RecordStats{}, nil }
func (m *mockRecordStorage) Close() error                           { return nil }

// mockVectorStore implements interfaces.VectorStore for testing
type mockVectorStore struct {
	matches []*interfaces.VectorMatch
	fail    bool
}

func (m *mockVectorStore) Index(ctx context.Context, record *models.Record, embedding []float32) error {
	return nil
}
func (m *mockVectorStore) Delete(ctx context.Context, recordID string) error { return nil }
func (m *mockVectorStore) Nearest(ctx context.Context, embedding []float32, k int, patientID string) ([]*interfaces.VectorMatch, error) {
	if m.fail {
		return nil, fmt.Errorf("vector store unreachable")
	}
	var result []*interfaces.VectorMatch
	for _, match := range m.matches {
		if patientID != "" && match.Record.PatientID != patientID {
			continue
		}
		result = append(result, match)
	}
	return result, nil
}
func (m *mockVectorStore) Count() int { return len(m.matches) }

// mockEmbedding implements interfaces.EmbeddingService for testing
type mockEmbedding struct {
	fail bool
}

func (m *mockEmbedding) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.fail {
		return nil, fmt.Errorf("embedding backend unreachable")
	}
	return []float32{1, 0, 0}, nil
}
func (m *mockEmbedding) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.GenerateEmbedding(ctx, query)
}
func (m *mockEmbedding) EmbedRecord(ctx context.Context, record *models.Record) ([]float32, error) {
	return m.GenerateEmbedding(ctx, record.Text)
}
func (m *mockEmbedding) ModelName() string                    { return "mock" }
func (m *mockEmbedding) Dimension() int                       { return 3 }
func (m *mockEmbedding) IsAvailable(ctx context.Context) bool { return !m.fail }

func date(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t
}

func testRecord(id, patientID, dateStr, text string) *models.Record {
	return &models.Record{
		ID:          id,
		PatientID:   patientID,
		PatientName: "John Doe",
		Date:        date(dateStr),
		RecordType:  models.RecordTypeVisit,
		Text:        text,
	}
}

func newTestRetriever(storage interfaces.RecordStorage, vectors interfaces.VectorStore, embedder interfaces.EmbeddingService) *Retriever {
	config := common.NewDefaultConfig()
	return NewRetriever(storage, vectors, embedder, &config.Retrieval, common.GetLogger())
}

func TestRetriever_FusionDeduplicates(t *testing.T) {
	shared := testRecord("rec_1", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily for hypertension.")
	keywordOnly := testRecord("rec_2", "P001", "2024-03-10", "Follow-up visit, blood pressure stable.")

	storage := &mockRecordStorage{records: []*models.Record{shared, keywordOnly}}
	vectors := &mockVectorStore{matches: []*interfaces.VectorMatch{
		{Record: shared, Similarity: 0.9, Distance: 0.1},
	}}

	retriever := newTestRetriever(storage, vectors, &mockEmbedding{})
	result, err := retriever.Retrieve(context.Background(), "What medications is John Doe taking?", models.IntentMedication, "P001", 5)
	require.NoError(t, err)
	require.False(t, result.Degraded)

	seen := make(map[string]bool)
	for _, c := range result.Candidates {
		assert.False(t, seen[c.Record.ID], "duplicate record %s in candidates", c.Record.ID)
		seen[c.Record.ID] = true
	}
	require.True(t, seen["rec_1"])
	require.True(t, seen["rec_2"])
}

// A record found by both modes must never score below what either mode
// alone would give it.
func TestRetriever_MonotonicFusion(t *testing.T) {
	shared := testRecord("rec_1", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily for hypertension.")

	ctx := context.Background()
	question := "What medications is John Doe taking?"

	bothResult, err := newTestRetriever(
		&mockRecordStorage{records: []*models.Record{shared}},
		&mockVectorStore{matches: []*interfaces.VectorMatch{{Record: shared, Similarity: 0.9, Distance: 0.1}}},
		&mockEmbedding{},
	).Retrieve(ctx, question, models.IntentMedication, "P001", 5)
	require.NoError(t, err)

	semanticOnly, err := newTestRetriever(
		&mockRecordStorage{records: nil},
		&mockVectorStore{matches: []*interfaces.VectorMatch{{Record: shared, Similarity: 0.9, Distance: 0.1}}},
		&mockEmbedding{},
	).Retrieve(ctx, question, models.IntentMedication, "P001", 5)
	require.NoError(t, err)

	keywordOnly, err := newTestRetriever(
		&mockRecordStorage{records: []*models.Record{shared}},
		&mockVectorStore{matches: nil},
		&mockEmbedding{},
	).Retrieve(ctx, question, models.IntentMedication, "P001", 5)
	require.NoError(t, err)

	require.Len(t, bothResult.Candidates, 1)
	require.Len(t, semanticOnly.Candidates, 1)
	require.Len(t, keywordOnly.Candidates, 1)

	both := bothResult.Candidates[0]
	assert.Equal(t, models.ProvenanceBoth, both.Provenance)
	assert.GreaterOrEqual(t, both.Combined, semanticOnly.Candidates[0].Combined)
	assert.GreaterOrEqual(t, both.Combined, keywordOnly.Candidates[0].Combined)
}

func TestRetriever_DegradesWhenStructuredStoreDown(t *testing.T) {
	record := testRecord("rec_1", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily.")

	storage := &mockRecordStorage{fail: true}
	vectors := &mockVectorStore{matches: []*interfaces.VectorMatch{
		{Record: record, Similarity: 0.8, Distance: 0.2},
	}}

	retriever := newTestRetriever(storage, vectors, &mockEmbedding{})
	result, err := retriever.Retrieve(context.Background(), "What medications is John Doe taking?", models.IntentMedication, "P001", 5)
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "rec_1", result.Candidates[0].Record.ID)
	assert.Equal(t, models.ProvenanceSemantic, result.Candidates[0].Provenance)
}

func TestRetriever_DegradesWhenVectorStoreDown(t *testing.T) {
	record := testRecord("rec_1", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily.")

	storage := &mockRecordStorage{records: []*models.Record{record}}
	vectors := &mockVectorStore{fail: true}

	retriever := newTestRetriever(storage, vectors, &mockEmbedding{})
	result, err := retriever.Retrieve(context.Background(), "What medications is John Doe taking?", models.IntentMedication, "P001", 5)
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, models.ProvenanceKeyword, result.Candidates[0].Provenance)
}

// An embedding failure counts as a vector-path failure and degrades the
// same way a store outage does.
func TestRetriever_DegradesWhenEmbeddingUnavailable(t *testing.T) {
	record := testRecord("rec_1", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily.")

	storage := &mockRecordStorage{records: []*models.Record{record}}
	vectors := &mockVectorStore{matches: []*interfaces.VectorMatch{
		{Record: record, Similarity: 0.8, Distance: 0.2},
	}}

	retriever := newTestRetriever(storage, vectors, &mockEmbedding{fail: true})
	result, err := retriever.Retrieve(context.Background(), "What medications is John Doe taking?", models.IntentMedication, "P001", 5)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.Len(t, result.Candidates, 1)
}

func TestRetriever_FailsWhenBothStoresDown(t *testing.T) {
	retriever := newTestRetriever(&mockRecordStorage{fail: true}, &mockVectorStore{fail: true}, &mockEmbedding{})

	result, err := retriever.Retrieve(context.Background(), "What medications is John Doe taking?", models.IntentMedication, "P001", 5)
	require.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.Nil(t, result)
}

func TestRetriever_TruncatesToHeadroom(t *testing.T) {
	var records []*models.Record
	for i := 0; i < 30; i++ {
		records = append(records, testRecord(
			fmt.Sprintf("rec_%d", i), "P001", "2024-01-15",
			"Routine visit, medication review, prescribed maintenance dose.",
		))
	}

	storage := &mockRecordStorage{records: records}
	retriever := newTestRetriever(storage, &mockVectorStore{}, &mockEmbedding{})

	maxSources := 5
	result, err := retriever.Retrieve(context.Background(), "medication review", models.IntentMedication, "P001", maxSources)
	require.NoError(t, err)

	config := common.NewDefaultConfig()
	assert.LessOrEqual(t, len(result.Candidates), maxSources*config.Retrieval.Headroom)
}

func TestRetriever_TieBrokenByRecency(t *testing.T) {
	older := testRecord("rec_old", "P001", "2023-01-10", "Prescribed Lisinopril 10mg daily.")
	newer := testRecord("rec_new", "P001", "2024-07-18", "Prescribed Lisinopril 10mg daily.")

	storage := &mockRecordStorage{records: []*models.Record{older, newer}}
	retriever := newTestRetriever(storage, &mockVectorStore{}, &mockEmbedding{})

	result, err := retriever.Retrieve(context.Background(), "lisinopril prescribed", models.IntentMedication, "P001", 5)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "rec_new", result.Candidates[0].Record.ID)
}

package citation

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
)

func newTestExtractor() *Extractor {
	config := common.NewDefaultConfig()
	return NewExtractor(&config.Citation, common.GetLogger())
}

func candidate(id, dateStr, text string, combined float64) *models.Candidate {
	date, _ := time.Parse("2006-01-02", dateStr)
	return &models.Candidate{
		Record: &models.Record{
			ID:          id,
			PatientID:   "P001",
			PatientName: "John Doe",
			Date:        date,
			RecordType:  models.RecordTypeVisit,
			Text:        text,
		},
		Combined:   combined,
		Provenance: models.ProvenanceBoth,
	}
}

func testContext(intent models.Intent, candidates ...*models.Candidate) *models.Context {
	return &models.Context{Intent: intent, Records: candidates}
}

func TestExtractor_EmptyContext(t *testing.T) {
	e := newTestExtractor()

	assert.Nil(t, e.Extract("question", nil, 5))
	assert.Nil(t, e.Extract("question", testContext(models.IntentGeneral), 5))
}

func TestExtractor_SelectsRelevantSpan(t *testing.T) {
	c := candidate("rec_1", "2024-07-18",
		"Patient arrived on time for the appointment. Prescribed Lisinopril 10mg daily for hypertension. Next visit in three months.",
		0.9)

	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication, c), 5)

	require.Len(t, citations, 1)
	assert.Contains(t, citations[0].Text, "Lisinopril")
	assert.NotContains(t, citations[0].Text, "arrived on time")
}

func TestExtractor_HighRetrievalScoreYieldsConfidentCitation(t *testing.T) {
	c := candidate("rec_1", "2024-07-18",
		"Prescribed Lisinopril 10mg daily for hypertension.", 0.9)

	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication, c), 5)

	require.Len(t, citations, 1)
	assert.GreaterOrEqual(t, citations[0].Confidence, 0.5)
	assert.Equal(t, "rec_1", citations[0].SourceID)
	assert.Equal(t, "P001", citations[0].PatientID)
}

func TestExtractor_ConfidenceBounds(t *testing.T) {
	var candidates []*models.Candidate
	for i, score := range []float64{0.0, 0.3, 0.7, 1.0} {
		candidates = append(candidates, candidate(
			fmt.Sprintf("rec_%d", i), "2024-05-01",
			"Prescribed Lisinopril 10mg daily for hypertension.", score))
	}

	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication, candidates...), 10)

	for _, citation := range citations {
		assert.GreaterOrEqual(t, citation.Confidence, 0.0)
		assert.LessOrEqual(t, citation.Confidence, 1.0)
	}
}

func TestExtractor_ExcerptFallback(t *testing.T) {
	long := "Administrative note about insurance paperwork. " + strings.Repeat("Nothing clinical here. ", 20)
	c := candidate("rec_1", "2024-07-18", long, 0.6)

	citations := newTestExtractor().Extract(
		"xylophone", testContext(models.IntentGeneral, c), 5)

	require.Len(t, citations, 1)
	config := common.NewDefaultConfig()
	assert.LessOrEqual(t, len(citations[0].Text), config.Citation.ExcerptLength)
	assert.True(t, strings.HasPrefix(long, citations[0].Text))
}

func TestExtractor_ExcerptRespectsRuneBoundaries(t *testing.T) {
	config := common.NewDefaultConfig()
	long := strings.Repeat("a", config.Citation.ExcerptLength-1) +
		"µg noted in an addendum that continues well past the excerpt cut."
	c := candidate("rec_1", "2024-07-18", long, 0.6)

	citations := newTestExtractor().Extract(
		"xylophone", testContext(models.IntentGeneral, c), 5)

	require.Len(t, citations, 1)
	assert.True(t, utf8.ValidString(citations[0].Text))
	assert.LessOrEqual(t, len(citations[0].Text), config.Citation.ExcerptLength)
}

func TestExtractor_OrderedByConfidence(t *testing.T) {
	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication,
			candidate("rec_low", "2024-01-01", "Prescribed Lisinopril 10mg daily.", 0.3),
			candidate("rec_high", "2024-02-01", "Prescribed Lisinopril 10mg daily.", 0.9),
			candidate("rec_mid", "2024-03-01", "Prescribed Lisinopril 10mg daily.", 0.6),
		), 5)

	require.Len(t, citations, 3)
	assert.Equal(t, "rec_high", citations[0].SourceID)
	assert.Equal(t, "rec_mid", citations[1].SourceID)
	assert.Equal(t, "rec_low", citations[2].SourceID)
	assert.True(t, sortedDescending(citations))
}

func TestExtractor_TieBrokenByRecency(t *testing.T) {
	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication,
			candidate("rec_old", "2023-02-01", "Prescribed Lisinopril 10mg daily.", 0.8),
			candidate("rec_new", "2024-06-01", "Prescribed Lisinopril 10mg daily.", 0.8),
		), 5)

	require.Len(t, citations, 2)
	assert.Equal(t, "rec_new", citations[0].SourceID)
}

func TestExtractor_CapsAtMaxSources(t *testing.T) {
	var candidates []*models.Candidate
	for i := 0; i < 12; i++ {
		candidates = append(candidates, candidate(
			fmt.Sprintf("rec_%d", i), "2024-05-01",
			"Prescribed Lisinopril 10mg daily.", 0.8))
	}

	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication, candidates...), 3)

	assert.Len(t, citations, 3)
}

func TestExtractor_DropsWeakWhenStrongFillsSources(t *testing.T) {
	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication,
			candidate("rec_strong_1", "2024-06-01", "Prescribed Lisinopril 10mg daily.", 0.9),
			candidate("rec_strong_2", "2024-05-01", "Prescribed Metformin 500mg twice daily.", 0.8),
			candidate("rec_weak", "2024-04-01", "Unrelated administrative filing.", 0.0),
		), 2)

	require.Len(t, citations, 2)
	assert.Equal(t, "rec_strong_1", citations[0].SourceID)
	assert.Equal(t, "rec_strong_2", citations[1].SourceID)
}

func TestExtractor_WeakFillsFreeSlots(t *testing.T) {
	citations := newTestExtractor().Extract(
		"What medications is John Doe taking?",
		testContext(models.IntentMedication,
			candidate("rec_strong", "2024-06-01", "Prescribed Lisinopril 10mg daily.", 0.9),
			candidate("rec_weak_1", "2024-05-01", "Unrelated administrative filing.", 0.0),
			candidate("rec_weak_2", "2024-04-01", "Insurance paperwork received.", 0.0),
			candidate("rec_weak_3", "2024-03-01", "Parking validation issued.", 0.0),
		), 5)

	require.Len(t, citations, 4)
	assert.Equal(t, "rec_strong", citations[0].SourceID)
}

func TestExtractor_KeepsWeakWhenNothingStronger(t *testing.T) {
	citations := newTestExtractor().Extract(
		"xylophone", testContext(models.IntentGeneral,
			candidate("rec_1", "2024-05-01", "Unrelated administrative filing.", 0.0),
		), 5)

	require.Len(t, citations, 1)
}

func sortedDescending(citations []*models.Citation) bool {
	for i := 1; i < len(citations); i++ {
		if citations[i].Confidence > citations[i-1].Confidence {
			return false
		}
	}
	return true
}

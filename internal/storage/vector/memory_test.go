package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
)

func testStore() *MemoryStore {
	return NewMemoryStore(common.GetLogger())
}

func record(id, patientID string) *models.Record {
	return &models.Record{ID: id, PatientID: patientID}
}

func TestMemoryStore_IndexReplacesEmbedding(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, record("rec_1", "P001"), []float32{1, 0, 0}))
	require.NoError(t, store.Index(ctx, record("rec_1", "P001"), []float32{0, 1, 0}))

	assert.Equal(t, 1, store.Count())

	matches, err := store.Nearest(ctx, []float32{0, 1, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestMemoryStore_IndexRequiresIDAndEmbedding(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	assert.Error(t, store.Index(ctx, nil, []float32{1}))
	assert.Error(t, store.Index(ctx, &models.Record{}, []float32{1}))
	assert.Error(t, store.Index(ctx, record("rec_1", "P001"), nil))
}

func TestMemoryStore_NearestRanksBySimilarity(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, record("rec_close", "P001"), []float32{1, 0, 0}))
	require.NoError(t, store.Index(ctx, record("rec_mid", "P001"), []float32{1, 1, 0}))
	require.NoError(t, store.Index(ctx, record("rec_far", "P001"), []float32{0, 0, 1}))

	matches, err := store.Nearest(ctx, []float32{1, 0, 0}, 3, "")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "rec_close", matches[0].Record.ID)
	assert.Equal(t, "rec_mid", matches[1].Record.ID)
	assert.Equal(t, "rec_far", matches[2].Record.ID)
}

func TestMemoryStore_NearestFiltersByPatient(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, record("rec_1", "P001"), []float32{1, 0, 0}))
	require.NoError(t, store.Index(ctx, record("rec_2", "P002"), []float32{1, 0, 0}))

	matches, err := store.Nearest(ctx, []float32{1, 0, 0}, 10, "P001")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "rec_1", matches[0].Record.ID)
}

func TestMemoryStore_NearestTruncatesToK(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	for _, id := range []string{"rec_1", "rec_2", "rec_3", "rec_4"} {
		require.NoError(t, store.Index(ctx, record(id, "P001"), []float32{1, 0, 0}))
	}

	matches, err := store.Nearest(ctx, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, record("rec_1", "P001"), []float32{1, 0, 0}))
	require.NoError(t, store.Delete(ctx, "rec_1"))
	assert.Zero(t, store.Count())
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{0, 1}))

	// Opposed vectors clamp to zero rather than going negative
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}))

	// Mismatched dimensions degrade to zero
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

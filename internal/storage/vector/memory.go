// Package vector provides the vector store adapter used for semantic
// search over record embeddings. The in-memory implementation keeps one
// embedding per record ID and ranks by cosine similarity; a persistent
// backend can be swapped in behind the same interface.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

type entry struct {
	record    *models.Record
	embedding []float32
}

// MemoryStore is an in-memory cosine-similarity vector store keyed by
// record ID. Reads are concurrent; writes happen only through ingestion.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  arbor.ILogger
}

// NewMemoryStore creates an empty in-memory vector store
func NewMemoryStore(logger arbor.ILogger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		logger:  logger,
	}
}

// Index stores (or replaces) the embedding for a record. Replacement keeps
// the one-embedding-per-record invariant when record text changes.
func (s *MemoryStore) Index(ctx context.Context, record *models.Record, embedding []float32) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record with ID is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required for record %s", record.ID)
	}

	s.mu.Lock()
	s.entries[record.ID] = entry{record: record, embedding: embedding}
	s.mu.Unlock()
	return nil
}

// Delete removes a record's embedding
func (s *MemoryStore) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	delete(s.entries, recordID)
	s.mu.Unlock()
	return nil
}

// Nearest returns the k most similar records to the query embedding
func (s *MemoryStore) Nearest(ctx context.Context, embedding []float32, k int, patientID string) ([]*interfaces.VectorMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matches := make([]*interfaces.VectorMatch, 0, len(s.entries))
	for _, e := range s.entries {
		if patientID != "" && e.record.PatientID != patientID {
			continue
		}
		similarity := cosineSimilarity(embedding, e.embedding)
		matches = append(matches, &interfaces.VectorMatch{
			Record:     e.record,
			Similarity: similarity,
			Distance:   1 - similarity,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

// Count returns the number of indexed embeddings
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineSimilarity returns similarity clamped to [0,1]. Mismatched
// dimensions score zero rather than erroring, so a model change degrades
// search instead of breaking it.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}

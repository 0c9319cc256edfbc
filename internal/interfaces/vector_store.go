package interfaces

import (
	"context"

	"github.com/ternarybob/medgraph/internal/models"
)

// VectorMatch is a nearest-neighbor hit from the vector store
type VectorMatch struct {
	Record *models.Record

	// Similarity is the cosine similarity in [0,1]; Distance is 1-Similarity.
	// Higher similarity means a closer semantic match.
	Similarity float64
	Distance   float64
}

// VectorStore executes nearest-neighbor similarity search over record
// embeddings. Embeddings are keyed 1:1 by record ID: indexing a record that
// is already present replaces its previous embedding, so every record has
// exactly one current embedding.
type VectorStore interface {
	// Index stores (or replaces) the embedding for a record
	Index(ctx context.Context, record *models.Record, embedding []float32) error

	// Delete removes a record's embedding (full-reload retirement path)
	Delete(ctx context.Context, recordID string) error

	// Nearest returns the k closest records to the query embedding,
	// most similar first. An empty patientID applies no patient filter.
	Nearest(ctx context.Context, embedding []float32, k int, patientID string) ([]*VectorMatch, error)

	// Count returns the number of indexed embeddings
	Count() int
}

package interfaces

import (
	"context"

	"github.com/ternarybob/medgraph/internal/models"
)

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// GenerateEmbedding embeds raw record text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateQueryEmbedding embeds a question (may use a different prompt
	// than record embedding)
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// EmbedRecord generates the embedding for a record's text
	EmbedRecord(ctx context.Context, record *models.Record) ([]float32, error)

	// Model information
	ModelName() string
	Dimension() int

	// IsAvailable reports whether the embedding backend is reachable
	IsAvailable(ctx context.Context) bool
}

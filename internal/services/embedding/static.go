package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ternarybob/medgraph/internal/models"
)

// StaticService is a deterministic embedding backend: each token hashes to
// a fixed set of vector components, so similar texts land near each other
// and the same text always embeds identically. Used for tests and for runs
// without an Ollama server.
type StaticService struct {
	dimension int
}

// NewStaticService creates a deterministic embedding service
func NewStaticService(dimension int) *StaticService {
	if dimension <= 0 {
		dimension = 64
	}
	return &StaticService{dimension: dimension}
}

// GenerateEmbedding produces a normalized bag-of-tokens vector
func (s *StaticService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	vector := make([]float32, s.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[int(h.Sum32())%s.dimension]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

// GenerateQueryEmbedding embeds a question
func (s *StaticService) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.GenerateEmbedding(ctx, query)
}

// EmbedRecord generates the embedding for a record's text
func (s *StaticService) EmbedRecord(ctx context.Context, record *models.Record) ([]float32, error) {
	if record == nil {
		return nil, fmt.Errorf("record is required")
	}
	return s.GenerateEmbedding(ctx, record.Text)
}

// ModelName identifies the deterministic backend
func (s *StaticService) ModelName() string {
	return "static-hash"
}

// Dimension returns the vector dimension
func (s *StaticService) Dimension() int {
	return s.dimension
}

// IsAvailable always reports true
func (s *StaticService) IsAvailable(ctx context.Context) bool {
	return true
}

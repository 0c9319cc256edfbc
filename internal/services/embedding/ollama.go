// Package embedding provides vector-embedding backends for record and
// query text. The Ollama service is the production backend; the static
// service gives deterministic vectors for tests and air-gapped runs.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/models"
	"golang.org/x/time/rate"
)

// OllamaService implements EmbeddingService against a local Ollama server
type OllamaService struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewOllamaService creates a new Ollama embedding service
func NewOllamaService(config *common.EmbeddingConfig, logger arbor.ILogger) *OllamaService {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := config.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := config.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}

	return &OllamaService{
		baseURL:   baseURL,
		model:     model,
		dimension: config.Dimension,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger,
	}
}

// ollamaEmbedRequest is the Ollama API request format
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the Ollama API response format
type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenerateEmbedding embeds raw record text
func (s *OllamaService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return result.Embedding, nil
}

// GenerateQueryEmbedding embeds a question. Ollama uses the same prompt
// shape for queries and documents.
func (s *OllamaService) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.GenerateEmbedding(ctx, query)
}

// EmbedRecord generates the embedding for a record's text
func (s *OllamaService) EmbedRecord(ctx context.Context, record *models.Record) ([]float32, error) {
	if record == nil {
		return nil, fmt.Errorf("record is required")
	}
	return s.GenerateEmbedding(ctx, record.Text)
}

// ModelName returns the configured embedding model
func (s *OllamaService) ModelName() string {
	return s.model
}

// Dimension returns the configured embedding dimension
func (s *OllamaService) Dimension() int {
	return s.dimension
}

// IsAvailable reports whether the Ollama server is reachable
func (s *OllamaService) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Ollama availability probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Package retrieval implements hybrid search over medical records: a
// structured keyword query and a vector nearest-neighbor query issued in
// parallel, fused into one deduplicated, ranked candidate list.
package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

// ErrRetrievalUnavailable is returned when both the structured store and
// the vector store fail for a query. It is the only fatal condition in the
// pipeline; a single adapter failure degrades to the survivor's results.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable: both record stores failed")

// Result is the outcome of one hybrid retrieval
type Result struct {
	Candidates []*models.Candidate

	// Degraded is true when one adapter failed and results come from the
	// survivor only
	Degraded bool
}

// Retriever fuses structured and semantic search results
type Retriever struct {
	recordStorage    interfaces.RecordStorage
	vectorStore      interfaces.VectorStore
	embeddingService interfaces.EmbeddingService
	config           *common.RetrievalConfig
	logger           arbor.ILogger
}

// NewRetriever creates a hybrid retriever
func NewRetriever(
	recordStorage interfaces.RecordStorage,
	vectorStore interfaces.VectorStore,
	embeddingService interfaces.EmbeddingService,
	config *common.RetrievalConfig,
	logger arbor.ILogger,
) *Retriever {
	return &Retriever{
		recordStorage:    recordStorage,
		vectorStore:      vectorStore,
		embeddingService: embeddingService,
		config:           config,
		logger:           logger,
	}
}

type keywordOutcome struct {
	records []*models.Record
	err     error
}

type semanticOutcome struct {
	matches []*interfaces.VectorMatch
	err     error
}

// Retrieve runs both search modes concurrently and fuses the results into
// a ranked candidate list of at most maxSources × headroom entries. The
// headroom leaves room for the citation extractor to filter further.
func (r *Retriever) Retrieve(ctx context.Context, question string, intent models.Intent, patientID string, maxSources int) (*Result, error) {
	if maxSources <= 0 {
		maxSources = models.DefaultMaxSources
	}
	limit := maxSources * r.config.Headroom

	// Fork: both lookups are independent read-only calls against external
	// stores, so they run concurrently under their own timeouts.
	keywordCh := make(chan keywordOutcome, 1)
	semanticCh := make(chan semanticOutcome, 1)

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
		defer cancel()
		records, err := r.searchKeyword(callCtx, question, intent, patientID, limit)
		keywordCh <- keywordOutcome{records: records, err: err}
	}()

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
		defer cancel()
		matches, err := r.searchSemantic(callCtx, question, patientID, limit)
		semanticCh <- semanticOutcome{matches: matches, err: err}
	}()

	// Join before fusion; completion order does not affect the result
	keyword := <-keywordCh
	semantic := <-semanticCh

	if keyword.err != nil && semantic.err != nil {
		r.logger.Error().
			Err(keyword.err).
			Str("semantic_error", semantic.err.Error()).
			Msg("Both retrieval adapters failed")
		return nil, ErrRetrievalUnavailable
	}

	degraded := keyword.err != nil || semantic.err != nil
	if keyword.err != nil {
		r.logger.Warn().Err(keyword.err).Msg("Structured search failed, degrading to semantic results")
	}
	if semantic.err != nil {
		r.logger.Warn().Err(semantic.err).Msg("Semantic search failed, degrading to keyword results")
	}

	candidates := r.fuse(question, keyword.records, semantic.matches)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	r.logger.Debug().
		Str("intent", string(intent)).
		Int("keyword_hits", len(keyword.records)).
		Int("semantic_hits", len(semantic.matches)).
		Int("candidates", len(candidates)).
		Msg("Hybrid retrieval completed")

	return &Result{Candidates: candidates, Degraded: degraded}, nil
}

// searchKeyword issues the structured-store query with intent-derived terms
func (r *Retriever) searchKeyword(ctx context.Context, question string, intent models.Intent, patientID string, limit int) ([]*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := r.recordStorage.SearchRecords(interfaces.RecordFilters{
		PatientID: patientID,
		Terms:     searchTerms(question, intent),
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	return records, ctx.Err()
}

// searchSemantic embeds the question and issues the nearest-neighbor query.
// An embedding failure counts as a vector-path failure for the degradation
// policy.
func (r *Retriever) searchSemantic(ctx context.Context, question string, patientID string, limit int) ([]*interfaces.VectorMatch, error) {
	embedding, err := r.embeddingService.GenerateQueryEmbedding(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.vectorStore.Nearest(ctx, embedding, limit, patientID)
}

// fuse merges both result lists keyed by record ID.
//
// Each mode contributes its weighted score: combined = semanticWeight ×
// similarity + keywordWeight × match strength. A record found by both modes
// sums both contributions, so it can never rank below what either mode
// alone would give it (monotonic fusion). Ranking is by combined score
// descending, ties broken by more recent record date.
func (r *Retriever) fuse(question string, keywordRecords []*models.Record, semanticMatches []*interfaces.VectorMatch) []*models.Candidate {
	byID := make(map[string]*models.Candidate)
	var order []string

	for _, match := range semanticMatches {
		if match.Record == nil || match.Record.ID == "" {
			continue
		}
		id := match.Record.ID
		if _, exists := byID[id]; exists {
			continue // Duplicate IDs within one mode keep the best-ranked hit
		}
		byID[id] = &models.Candidate{
			Record:        match.Record,
			SemanticScore: match.Similarity,
			Combined:      r.config.SemanticWeight * match.Similarity,
			Provenance:    models.ProvenanceSemantic,
		}
		order = append(order, id)
	}

	for _, record := range keywordRecords {
		if record == nil || record.ID == "" {
			continue
		}
		strength := keywordStrength(record, question)
		if existing, exists := byID[record.ID]; exists {
			existing.KeywordScore = strength
			existing.Combined += r.config.KeywordWeight * strength
			existing.Provenance = models.ProvenanceBoth
			continue
		}
		byID[record.ID] = &models.Candidate{
			Record:       record,
			KeywordScore: strength,
			Combined:     r.config.KeywordWeight * strength,
			Provenance:   models.ProvenanceKeyword,
		}
		order = append(order, record.ID)
	}

	candidates := make([]*models.Candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, byID[id])
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Combined != candidates[j].Combined {
			return candidates[i].Combined > candidates[j].Combined
		}
		return candidates[i].Record.Date.After(candidates[j].Record.Date)
	})

	return candidates
}

package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
	"github.com/ternarybob/medgraph/internal/services/retrieval"
)

// recordRetriever is the slice of the hybrid retriever the pipeline uses
type recordRetriever interface {
	Retrieve(ctx context.Context, question string, intent models.Intent, patientID string, maxSources int) (*retrieval.Result, error)
}

// contextAssembler organizes candidates into answerable context
type contextAssembler interface {
	Assemble(candidates []*models.Candidate, intent models.Intent) *models.Context
}

// citationExtractor turns assembled context into scored citations
type citationExtractor interface {
	Extract(question string, context *models.Context, maxSources int) []*models.Citation
}

// Service runs one query through classification, retrieval, assembly,
// citation, and answer generation. All state is request-scoped; the
// service itself is safe for concurrent use.
type Service struct {
	classifier    interfaces.TextClassifier
	retriever     recordRetriever
	assembler     contextAssembler
	extractor     citationExtractor
	answerService interfaces.AnswerService
	logger        arbor.ILogger
}

func NewService(
	classifier interfaces.TextClassifier,
	retriever recordRetriever,
	assembler contextAssembler,
	extractor citationExtractor,
	answerService interfaces.AnswerService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		classifier:    classifier,
		retriever:     retriever,
		assembler:     assembler,
		extractor:     extractor,
		answerService: answerService,
		logger:        logger,
	}
}

// AnswerQuery executes the full pipeline. An empty evidence set is a valid
// outcome; the only surfaced error is retrieval unavailability.
func (s *Service) AnswerQuery(ctx context.Context, query *models.Query) (*models.QueryResult, error) {
	start := time.Now()

	question := strings.TrimSpace(query.Question)
	maxSources := query.MaxSources
	if maxSources <= 0 {
		maxSources = models.DefaultMaxSources
	}

	trace := &models.AgentTrace{
		StagesRun: []models.PipelineStage{models.StageReceived},
	}

	intent := s.classifier.Classify(ctx, question)
	trace.RouterDecision = intent
	trace.StagesRun = append(trace.StagesRun, models.StageClassified)

	s.logger.Debug().
		Str("intent", string(intent)).
		Str("classifier", s.classifier.Name()).
		Str("patient_id", query.PatientID).
		Msg("Query classified")

	retrievalStart := time.Now()
	result, err := s.retriever.Retrieve(ctx, question, intent, query.PatientID, maxSources)
	trace.RetrievalTimeMS = time.Since(retrievalStart).Milliseconds()
	if err != nil {
		trace.StagesRun = append(trace.StagesRun, models.StageFailed)
		trace.TotalTimeMS = time.Since(start).Milliseconds()
		s.logger.Error().Err(err).Msg("Retrieval failed")
		return nil, err
	}
	trace.Degraded = result.Degraded
	trace.StagesRun = append(trace.StagesRun, models.StageRetrieved)

	queryContext := s.assembler.Assemble(result.Candidates, intent)
	trace.StagesRun = append(trace.StagesRun, models.StageAssembled)

	citations := s.extractor.Extract(question, queryContext, maxSources)
	trace.StagesRun = append(trace.StagesRun, models.StageCited)

	answer, err := s.answerService.GenerateAnswer(ctx, question, queryContext, citations)
	if err != nil {
		// Answer phrasing must not sink a query that has evidence
		s.logger.Warn().Err(err).Msg("Answer generation failed, returning context summary")
		answer = queryContext.Summary
	}
	trace.StagesRun = append(trace.StagesRun, models.StageDone)
	trace.TotalTimeMS = time.Since(start).Milliseconds()

	s.logger.Info().
		Str("intent", string(intent)).
		Int("citations", len(citations)).
		Bool("degraded", trace.Degraded).
		Int64("total_ms", trace.TotalTimeMS).
		Msg("Query answered")

	return &models.QueryResult{
		Answer:    answer,
		Citations: citations,
		Context:   queryContext,
		Intent:    intent,
		Trace:     trace,
	}, nil
}

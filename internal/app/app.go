package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/handlers"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/services/answer"
	"github.com/ternarybob/medgraph/internal/services/assembler"
	"github.com/ternarybob/medgraph/internal/services/citation"
	"github.com/ternarybob/medgraph/internal/services/classifier"
	"github.com/ternarybob/medgraph/internal/services/embedding"
	"github.com/ternarybob/medgraph/internal/services/ingest"
	"github.com/ternarybob/medgraph/internal/services/llm"
	"github.com/ternarybob/medgraph/internal/services/pipeline"
	"github.com/ternarybob/medgraph/internal/services/retrieval"
	"github.com/ternarybob/medgraph/internal/storage/badger"
	"github.com/ternarybob/medgraph/internal/storage/vector"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	VectorStore    interfaces.VectorStore

	// Pipeline services
	EmbeddingService interfaces.EmbeddingService
	LLMService       interfaces.LLMService
	Classifier       interfaces.TextClassifier
	Retriever        *retrieval.Retriever
	Assembler        *assembler.Assembler
	Extractor        *citation.Extractor
	AnswerService    interfaces.AnswerService
	QueryService     interfaces.QueryService
	IngestService    *ingest.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	QueryHandler  *handlers.QueryHandler
	RecordHandler *handlers.RecordHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	app.VectorStore = vector.NewMemoryStore(logger)

	app.EmbeddingService = embedding.NewOllamaService(&cfg.Embedding, logger)
	if !app.EmbeddingService.IsAvailable(context.Background()) {
		logger.Warn().
			Str("url", cfg.Embedding.BaseURL).
			Msg("Embedding backend unreachable, semantic search will be degraded")
	}

	llmService, err := llm.NewLLMService(&cfg.LLM, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize llm service: %w", err)
	}
	app.LLMService = llmService

	// The model-backed router needs a live provider; without one the
	// rule-based router covers every intent deterministically
	if llmService.GetMode() == interfaces.LLMModeDisabled {
		app.Classifier = classifier.NewRuleBasedClassifier()
	} else {
		app.Classifier = classifier.NewModelBackedClassifier(llmService, logger)
	}

	recordStorage := storageManager.RecordStorage()
	app.Retriever = retrieval.NewRetriever(recordStorage, app.VectorStore, app.EmbeddingService, &cfg.Retrieval, logger)
	app.Assembler = assembler.NewAssembler(&cfg.Context, logger)
	app.Extractor = citation.NewExtractor(&cfg.Citation, logger)
	app.AnswerService = answer.NewService(llmService, logger)

	app.QueryService = pipeline.NewService(
		app.Classifier,
		app.Retriever,
		app.Assembler,
		app.Extractor,
		app.AnswerService,
		logger,
	)

	app.IngestService = ingest.NewService(recordStorage, app.VectorStore, app.EmbeddingService, &cfg.Ingest, logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.QueryHandler = handlers.NewQueryHandler(app.QueryService, logger)
	app.RecordHandler = handlers.NewRecordHandler(recordStorage, logger)

	logger.Info().
		Str("classifier", app.Classifier.Name()).
		Str("llm_mode", string(llmService.GetMode())).
		Str("embedding_model", app.EmbeddingService.ModelName()).
		Msg("Application initialized")

	return app, nil
}

// LoadData seeds the stores from fixtures and starts the reindex scheduler
func (a *App) LoadData(ctx context.Context) error {
	count, err := a.IngestService.LoadFixtures(ctx)
	if err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	if stats, err := a.StorageManager.RecordStorage().GetStats(); err == nil {
		a.Logger.Info().
			Int("loaded", count).
			Int("total_records", stats.TotalRecords).
			Int("patients", stats.PatientCount).
			Int("indexed", a.VectorStore.Count()).
			Msg("Record store ready")
	}

	return a.IngestService.StartScheduler()
}

// Close releases application resources
func (a *App) Close() error {
	a.IngestService.StopScheduler()

	if err := a.LLMService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close llm service")
	}

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}

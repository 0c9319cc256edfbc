package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the YAML shape of a seed record file
type fixtureFile struct {
	Records []fixtureRecord `yaml:"records"`
}

type fixtureRecord struct {
	ID          string `yaml:"id"`
	PatientID   string `yaml:"patient_id"`
	PatientName string `yaml:"patient_name"`
	Date        string `yaml:"date"`
	RecordType  string `yaml:"record_type"`
	Text        string `yaml:"text"`
	Medication  string `yaml:"medication"`
	Diagnosis   string `yaml:"diagnosis"`
	LabResult   string `yaml:"lab_result"`
	Doctor      string `yaml:"doctor"`
}

// Service loads seed records from YAML fixtures, persists them, and keeps
// the vector index aligned with the record store. Reindex runs hold a
// mutex so a cron tick never overlaps a running pass.
type Service struct {
	storage          interfaces.RecordStorage
	vectorStore      interfaces.VectorStore
	embeddingService interfaces.EmbeddingService
	config           *common.IngestConfig
	logger           arbor.ILogger

	cron      *cron.Cron
	reindexMu sync.Mutex
}

func NewService(
	storage interfaces.RecordStorage,
	vectorStore interfaces.VectorStore,
	embeddingService interfaces.EmbeddingService,
	config *common.IngestConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		storage:          storage,
		vectorStore:      vectorStore,
		embeddingService: embeddingService,
		config:           config,
		logger:           logger,
	}
}

// LoadFixtures reads every YAML file in the fixtures directory, persists
// the records, and indexes their embeddings. A missing directory is not an
// error: the service simply starts with whatever the store already holds.
func (s *Service) LoadFixtures(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.config.FixturesDir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info().Str("dir", s.config.FixturesDir).Msg("No fixtures directory, skipping seed load")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read fixtures directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(s.config.FixturesDir, entry.Name()))
		}
	}
	sort.Strings(paths)

	total := 0
	for _, path := range paths {
		count, err := s.loadFile(ctx, path)
		if err != nil {
			return total, fmt.Errorf("failed to load %s: %w", path, err)
		}
		total += count
	}

	s.logger.Info().
		Int("records", total).
		Int("files", len(paths)).
		Msg("Fixture records loaded")

	return total, nil
}

func (s *Service) loadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("invalid fixture yaml: %w", err)
	}

	records := make([]*models.Record, 0, len(file.Records))
	for i, fixture := range file.Records {
		record, err := fixture.toRecord()
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, record)
	}

	if err := s.storage.SaveRecords(records); err != nil {
		return 0, fmt.Errorf("failed to persist records: %w", err)
	}

	indexed := 0
	for _, record := range records {
		if err := s.indexRecord(ctx, record); err != nil {
			// Keyword search still covers unindexed records
			s.logger.Warn().Err(err).Str("record_id", record.ID).Msg("Failed to index record embedding")
			continue
		}
		indexed++
	}

	s.logger.Debug().
		Str("file", filepath.Base(path)).
		Int("records", len(records)).
		Int("indexed", indexed).
		Msg("Fixture file loaded")

	return len(records), nil
}

func (fr fixtureRecord) toRecord() (*models.Record, error) {
	if fr.PatientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(fr.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	date, err := time.Parse("2006-01-02", fr.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", fr.Date, err)
	}

	recordType := models.RecordType(fr.RecordType)
	switch recordType {
	case models.RecordTypeVisit, models.RecordTypeLab, models.RecordTypeNote, models.RecordTypePrescription:
	default:
		return nil, fmt.Errorf("invalid record_type %q", fr.RecordType)
	}

	id := fr.ID
	if id == "" {
		id = common.NewRecordID()
	}

	now := time.Now()
	return &models.Record{
		ID:          id,
		PatientID:   fr.PatientID,
		PatientName: fr.PatientName,
		Date:        date,
		RecordType:  recordType,
		Text:        strings.TrimSpace(fr.Text),
		Medication:  fr.Medication,
		Diagnosis:   fr.Diagnosis,
		LabResult:   fr.LabResult,
		Doctor:      fr.Doctor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Service) indexRecord(ctx context.Context, record *models.Record) error {
	embedding, err := s.embeddingService.EmbedRecord(ctx, record)
	if err != nil {
		return err
	}
	return s.vectorStore.Index(ctx, record, embedding)
}

// Reindex re-embeds every stored record and replaces its vector entry,
// keeping one embedding per record
func (s *Service) Reindex(ctx context.Context) error {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	records, err := s.storage.ListRecords(0, 0)
	if err != nil {
		return fmt.Errorf("failed to list records for reindex: %w", err)
	}

	indexed := 0
	for _, record := range records {
		if err := s.indexRecord(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("record_id", record.ID).Msg("Failed to reindex record")
			continue
		}
		indexed++
	}

	s.logger.Info().
		Int("records", len(records)).
		Int("indexed", indexed).
		Msg("Reindex complete")

	return nil
}

// StartScheduler begins the periodic reindex if a schedule is configured
func (s *Service) StartScheduler() error {
	if s.config.ReindexSchedule == "" {
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.config.ReindexSchedule, func() {
		if err := s.Reindex(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled reindex failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reindex schedule %q: %w", s.config.ReindexSchedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.ReindexSchedule).Msg("Reindex scheduler started")
	return nil
}

// StopScheduler halts the periodic reindex, waiting for a running pass
func (s *Service) StopScheduler() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
	}
}

package badger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RecordStorage implements the RecordStorage interface for Badger
type RecordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecordStorage creates a new RecordStorage instance
func NewRecordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecordStorage {
	return &RecordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RecordStorage) SaveRecord(record *models.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *RecordStorage) SaveRecords(records []*models.Record) error {
	for _, record := range records {
		if err := s.SaveRecord(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *RecordStorage) GetRecord(id string) (*models.Record, error) {
	var record models.Record
	if err := s.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &record, nil
}

func (s *RecordStorage) DeleteRecord(id string) error {
	if err := s.db.Store().Delete(id, &models.Record{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *RecordStorage) ListRecords(limit, offset int) ([]*models.Record, error) {
	var records []models.Record
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	sortByDateDesc(records)

	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return toPointers(records), nil
}

func (s *RecordStorage) ListPatientRecords(patientID string) ([]*models.Record, error) {
	var records []models.Record
	err := s.db.Store().Find(&records, badgerhold.Where("PatientID").Eq(patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to list patient records: %w", err)
	}

	sortByDateDesc(records)
	return toPointers(records), nil
}

// SearchRecords executes a keyword/attribute query. Structured filters
// (patient, date range, type) run through badgerhold; free-text term
// matching is applied in Go the same way source-type and metadata filters
// are post-applied in the search service.
func (s *RecordStorage) SearchRecords(filters interfaces.RecordFilters) ([]*models.Record, error) {
	query := buildStructuredQuery(filters)

	var records []models.Record
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("record search failed: %w", err)
	}

	if len(filters.Terms) > 0 {
		records = filterByTerms(records, filters.Terms)
	}

	sortByDateDesc(records)

	if filters.Limit > 0 && len(records) > filters.Limit {
		records = records[:filters.Limit]
	}

	if s.logger != nil {
		s.logger.Debug().
			Str("patient_id", filters.PatientID).
			Int("terms", len(filters.Terms)).
			Int("results", len(records)).
			Msg("Record search completed")
	}

	return toPointers(records), nil
}

func (s *RecordStorage) GetStats() (*models.RecordStats, error) {
	var records []models.Record
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	stats := &models.RecordStats{
		TotalRecords:  len(records),
		RecordsByType: make(map[string]int),
		LastUpdated:   time.Now(),
	}

	patients := make(map[string]bool)
	for i := range records {
		stats.RecordsByType[string(records[i].RecordType)]++
		patients[records[i].PatientID] = true
	}
	stats.PatientCount = len(patients)

	return stats, nil
}

func (s *RecordStorage) Close() error {
	// Connection lifecycle is owned by the manager
	return nil
}

// buildStructuredQuery translates the attribute filters into a badgerhold query
func buildStructuredQuery(filters interfaces.RecordFilters) *badgerhold.Query {
	var query *badgerhold.Query

	and := func(field string) *badgerhold.Criterion {
		if query == nil {
			return badgerhold.Where(field)
		}
		return query.And(field)
	}

	if filters.PatientID != "" {
		query = and("PatientID").Eq(filters.PatientID)
	}
	if filters.RecordType != "" {
		query = and("RecordType").Eq(filters.RecordType)
	}
	if !filters.DateFrom.IsZero() {
		query = and("Date").Ge(filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = and("Date").Le(filters.DateTo)
	}

	return query
}

// filterByTerms keeps records whose text or parsed fields contain any of
// the terms, case-insensitively
func filterByTerms(records []models.Record, terms []string) []models.Record {
	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lowered = append(lowered, term)
		}
	}
	if len(lowered) == 0 {
		return records
	}

	matched := make([]models.Record, 0, len(records))
	for i := range records {
		haystack := strings.ToLower(records[i].Text + " " +
			records[i].Medication + " " +
			records[i].Diagnosis + " " +
			records[i].LabResult)
		for _, term := range lowered {
			if strings.Contains(haystack, term) {
				matched = append(matched, records[i])
				break
			}
		}
	}
	return matched
}

func sortByDateDesc(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

func toPointers(records []models.Record) []*models.Record {
	result := make([]*models.Record, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result
}

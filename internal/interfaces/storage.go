package interfaces

import (
	"time"

	"github.com/ternarybob/medgraph/internal/models"
)

// RecordFilters constrains a structured-store query. Zero values mean
// "no constraint" for that dimension.
type RecordFilters struct {
	// PatientID restricts results to a single patient
	PatientID string

	// DateFrom / DateTo bound the record date (inclusive)
	DateFrom time.Time
	DateTo   time.Time

	// RecordType restricts by record kind (visit, lab, note, prescription)
	RecordType models.RecordType

	// Terms are matched case-insensitively against the record text and the
	// parsed medication/diagnosis/lab fields. A record matches when any
	// term matches (LIKE semantics).
	Terms []string

	// Limit caps the number of results (0 = storage default)
	Limit int
}

// RecordStorage persists medical records. The retrieval core only reads;
// writes happen through ingestion.
type RecordStorage interface {
	SaveRecord(record *models.Record) error
	SaveRecords(records []*models.Record) error
	GetRecord(id string) (*models.Record, error)
	DeleteRecord(id string) error

	// ListRecords returns records ordered by date descending
	ListRecords(limit, offset int) ([]*models.Record, error)

	// ListPatientRecords returns every record for one patient, date descending
	ListPatientRecords(patientID string) ([]*models.Record, error)

	// SearchRecords executes a keyword/attribute query per the filters
	SearchRecords(filters RecordFilters) ([]*models.Record, error)

	// GetStats returns corpus-level record statistics
	GetStats() (*models.RecordStats, error)

	Close() error
}

// StorageManager provides access to all storage implementations
type StorageManager interface {
	RecordStorage() RecordStorage
	Close() error
}

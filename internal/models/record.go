package models

import (
	"time"
)

// RecordType identifies the kind of medical record
type RecordType string

const (
	RecordTypeVisit        RecordType = "visit"
	RecordTypeLab          RecordType = "lab"
	RecordTypeNote         RecordType = "note"
	RecordTypePrescription RecordType = "prescription"
)

// Record represents a normalized medical record from any source.
// Records are immutable after ingestion: they are created once, never
// mutated in place, and retired only by a full reload.
type Record struct {
	// Identity
	ID          string `json:"id"` // rec_{uuid}
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`

	// Content
	Date       time.Time  `json:"date"` // Calendar date of the clinical event
	RecordType RecordType `json:"record_type"`
	Text       string     `json:"text"` // Free-form record body

	// Structured fields parsed from the record text at ingestion time.
	// Empty when the source record carries no such field.
	Medication string `json:"medication,omitempty"`
	Diagnosis  string `json:"diagnosis,omitempty"`
	LabResult  string `json:"lab_result,omitempty"`
	Doctor     string `json:"doctor,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordStats represents statistics about the record corpus
type RecordStats struct {
	TotalRecords  int            `json:"total_records"`
	RecordsByType map[string]int `json:"records_by_type"`
	PatientCount  int            `json:"patient_count"`
	LastUpdated   time.Time      `json:"last_updated"`
}

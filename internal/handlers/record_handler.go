package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

// RecordHandler handles HTTP requests for stored medical records
type RecordHandler struct {
	storage interfaces.RecordStorage
	logger  arbor.ILogger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(storage interfaces.RecordStorage, logger arbor.ILogger) *RecordHandler {
	return &RecordHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/records
func (h *RecordHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit, offset := GetPaginationParams(r)
	records, err := h.storage.ListRecords(limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list records")
		WriteError(w, http.StatusInternalServerError, "Failed to list records")
		return
	}
	if records == nil {
		records = []*models.Record{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"limit":   limit,
		"offset":  offset,
	})
}

// StatsHandler handles GET /api/records/stats
func (h *RecordHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.storage.GetStats()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute record stats")
		WriteError(w, http.StatusInternalServerError, "Failed to compute record stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// PatientRecordsHandler handles GET /api/patients/{id}/records
func (h *RecordHandler) PatientRecordsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	patientID := extractPatientID(r.URL.Path)
	if patientID == "" {
		WriteError(w, http.StatusBadRequest, "Patient ID is required")
		return
	}

	records, err := h.storage.ListPatientRecords(patientID)
	if err != nil {
		h.logger.Error().Err(err).Str("patient_id", patientID).Msg("Failed to list patient records")
		WriteError(w, http.StatusInternalServerError, "Failed to list patient records")
		return
	}
	if records == nil {
		records = []*models.Record{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"patient_id": patientID,
		"records":    records,
		"count":      len(records),
	})
}

// extractPatientID pulls the id segment from /api/patients/{id}/records
func extractPatientID(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/patients/")
	if trimmed == path {
		return ""
	}
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

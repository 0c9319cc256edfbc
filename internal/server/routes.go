package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Query pipeline
	mux.HandleFunc("/api/query", s.app.QueryHandler.QueryHandler) // POST - answer a question with citations

	// API routes - Records
	mux.HandleFunc("/api/records/stats", s.app.RecordHandler.StatsHandler)
	mux.HandleFunc("/api/records", s.app.RecordHandler.ListHandler)
	mux.HandleFunc("/api/patients/", s.handlePatientRoutes) // GET /{id}/records

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handlePatientRoutes routes patient-scoped requests
func (s *Server) handlePatientRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/records") {
		s.app.RecordHandler.PatientRecordsHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

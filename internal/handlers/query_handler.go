package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
	"github.com/ternarybob/medgraph/internal/services/retrieval"
)

var validate = validator.New()

// QueryRequest is the POST /api/query payload
type QueryRequest struct {
	Question   string `json:"question" validate:"required,min=3,max=1000"`
	PatientID  string `json:"patient_id" validate:"omitempty,max=64"`
	MaxSources int    `json:"max_sources" validate:"omitempty,min=1,max=20"`
}

// QueryResponse is the answer payload returned to clients
type QueryResponse struct {
	Answer    string             `json:"answer"`
	Citations []*models.Citation `json:"citations"`
	Intent    models.Intent      `json:"intent"`
	Trace     *models.AgentTrace `json:"agent_trace"`
}

// QueryHandler handles HTTP requests for the query pipeline
type QueryHandler struct {
	queryService interfaces.QueryService
	logger       arbor.ILogger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(queryService interfaces.QueryService, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// QueryHandler handles POST /api/query
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := validate.Struct(&req); err != nil {
		h.logger.Debug().Err(err).Msg("Query request rejected")
		WriteError(w, http.StatusBadRequest, "Invalid query: "+err.Error())
		return
	}

	result, err := h.queryService.AnswerQuery(r.Context(), &models.Query{
		Question:   req.Question,
		PatientID:  req.PatientID,
		MaxSources: req.MaxSources,
	})
	if err != nil {
		if errors.Is(err, retrieval.ErrRetrievalUnavailable) {
			WriteError(w, http.StatusServiceUnavailable, "Record retrieval is unavailable")
			return
		}
		h.logger.Error().Err(err).Msg("Query failed")
		WriteError(w, http.StatusInternalServerError, "Query failed")
		return
	}

	citations := result.Citations
	if citations == nil {
		citations = []*models.Citation{}
	}

	WriteJSON(w, http.StatusOK, QueryResponse{
		Answer:    result.Answer,
		Citations: citations,
		Intent:    result.Intent,
		Trace:     result.Trace,
	})
}

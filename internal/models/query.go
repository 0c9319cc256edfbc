package models

import (
	"time"
)

// Intent is the classified category of a user question. It steers the
// retrieval filters and the context emphasis downstream. The enumeration is
// closed: a question maps to exactly one intent, with IntentGeneral as the
// fallback for anything ambiguous.
type Intent string

const (
	IntentMedication Intent = "MEDICATION"
	IntentDiagnosis  Intent = "DIAGNOSIS"
	IntentLabResults Intent = "LAB_RESULTS"
	IntentTimeline   Intent = "TIMELINE"
	IntentGeneral    Intent = "GENERAL"
)

// Intents lists every valid intent in classification priority order
func Intents() []Intent {
	return []Intent{IntentMedication, IntentDiagnosis, IntentLabResults, IntentTimeline, IntentGeneral}
}

// DefaultMaxSources bounds citation output when the caller does not specify one
const DefaultMaxSources = 5

// Query is an ephemeral question about patient history
type Query struct {
	Question   string `json:"question"`
	PatientID  string `json:"patient_id,omitempty"` // Optional patient filter
	MaxSources int    `json:"max_sources,omitempty"`
}

// Provenance tags which search mode produced a candidate
type Provenance string

const (
	ProvenanceSemantic Provenance = "semantic"
	ProvenanceKeyword  Provenance = "keyword"
	ProvenanceBoth     Provenance = "both"
)

// Candidate pairs a record with its relevance signals for a single query.
// Candidates are produced fresh per query and never persisted.
type Candidate struct {
	Record *Record `json:"record"`

	// SemanticScore is the cosine similarity from the vector store (0 when
	// the record was not a semantic hit). KeywordScore is the structured
	// match strength (0 when not a keyword hit). Combined is the fused
	// ranking score.
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	Combined      float64 `json:"combined"`

	Provenance Provenance `json:"provenance"`
}

// Context is the ordered, trimmed evidence handed to citation extraction
// and answer generation
type Context struct {
	Intent  Intent       `json:"intent"`
	Records []*Candidate `json:"records"` // Assembly order (see assembler)

	Summary      string                  `json:"summary"`
	KeyFindings  []string                `json:"key_findings"`
	PatientGroup map[string][]*Candidate `json:"patient_groups,omitempty"`

	// TotalChars is the combined record text size after budget trimming
	TotalChars int `json:"total_chars"`
}

// Citation links an answer claim to a source record
type Citation struct {
	SourceID    string     `json:"source_id"`
	PatientID   string     `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Date        time.Time  `json:"date"`
	RecordType  RecordType `json:"record_type"`
	Text        string     `json:"text"`       // Extracted span, possibly truncated
	Confidence  float64    `json:"confidence"` // Always in [0,1]
}

// PipelineStage labels progress through the query pipeline
type PipelineStage string

const (
	StageReceived   PipelineStage = "received"
	StageClassified PipelineStage = "classified"
	StageRetrieved  PipelineStage = "retrieved"
	StageAssembled  PipelineStage = "assembled"
	StageCited      PipelineStage = "cited"
	StageDone       PipelineStage = "done"
	StageFailed     PipelineStage = "failed"
)

// AgentTrace records how a query moved through the pipeline
type AgentTrace struct {
	RouterDecision  Intent          `json:"router_decision"`
	StagesRun       []PipelineStage `json:"stages_run"`
	Degraded        bool            `json:"degraded"` // One retrieval adapter was unavailable
	RetrievalTimeMS int64           `json:"retrieval_time_ms"`
	TotalTimeMS     int64           `json:"total_time_ms"`
}

// QueryResult is the full pipeline output consumed by the HTTP layer
type QueryResult struct {
	Answer    string      `json:"answer"`
	Citations []*Citation `json:"citations"`
	Context   *Context    `json:"-"` // Internal: not serialized in API responses
	Intent    Intent      `json:"intent"`
	Trace     *AgentTrace `json:"agent_trace"`
}

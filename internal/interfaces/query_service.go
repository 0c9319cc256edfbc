package interfaces

import (
	"context"

	"github.com/ternarybob/medgraph/internal/models"
)

// AnswerService drafts a prose answer from assembled evidence. The pipeline
// treats answer phrasing as a pluggable capability: it calls the service
// with the assembled context and citations and never inspects how the text
// is produced.
type AnswerService interface {
	GenerateAnswer(ctx context.Context, question string, context *models.Context, citations []*models.Citation) (string, error)
}

// QueryService runs the full retrieval-and-citation pipeline for one query.
//
// The only error it returns is retrieval unavailability (both stores down);
// every other condition resolves to a valid, possibly empty, result.
type QueryService interface {
	AnswerQuery(ctx context.Context, query *models.Query) (*models.QueryResult, error)
}

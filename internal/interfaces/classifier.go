package interfaces

import (
	"context"

	"github.com/ternarybob/medgraph/internal/models"
)

// TextClassifier maps a free-text question to exactly one intent.
//
// Classification never fails from the caller's point of view: ambiguous or
// unrecognized input classifies as IntentGeneral, and implementations that
// depend on an external model fall back to IntentGeneral when the model is
// unreachable. Given the same question and the same underlying rule set or
// model version, the result is deterministic. No observable side effects.
type TextClassifier interface {
	Classify(ctx context.Context, question string) models.Intent

	// Name identifies the classification capability (for the agent trace)
	Name() string
}

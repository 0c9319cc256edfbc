package classifier

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/interfaces"
	"github.com/ternarybob/medgraph/internal/models"
)

const routerPrompt = `You are a medical query router. Classify the following question into ONE category:

Categories:
1. MEDICATION - Questions about medications, prescriptions, drug names
2. DIAGNOSIS - Questions about diagnoses, conditions, diseases
3. LAB_RESULTS - Questions about lab tests, test results, measurements
4. TIMELINE - Questions about medical history, visit dates, chronological events
5. GENERAL - General questions about patient health or multiple topics

Question: %QUESTION%

Respond with ONLY the category name (e.g., MEDICATION).
Category:`

// ModelBackedClassifier classifies questions with an LLM chat call. Any
// model failure or unrecognized reply falls back to GENERAL, so callers
// never see an error. Deterministic for a fixed model version since the
// prompt carries no sampling variation the pipeline depends on.
type ModelBackedClassifier struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

// NewModelBackedClassifier creates an LLM-backed text classifier
func NewModelBackedClassifier(llmService interfaces.LLMService, logger arbor.ILogger) *ModelBackedClassifier {
	return &ModelBackedClassifier{
		llmService: llmService,
		logger:     logger,
	}
}

// Classify maps a free-text question to exactly one intent
func (c *ModelBackedClassifier) Classify(ctx context.Context, question string) models.Intent {
	prompt := strings.Replace(routerPrompt, "%QUESTION%", question, 1)

	response, err := c.llmService.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Model classification failed, defaulting to GENERAL")
		return models.IntentGeneral
	}

	reply := strings.ToUpper(strings.TrimSpace(response))
	for _, intent := range models.Intents() {
		if strings.Contains(reply, string(intent)) {
			return intent
		}
	}

	c.logger.Debug().Str("response", reply).Msg("Unrecognized classification reply, defaulting to GENERAL")
	return models.IntentGeneral
}

// Name identifies this classification capability
func (c *ModelBackedClassifier) Name() string {
	return "model-backed"
}

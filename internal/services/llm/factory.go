package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medgraph/internal/common"
	"github.com/ternarybob/medgraph/internal/interfaces"
)

// NewLLMService creates the appropriate LLM service implementation based on
// configuration. Provider "disabled" returns a service whose consumers fall
// back to deterministic behavior.
func NewLLMService(cfg *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", cfg.Provider).Msg("Initializing LLM service")

	switch cfg.Provider {
	case "claude":
		return NewClaudeService(&cfg.Claude, logger)

	case "gemini":
		return NewGeminiService(&cfg.Gemini, logger)

	case "disabled":
		return NewDisabledService(logger), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (must be claude, gemini, or disabled)", cfg.Provider)
	}
}

// DisabledService is the no-backend LLM service. Every chat call fails with
// a recognizable error so callers take their deterministic fallback path.
type DisabledService struct {
	logger arbor.ILogger
}

// NewDisabledService creates the disabled LLM service
func NewDisabledService(logger arbor.ILogger) *DisabledService {
	return &DisabledService{logger: logger}
}

// Chat always fails: there is no backend to call
func (s *DisabledService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("llm provider is disabled")
}

// HealthCheck reports the disabled state
func (s *DisabledService) HealthCheck(ctx context.Context) error {
	return fmt.Errorf("llm provider is disabled")
}

// GetMode returns the disabled mode
func (s *DisabledService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeDisabled
}

// Close is a no-op
func (s *DisabledService) Close() error {
	return nil
}

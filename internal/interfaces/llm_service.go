package interfaces

import (
	"context"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeDisabled indicates no LLM backend is configured; consumers
	// fall back to deterministic behavior (rule-based classification,
	// templated answers)
	LLMModeDisabled LLMMode = "disabled"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines chat-completion operations used by the model-backed
// classifier and the answer service. Implementations may use Anthropic
// Claude or Google Gemini.
type LLMService interface {
	// Chat generates a completion from the conversation history. The
	// messages slice carries the full context including system prompts.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the service can handle requests
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode
	GetMode() LLMMode

	// Close releases client resources
	Close() error
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	LLM         LLMConfig       `toml:"llm"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Context     ContextConfig   `toml:"context"`
	Citation    CitationConfig  `toml:"citation"`
	Ingest      IngestConfig    `toml:"ingest"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// EmbeddingConfig configures the Ollama embedding backend
type EmbeddingConfig struct {
	BaseURL        string        `toml:"base_url"` // Ollama endpoint
	Model          string        `toml:"model"`    // e.g. "nomic-embed-text"
	Dimension      int           `toml:"dimension"`
	Timeout        time.Duration `toml:"timeout"`
	RequestsPerSec float64       `toml:"requests_per_sec"` // Rate limit toward the backend
}

// LLMConfig selects and configures the chat-completion provider
type LLMConfig struct {
	// Provider is "claude", "gemini", or "disabled". Disabled runs the
	// pipeline with rule-based classification and templated answers.
	Provider string `toml:"provider"`

	Claude ClaudeConfig `toml:"claude"`
	Gemini GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey    string        `toml:"api_key"`
	Model     string        `toml:"model"`
	MaxTokens int           `toml:"max_tokens"`
	Timeout   time.Duration `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey  string        `toml:"api_key"`
	Model   string        `toml:"model"`
	Timeout time.Duration `toml:"timeout"`
}

// RetrievalConfig tunes the hybrid retriever. The fusion weights are
// heuristic constants: tests assert monotonicity and bounds, not these
// exact numbers.
type RetrievalConfig struct {
	SemanticWeight float64       `toml:"semantic_weight"` // Semantic contribution to the fused score
	KeywordWeight  float64       `toml:"keyword_weight"`  // Keyword contribution to the fused score
	Headroom       int           `toml:"headroom"`        // Candidate multiple kept beyond max_sources
	StoreTimeout   time.Duration `toml:"store_timeout"`   // Per-adapter call timeout
}

// ContextConfig bounds the assembled context
type ContextConfig struct {
	MaxChars int `toml:"max_chars"` // Character budget for combined record text
}

// CitationConfig tunes evidence extraction
type CitationConfig struct {
	RetrievalWeight  float64 `toml:"retrieval_weight"`   // Retrieval score share of confidence
	RelevanceWeight  float64 `toml:"relevance_weight"`   // Span relevance share of confidence
	MinSpanRelevance float64 `toml:"min_span_relevance"` // Below this, fall back to leading excerpt
	LowConfidence    float64 `toml:"low_confidence"`     // Threshold for citations yielding to stronger ones
	ExcerptLength    int     `toml:"excerpt_length"`     // Leading-excerpt fallback size
}

// IngestConfig configures record loading and re-indexing
type IngestConfig struct {
	FixturesDir     string `toml:"fixtures_dir"`     // Directory of YAML record files loaded at startup
	ReindexSchedule string `toml:"reindex_schedule"` // Cron schedule for embedding reconciliation ("" = disabled)
}

// NewDefaultConfig returns the configuration defaults applied before any
// file or environment override
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/medgraph",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "nomic-embed-text",
			Dimension:      768,
			Timeout:        30 * time.Second,
			RequestsPerSec: 10,
		},
		LLM: LLMConfig{
			Provider: "disabled",
			Claude: ClaudeConfig{
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 1024,
				Timeout:   60 * time.Second,
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Timeout: 60 * time.Second,
			},
		},
		Retrieval: RetrievalConfig{
			SemanticWeight: 0.6,
			KeywordWeight:  0.4,
			Headroom:       2,
			StoreTimeout:   5 * time.Second,
		},
		Context: ContextConfig{
			MaxChars: 8000,
		},
		Citation: CitationConfig{
			RetrievalWeight:  0.75,
			RelevanceWeight:  0.25,
			MinSpanRelevance: 0.1,
			LowConfidence:    0.2,
			ExcerptLength:    200,
		},
		Ingest: IngestConfig{
			FixturesDir:     "./data/records",
			ReindexSchedule: "",
		},
	}
}

// LoadFromFiles loads configuration by merging defaults, one or more TOML
// files in order, and environment overrides. Later files override earlier
// ones. Passing no paths yields defaults plus env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies MEDGRAPH_* environment variables on top of the
// file configuration
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MEDGRAPH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("MEDGRAPH_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("MEDGRAPH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("MEDGRAPH_STORAGE_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("MEDGRAPH_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.Claude.APIKey == "" {
		config.LLM.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.LLM.Gemini.APIKey == "" {
		config.LLM.Gemini.APIKey = v
	}
	if v := os.Getenv("MEDGRAPH_OLLAMA_URL"); v != "" {
		config.Embedding.BaseURL = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Retrieval.SemanticWeight <= 0 || c.Retrieval.KeywordWeight <= 0 {
		return fmt.Errorf("fusion weights must be positive (semantic=%v keyword=%v)",
			c.Retrieval.SemanticWeight, c.Retrieval.KeywordWeight)
	}
	if c.Retrieval.Headroom < 1 {
		return fmt.Errorf("retrieval headroom must be at least 1, got %d", c.Retrieval.Headroom)
	}
	if c.Context.MaxChars <= 0 {
		return fmt.Errorf("context max_chars must be positive, got %d", c.Context.MaxChars)
	}
	if w := c.Citation.RetrievalWeight + c.Citation.RelevanceWeight; w <= 0 || w > 1.0+1e-9 {
		return fmt.Errorf("citation weights must sum to (0,1], got %v", w)
	}
	switch c.LLM.Provider {
	case "claude", "gemini", "disabled":
	default:
		return fmt.Errorf("invalid llm provider %q: must be claude, gemini, or disabled", c.LLM.Provider)
	}
	return nil
}

// IsProduction returns true when running with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

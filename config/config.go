// Package config loads runtime configuration from a .env file and the
// process environment, with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the agent needs to run.
type Config struct {
	// AnthropicAPIKey authenticates the model provider. Required.
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`

	// AnthropicModel selects the model; empty uses the provider default.
	AnthropicModel string `mapstructure:"ANTHROPIC_MODEL"`

	// MemoryBackend selects the knowledge store: "graphiti" for the remote
	// service, "local" for the embedded in-process store.
	MemoryBackend string `mapstructure:"MEMORY_BACKEND"`

	// GraphitiBaseURL points at the knowledge graph service.
	GraphitiBaseURL string `mapstructure:"GRAPHITI_BASE_URL"`

	// TavilyAPIKey enables web search; empty disables the tool.
	TavilyAPIKey string `mapstructure:"TAVILY_API_KEY"`

	// AgentName is the persona used in the system prompt.
	AgentName string `mapstructure:"AGENT_NAME"`

	// HistoryTurns bounds the in-memory conversation window.
	HistoryTurns int `mapstructure:"CONVERSATION_HISTORY_LIMIT"`

	// ContextTimeoutMS bounds context retrieval per turn.
	ContextTimeoutMS int `mapstructure:"CONTEXT_TIMEOUT_MS"`

	// ContextResults is the number of facts requested per retrieval.
	ContextResults int `mapstructure:"CONTEXT_RESULTS"`

	// ToolTimeoutMS bounds each tool invocation.
	ToolTimeoutMS int `mapstructure:"TOOL_TIMEOUT_MS"`

	// MaxToolRounds bounds tool-requesting rounds per turn.
	MaxToolRounds int `mapstructure:"MAX_TOOL_ROUNDS"`

	// PersistWorkers sizes the write-behind worker pool.
	PersistWorkers int `mapstructure:"PERSIST_WORKERS"`

	// PersistQueueSize bounds the write-behind intake queue.
	PersistQueueSize int `mapstructure:"PERSIST_QUEUE_SIZE"`

	// PersistMaxAttempts bounds delivery attempts per turn.
	PersistMaxAttempts int `mapstructure:"PERSIST_MAX_ATTEMPTS"`

	// CloseGraceMS bounds the drain wait on shutdown.
	CloseGraceMS int `mapstructure:"CLOSE_GRACE_MS"`

	// CacheTTLMS is the retrieval cache entry lifetime.
	CacheTTLMS int `mapstructure:"CACHE_TTL_MS"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// LogFile, when set, receives the structured log stream.
	LogFile string `mapstructure:"LOG_FILE"`
}

// ErrMissingAPIKey reports an absent ANTHROPIC_API_KEY.
var ErrMissingAPIKey = errors.New("config: ANTHROPIC_API_KEY is required")

// Load reads .env from the working directory (if present), overlays the
// process environment, and applies defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Keys without a meaningful default still need registering: viper only
	// consults the environment for keys it knows about.
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("TAVILY_API_KEY", "")
	v.SetDefault("ANTHROPIC_MODEL", "")
	v.SetDefault("MEMORY_BACKEND", "graphiti")
	v.SetDefault("GRAPHITI_BASE_URL", "http://localhost:8000")
	v.SetDefault("AGENT_NAME", "Knowledge Graph Agent")
	v.SetDefault("CONVERSATION_HISTORY_LIMIT", 10)
	v.SetDefault("CONTEXT_TIMEOUT_MS", 1500)
	v.SetDefault("CONTEXT_RESULTS", 5)
	v.SetDefault("TOOL_TIMEOUT_MS", 3000)
	v.SetDefault("MAX_TOOL_ROUNDS", 1)
	v.SetDefault("PERSIST_WORKERS", 2)
	v.SetDefault("PERSIST_QUEUE_SIZE", 64)
	v.SetDefault("PERSIST_MAX_ATTEMPTS", 3)
	v.SetDefault("CLOSE_GRACE_MS", 5000)
	v.SetDefault("CACHE_TTL_MS", 60000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	// A missing .env is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and bounds.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.MemoryBackend {
	case "graphiti", "local":
	default:
		return fmt.Errorf("config: unknown MEMORY_BACKEND %q", c.MemoryBackend)
	}
	if c.HistoryTurns <= 0 {
		return errors.New("config: CONVERSATION_HISTORY_LIMIT must be positive")
	}
	if c.PersistWorkers <= 0 {
		return errors.New("config: PERSIST_WORKERS must be positive")
	}
	if c.PersistMaxAttempts <= 0 {
		return errors.New("config: PERSIST_MAX_ATTEMPTS must be positive")
	}
	if c.MaxToolRounds < 0 {
		return errors.New("config: MAX_TOOL_ROUNDS must not be negative")
	}
	return nil
}

// ContextTimeout returns the retrieval budget as a duration.
func (c *Config) ContextTimeout() time.Duration {
	return time.Duration(c.ContextTimeoutMS) * time.Millisecond
}

// ToolTimeout returns the per-tool budget as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutMS) * time.Millisecond
}

// CloseGrace returns the shutdown drain budget as a duration.
func (c *Config) CloseGrace() time.Duration {
	return time.Duration(c.CloseGraceMS) * time.Millisecond
}

// CacheTTL returns the retrieval cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level MediSync configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Bus      BusConfig      `json:"bus"`
	Registry RegistryConfig `json:"registry"`
	Model    ModelConfig    `json:"model"`
	Logging  LoggingConfig  `json:"logging"`
}

// BusConfig holds message bus settings.
type BusConfig struct {
	// MaxQueueSize bounds the pending message queue. Oldest messages are
	// evicted when the bound is hit.
	MaxQueueSize int `json:"maxQueueSize,omitempty"`
	// DispatchPolicy is "generic_first" or "specific_first".
	DispatchPolicy string `json:"dispatchPolicy,omitempty"`
}

// RegistryConfig holds tool registry settings.
type RegistryConfig struct {
	ServerName string `json:"serverName,omitempty"`
	Version    string `json:"version,omitempty"`
}

// ModelConfig holds language model settings.
type ModelConfig struct {
	// Provider selects the completion backend: "anthropic", "openai",
	// or "mock".
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// API keys are normally supplied via environment variables
	// (ANTHROPIC_API_KEY, OPENAI_API_KEY) rather than the config file.
	AnthropicAPIKey string `json:"anthropicApiKey,omitempty"`
	OpenAIAPIKey    string `json:"openaiApiKey,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
	// JSON switches the log output from text to JSON.
	JSON bool `json:"json,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Bus: BusConfig{
			MaxQueueSize:   1000,
			DispatchPolicy: "generic_first",
		},
		Registry: RegistryConfig{
			ServerName: "MediSync Tool Registry",
			Version:    "1.0.0",
		},
		Model: ModelConfig{
			Provider:    "mock",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

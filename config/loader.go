package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrMissingAPIKey is returned by Validate when the selected model
// provider has no API key configured.
var ErrMissingAPIKey = errors.New("missing API key")

// GetConfigPath returns the default config file path (~/.medisync/config.json).
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".medisync", "config.json")
}

// Load reads configuration from a JSON file and applies environment
// overrides. If path is empty, uses the default config path. If the file
// doesn't exist, returns DefaultConfig() with overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return Config{}, err
	}

	// start with defaults so zero-value fields get filled
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return applyEnv(cfg), nil
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the selected model provider is usable. The key
// values themselves are never included in errors or logs.
func (c Config) Validate() error {
	switch c.Model.Provider {
	case "", "mock":
		return nil
	case "anthropic":
		if c.Model.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrMissingAPIKey)
		}
	case "openai":
		if c.Model.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	return nil
}

// applyEnv layers environment variables over the file-derived config.
// MEDISYNC_* variables take precedence over the file; provider API keys
// come from their conventional variables.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("MEDISYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEDISYNC_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Bus.MaxQueueSize = n
		}
	}
	if v := os.Getenv("MEDISYNC_DISPATCH_POLICY"); v != "" {
		cfg.Bus.DispatchPolicy = v
	}
	if v := os.Getenv("MEDISYNC_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("MEDISYNC_MODEL"); v != "" {
		cfg.Model.Model = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Model.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Model.OpenAIAPIKey = v
	}
	return cfg
}

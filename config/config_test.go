package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Bus.MaxQueueSize)
	assert.Equal(t, "generic_first", cfg.Bus.DispatchPolicy)
	assert.Equal(t, "MediSync Tool Registry", cfg.Registry.ServerName)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bus":{"maxQueueSize":5}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Bus.MaxQueueSize)
	// untouched fields keep defaults
	assert.Equal(t, "generic_first", cfg.Bus.DispatchPolicy)
	assert.Equal(t, "1.0.0", cfg.Registry.Version)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{nope`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Bus.MaxQueueSize = 42
	cfg.Model.Provider = "anthropic"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Bus.MaxQueueSize)
	assert.Equal(t, "anthropic", loaded.Model.Provider)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDISYNC_LOG_LEVEL", "debug")
	t.Setenv("MEDISYNC_MAX_QUEUE_SIZE", "7")
	t.Setenv("MEDISYNC_DISPATCH_POLICY", "specific_first")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Bus.MaxQueueSize)
	assert.Equal(t, "specific_first", cfg.Bus.DispatchPolicy)
	assert.Equal(t, "test-key", cfg.Model.AnthropicAPIKey)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Model.Provider = "anthropic"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	cfg.Model.AnthropicAPIKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg.Model.Provider = "openai"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	cfg.Model.OpenAIAPIKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg.Model.Provider = "gemini"
	assert.Error(t, cfg.Validate())
}

func TestEnvOverrideBadNumberIgnored(t *testing.T) {
	t.Setenv("MEDISYNC_MAX_QUEUE_SIZE", "lots")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Bus.MaxQueueSize)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.LLM.Model, cfg.LLM.Model)
	assert.Equal(t, def.History.Backend, cfg.History.Backend)
	assert.Equal(t, def.Tools.MaxRounds, cfg.Tools.MaxRounds)
	assert.NotEmpty(t, cfg.SystemPrompt)
}

func TestLoadMalformedFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.LLM.Model = "gpt-4o"
	cfg.History.Backend = "sqlite"
	cfg.History.Path = "/tmp/h.db"
	cfg.Tools.MaxRounds = 8
	require.NoError(t, Save(&cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.LLM.Model)
	assert.Equal(t, "sqlite", got.History.Backend)
	assert.Equal(t, 8, got.Tools.MaxRounds)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-env")
	t.Setenv("DRIFTBOT_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "tg-env", cfg.Telegram.Token)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesMatchProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	require.NoError(t, Save(&cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-anthropic", got.LLM.APIKey)
}

func TestRetentionMaxAge(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Duration(0), cfg.RetentionMaxAge())

	cfg.Retention.MaxAge = "72h"
	assert.Equal(t, 72*time.Hour, cfg.RetentionMaxAge())

	cfg.Retention.MaxAge = "bogus"
	assert.Equal(t, time.Duration(0), cfg.RetentionMaxAge())
}

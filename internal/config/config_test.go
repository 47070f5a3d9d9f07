package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MinLength)
	assert.Equal(t, 3, cfg.Engine.RepeatWindow)
	assert.Equal(t, 900*time.Second, cfg.Engine.DwellLimit)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, time.Second, cfg.Engine.BackoffUnit)
	assert.Equal(t, 3, cfg.Engine.HelpThreshold)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "offline", cfg.Backend.Provider)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
engine:
  min_input_length: 8
  backoff_unit: 250ms
  call_timeout: 10s
  skip_keywords: [skip, pass]
store:
  driver: sqlite
  path: coach.db
backend:
  provider: openai
  api_key: sk-test
  model: gpt-4o
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.MinLength)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.BackoffUnit)
	assert.Equal(t, 10*time.Second, cfg.Engine.CallTimeout)
	assert.Equal(t, []string{"skip", "pass"}, cfg.Engine.SkipKeywords)
	assert.Equal(t, 3, cfg.Engine.RepeatWindow, "unset keys keep their defaults")
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "gpt-4o", cfg.Backend.Model)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "backend:\n  model: from-file\n")
	t.Setenv(EnvBackend, "openai")
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Setenv(EnvOpenAIModel, "from-env")
	t.Setenv(EnvStoreDriver, "memory")
	t.Setenv(EnvMaxRetries, "1")
	t.Setenv(EnvCallTimeout, "2s")
	t.Setenv(EnvMetrics, "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Backend.Provider)
	assert.Equal(t, "sk-env", cfg.Backend.APIKey)
	assert.Equal(t, "from-env", cfg.Backend.Model)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 1, cfg.Engine.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Engine.CallTimeout)
	assert.True(t, cfg.Server.Metrics)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "unknown driver", body: "store:\n  driver: mongo\n", want: "Driver"},
		{name: "openai without key", body: "backend:\n  provider: openai\n", want: "APIKey"},
		{name: "sqlite without path", body: "store:\n  driver: sqlite\n  path: \"\"\n", want: "store.path"},
		{name: "bad retry count", body: "engine:\n  max_retries: 50\n", want: "MaxRetries"},
		{name: "short key", body: "store:\n  encryption_key: " + base64.StdEncoding.EncodeToString([]byte("short")) + "\n", want: "32 bytes"},
		{name: "bad yaml", body: "engine: [", want: "failed to parse"},
		{name: "bad env int", env: map[string]string{EnvRedisDB: "zero"}, want: EnvRedisDB},
		{name: "bad env duration", env: map[string]string{EnvCallTimeout: "soon"}, want: EnvCallTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to read config"))
}

func TestStoreConfig_Key(t *testing.T) {
	raw := make([]byte, 32)
	s := StoreConfig{EncryptionKey: base64.StdEncoding.EncodeToString(raw)}
	key, err := s.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	key, err = StoreConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, key)
}

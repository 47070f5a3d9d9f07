package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/coach/internal/config"
	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSum = "Given an array of integers, return indices of the two numbers that add up to a target."

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "sessions")
	return cfg
}

func TestBuild_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		setup func(*config.Config)
	}{
		{name: "memory", setup: func(c *config.Config) { c.Store.Driver = "memory" }},
		{name: "file", setup: func(c *config.Config) { c.Store.Driver = "file" }},
		{name: "sqlite", setup: func(c *config.Config) {
			c.Store.Driver = "sqlite"
			c.Store.Path = filepath.Join(t.TempDir(), "coach.db")
		}},
		{name: "redis with locking", setup: func(c *config.Config) {
			c.Store.Driver = "redis"
			c.Store.Redis.Addr = mr.Addr()
			c.Store.Locking = true
		}},
		{name: "encrypted and masked", setup: func(c *config.Config) {
			c.Store.Driver = "memory"
			c.Store.MaskPII = true
			c.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.setup(cfg)
			require.NoError(t, cfg.Validate())

			ctx := context.Background()
			app, err := Build(ctx, cfg, logging.NewNop())
			require.NoError(t, err)
			defer app.Close()

			s, err := app.Engine.Start(ctx, twoSum)
			require.NoError(t, err)
			out, err := app.Engine.Turn(ctx, s.ID, "I need to find two numbers that add up to target")
			require.NoError(t, err)
			assert.Equal(t, domain.StageThoughtArticulation, out.Session.CurrentStage)

			ids, err := app.Store.List(ctx)
			require.NoError(t, err)
			assert.Contains(t, ids, s.ID)
		})
	}
}

func TestBuild_Metrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "memory"
	cfg.Server.Metrics = true

	ctx := context.Background()
	app, err := Build(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()
	require.NotNil(t, app.Registry)

	s, err := app.Engine.Start(ctx, twoSum)
	require.NoError(t, err)
	_, err = app.Engine.Turn(ctx, s.ID, "")
	require.NoError(t, err)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "coach_turns_total")
	assert.Contains(t, names, "coach_incidents_total")
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Store.Driver = "redis"
	cfg.Store.Redis.Addr = "127.0.0.1:1"
	_, err := Build(ctx, cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach redis")

	cfg = testConfig(t)
	cfg.Backend.Provider = "openai"
	cfg.Backend.APIKey = " "
	_, err = Build(ctx, cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestRunChat_Plain(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	var out bytes.Buffer
	err = RunChat(context.Background(), app.Engine, ChatOptions{
		SessionID:  "cli-demo",
		Problem:    twoSum,
		SkillLevel: domain.SkillBeginner,
		In:         strings.NewReader("I need to find two numbers that add up to target\n"),
		Out:        &out,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "interview practice coach", "no banner on a non-terminal writer")
	assert.Contains(t, out.String(), "**Hash Table / Two Pointer**")

	s, err := app.Engine.Load(context.Background(), "cli-demo")
	require.NoError(t, err)
	assert.Equal(t, domain.SkillBeginner, s.SkillLevel())
}

func TestRunChat_JSON(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "memory"
	app, err := Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	var out bytes.Buffer
	err = RunChat(context.Background(), app.Engine, ChatOptions{
		Problem: twoSum,
		JSON:    true,
		In:      strings.NewReader(""),
		Out:     &out,
	}, logging.NewNop())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), `{"type":"reply"`))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

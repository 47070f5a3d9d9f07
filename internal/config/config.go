// Package config loads the coach configuration from an optional YAML file and
// the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/pkg/classifier"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Store   StoreConfig   `yaml:"store"`
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig carries the classifier thresholds and the retry policy.
type EngineConfig struct {
	classifier.Policy `yaml:",inline"`
	coach.RetryPolicy `yaml:",inline"`

	// HelpThreshold is the number of consecutive invalid inputs that turns on help mode.
	HelpThreshold int    `yaml:"invalid_escalation" validate:"gte=1"`
	SystemPrompt  string `yaml:"system_prompt"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Driver string      `yaml:"driver" validate:"oneof=memory file redis sqlite"`
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`
	// EncryptionKey is a base64-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key" validate:"omitempty,base64"`
	MaskPII       bool     `yaml:"mask_pii"`
	PIIPatterns   []string `yaml:"pii_patterns"`
	// Locking guards turns with a Redis lock so several replicas can share a store.
	Locking bool `yaml:"locking"`
}

// RedisConfig configures the Redis store and locker.
type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"required_with=Password"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// BackendConfig selects the generation backend.
type BackendConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=offline openai"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key" validate:"required_if=Provider openai"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=1"`
}

// ServerConfig configures the HTTP and MCP transports.
type ServerConfig struct {
	Addr    string `yaml:"addr" validate:"required"`
	Metrics bool   `yaml:"metrics"`
	MCPPort int    `yaml:"mcp_port" validate:"gte=1,lte=65535"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Policy:        classifier.DefaultPolicy(),
			RetryPolicy:   coach.DefaultRetryPolicy(),
			HelpThreshold: 3,
		},
		Store: StoreConfig{
			Driver: "file",
			Path:   ".coach/sessions",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "coach",
			},
		},
		Backend: BackendConfig{
			Provider:    "offline",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			MaxTokens:   400,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			MCPPort: 8081,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	}
	if c.Store.Locking && c.Store.Redis.Addr == "" {
		return errors.New("store.locking needs store.redis.addr")
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.Store.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

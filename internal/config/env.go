package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by Load. They win over the config file.
const (
	EnvStoreDriver   = "COACH_STORE_DRIVER"
	EnvStorePath     = "COACH_STORE_PATH"
	EnvRedisAddr     = "COACH_REDIS_ADDR"
	EnvRedisPassword = "COACH_REDIS_PASSWORD"
	EnvRedisDB       = "COACH_REDIS_DB"
	EnvEncryptionKey = "COACH_ENCRYPTION_KEY"
	EnvMaskPII       = "COACH_MASK_PII"
	EnvBackend       = "COACH_BACKEND"
	EnvMaxRetries    = "COACH_MAX_RETRIES"
	EnvCallTimeout   = "COACH_CALL_TIMEOUT"
	EnvServerAddr    = "COACH_SERVER_ADDR"
	EnvMetrics       = "COACH_METRICS"
	EnvLogLevel      = "COACH_LOG_LEVEL"
	EnvLogFormat     = "COACH_LOG_FORMAT"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

func (c *Config) applyEnv() error {
	setString(&c.Store.Driver, EnvStoreDriver)
	setString(&c.Store.Path, EnvStorePath)
	setString(&c.Store.Redis.Addr, EnvRedisAddr)
	setString(&c.Store.Redis.Password, EnvRedisPassword)
	setString(&c.Store.EncryptionKey, EnvEncryptionKey)
	setString(&c.Backend.Provider, EnvBackend)
	setString(&c.Backend.APIKey, EnvOpenAIKey)
	setString(&c.Backend.Model, EnvOpenAIModel)
	setString(&c.Backend.BaseURL, EnvOpenAIBaseURL)
	setString(&c.Server.Addr, EnvServerAddr)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)

	if err := setInt(&c.Store.Redis.DB, EnvRedisDB); err != nil {
		return err
	}
	if err := setInt(&c.Engine.MaxRetries, EnvMaxRetries); err != nil {
		return err
	}
	if err := setDuration(&c.Engine.CallTimeout, EnvCallTimeout); err != nil {
		return err
	}
	if err := setBool(&c.Store.MaskPII, EnvMaskPII); err != nil {
		return err
	}
	return setBool(&c.Server.Metrics, EnvMetrics)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

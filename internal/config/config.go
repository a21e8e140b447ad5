// Package config loads application settings from the config file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. SPICEWISE_LLM_MODEL.
const EnvPrefix = "SPICEWISE"

// APIKeyEnv is consulted when llm.api_key is not configured.
const APIKeyEnv = "GEMINI_API_KEY"

// Insight cache backends.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the typed view of all settings.
type Config struct {
	LLM      LLMConfig
	Database DatabaseConfig
	Insights InsightsConfig
	Redis    RedisConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// LLMConfig configures the model endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// InsightsConfig selects where generated insights are cached.
type InsightsConfig struct {
	Cache string
	TTL   time.Duration
}

// RedisConfig is used when insights.cache is "redis".
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", llm.DefaultBaseURL)
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)
	v.SetDefault("database.path", "$HOME/.local/share/spicewise/spicewise.db")
	v.SetDefault("insights.cache", CacheSQLite)
	v.SetDefault("insights.ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Init prepares v to read cfgFile, or config.yaml from the standard locations
// when cfgFile is empty, with SPICEWISE_ environment overrides. Variables from
// a .env file in the working directory are loaded first without overriding the
// real environment. A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spicewise"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			APIKey:  strings.TrimSpace(v.GetString("llm.api_key")),
			BaseURL: v.GetString("llm.base_url"),
			Model:   v.GetString("llm.model"),
			Timeout: v.GetDuration("llm.timeout"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Insights: InsightsConfig{
			Cache: strings.ToLower(v.GetString("insights.cache")),
			TTL:   v.GetDuration("insights.ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that can never work. A missing API key is not an
// error here; commands that call the model report it when they need it.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("%w: llm.timeout must not be negative", common.ErrInvalidConfig)
	}

	switch c.Insights.Cache {
	case CacheSQLite, CacheNone:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis insight cache", common.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown insights.cache %q", common.ErrInvalidConfig, c.Insights.Cache)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// LLMClientConfig converts the endpoint settings into a client configuration.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		Timeout: c.LLM.Timeout,
	}
}

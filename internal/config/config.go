package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Oracle    OracleConfig    `yaml:"oracle" mapstructure:"oracle"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Fill      FillConfig      `yaml:"fill" mapstructure:"fill"`
	Traverse  TraverseConfig  `yaml:"traverse" mapstructure:"traverse"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Artifact  ArtifactConfig  `yaml:"artifact" mapstructure:"artifact"`
	Profile   ProfileConfig   `yaml:"profile" mapstructure:"profile"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NotionConfig holds Notion API credentials and the job queue database.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	JobDB string `yaml:"job_db" mapstructure:"job_db"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Temp      float64 `yaml:"temperature" mapstructure:"temperature"`
}

// PricingConfig holds per-model pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// OracleConfig configures the fill-value oracle client.
type OracleConfig struct {
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// BrowserConfig configures the playwright browser.
type BrowserConfig struct {
	Headless         bool    `yaml:"headless" mapstructure:"headless"`
	SlowMoMS         float64 `yaml:"slow_mo_ms" mapstructure:"slow_mo_ms"`
	SettleMS         int     `yaml:"settle_ms" mapstructure:"settle_ms"`
	NavigationTimeMS float64 `yaml:"navigation_timeout_ms" mapstructure:"navigation_timeout_ms"`
}

// FillConfig configures the element filler.
type FillConfig struct {
	RadioFallback string `yaml:"radio_fallback" mapstructure:"radio_fallback"`
}

// TraverseConfig configures the page traversal.
type TraverseConfig struct {
	Submit   bool `yaml:"submit" mapstructure:"submit"`
	MaxPages int  `yaml:"max_pages" mapstructure:"max_pages"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSeconds int `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ArtifactConfig configures where run artifacts are written.
type ArtifactConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	S3Bucket string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
	S3Region string `yaml:"s3_region" mapstructure:"s3_region"`
}

// ProfileConfig locates the applicant profile.
type ProfileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// JobsConfig locates the default job list.
type JobsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AUTOAPPLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "autoapply.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("oracle.rate_limit", 2.0)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.breaker_threshold", 5)
	v.SetDefault("oracle.breaker_reset_secs", 60)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo_ms", 0)
	v.SetDefault("browser.settle_ms", 500)
	v.SetDefault("browser.navigation_timeout_ms", 30000)
	v.SetDefault("fill.radio_fallback", "first")
	v.SetDefault("traverse.submit", true)
	v.SetDefault("traverse.max_pages", 20)
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("batch.timeout_seconds", 900)
	v.SetDefault("artifact.dir", "application_data")
	v.SetDefault("artifact.s3_region", "us-east-1")
	v.SetDefault("profile.path", "profile.json")
	v.SetDefault("jobs.path", "jobagent.jobs.json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "apply", "batch":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Profile.Path == "" {
			errs = append(errs, "profile.path is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "notion":
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.JobDB == "" {
			errs = append(errs, "notion.job_db is required")
		}
	case "runs", "inspect":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 6 {
		errs = append(errs, fmt.Sprintf("batch.max_concurrent must be between 1 and 6, got %d", c.Batch.MaxConcurrent))
	}
	if c.Batch.TimeoutSeconds <= 0 {
		errs = append(errs, "batch.timeout_seconds must be > 0")
	}
	switch c.Fill.RadioFallback {
	case "first", "skip":
	default:
		errs = append(errs, fmt.Sprintf("fill.radio_fallback must be first or skip, got %q", c.Fill.RadioFallback))
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Package config turns viper state into the typed settings the binary runs with.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/embedding"
	"github.com/hsh7097/MoneyTalk-sub002/internal/engine"
	"github.com/hsh7097/MoneyTalk-sub002/internal/llm"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/smspay/patterns.db"

// Config is the full runtime configuration.
type Config struct {
	Database  DatabaseConfig
	LLM       llm.Config
	Embedding EmbeddingConfig
	Pipeline  engine.Options
	Telemetry TelemetryConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

// DatabaseConfig locates the pattern store.
type DatabaseConfig struct {
	Path string
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	APIKey string
	Model  string
}

// TelemetryConfig controls sample uploads.
type TelemetryConfig struct {
	Endpoint string
	Timeout  time.Duration
	Enabled  bool
}

// ServerConfig controls the HTTP entry point.
type ServerConfig struct {
	Addr     string
	APIKey   string // empty disables authentication
	CertDir  string
	TLSHosts []string
	TLS      bool
}

// LoggingConfig controls the default slog logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := engine.DefaultOptions()

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 2048)

	v.SetDefault("embedding.model", embedding.DefaultModel)

	v.SetDefault("pipeline.auto_apply", d.Profile.AutoApply)
	v.SetDefault("pipeline.confirm", d.Profile.Confirm)
	v.SetDefault("pipeline.propagate", d.Profile.Propagate)
	v.SetDefault("pipeline.group", d.Profile.Group)
	v.SetDefault("pipeline.reject", d.Profile.Reject)
	v.SetDefault("pipeline.merge_floor", d.MergeFloor)
	v.SetDefault("pipeline.small_group_max", d.SmallGroupMax)
	v.SetDefault("pipeline.min_regex_group_size", d.MinRegexGroupSize)
	v.SetDefault("pipeline.regex_sample_size", d.RegexSampleSize)
	v.SetDefault("pipeline.regex_fail_threshold", d.RegexFailThreshold)
	v.SetDefault("pipeline.regex_cooldown", d.RegexCooldown)
	v.SetDefault("pipeline.embedding_chunk_size", d.EmbeddingChunkSize)
	v.SetDefault("pipeline.embedding_concurrency", d.EmbeddingConcurrency)
	v.SetDefault("pipeline.llm_concurrency", d.LLMConcurrency)
	v.SetDefault("pipeline.llm_batch_size", d.LLMBatchSize)
	v.SetDefault("pipeline.upload_dedupe_threshold", d.UploadDedupeThreshold)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.timeout", 10*time.Second)

	v.SetDefault("server.addr", ":8088")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "$HOME/.config/smspay/certs")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads v into a Config and validates it. API keys fall back to the
// provider's conventional environment variables when unset.
func Load(v *viper.Viper) (*Config, error) {
	profile, err := similarity.NewProfile(
		v.GetFloat64("pipeline.auto_apply"),
		v.GetFloat64("pipeline.confirm"),
		v.GetFloat64("pipeline.propagate"),
		v.GetFloat64("pipeline.group"),
		v.GetFloat64("pipeline.reject"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		LLM: llm.Config{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			RetryDelay:  v.GetDuration("llm.retry_delay"),
			Timeout:     v.GetDuration("llm.timeout"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			BatchSize:   v.GetInt("pipeline.llm_batch_size"),
		},
		Embedding: EmbeddingConfig{
			APIKey: v.GetString("embedding.api_key"),
			Model:  v.GetString("embedding.model"),
		},
		Pipeline: engine.Options{
			Profile:               profile,
			MergeFloor:            v.GetFloat64("pipeline.merge_floor"),
			UploadDedupeThreshold: v.GetFloat64("pipeline.upload_dedupe_threshold"),
			RegexCooldown:         v.GetDuration("pipeline.regex_cooldown"),
			SmallGroupMax:         v.GetInt("pipeline.small_group_max"),
			MinRegexGroupSize:     v.GetInt("pipeline.min_regex_group_size"),
			RegexSampleSize:       v.GetInt("pipeline.regex_sample_size"),
			RegexFailThreshold:    v.GetInt("pipeline.regex_fail_threshold"),
			EmbeddingChunkSize:    v.GetInt("pipeline.embedding_chunk_size"),
			EmbeddingConcurrency:  v.GetInt("pipeline.embedding_concurrency"),
			LLMConcurrency:        v.GetInt("pipeline.llm_concurrency"),
			LLMBatchSize:          v.GetInt("pipeline.llm_batch_size"),
			YieldEvery:            engine.DefaultOptions().YieldEvery,
		},
		Telemetry: TelemetryConfig{
			Enabled:  v.GetBool("telemetry.enabled"),
			Endpoint: v.GetString("telemetry.endpoint"),
			Timeout:  v.GetDuration("telemetry.timeout"),
		},
		Server: ServerConfig{
			Addr:     v.GetString("server.addr"),
			APIKey:   v.GetString("server.api_key"),
			CertDir:  ExpandPath(v.GetString("server.cert_dir")),
			TLSHosts: v.GetStringSlice("server.tls_hosts"),
			TLS:      v.GetBool("server.tls"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if env, ok := llm.KeyEnv(cfg.LLM.Provider); ok && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(env)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Missing API keys are reported by the commands
// that need them, not here.
func (c *Config) Validate() error {
	if _, ok := llm.KeyEnv(c.LLM.Provider); !ok {
		return fmt.Errorf("%w: unsupported llm.provider %q (supported: %s)",
			common.ErrInvalidConfig, c.LLM.Provider, strings.Join(llm.Providers(), ", "))
	}
	if c.LLM.RateLimit < 0 || c.LLM.MaxRetries < 0 {
		return fmt.Errorf("%w: llm.rate_limit and llm.max_retries must not be negative", common.ErrInvalidConfig)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("%w: telemetry.endpoint is required when telemetry is enabled", common.ErrMissingConfig)
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

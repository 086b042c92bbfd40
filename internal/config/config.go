package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Presidio     PresidioConfig     `yaml:"presidio" mapstructure:"presidio"`
	Pseudonym    PseudonymConfig    `yaml:"pseudonym" mapstructure:"pseudonym"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds reasoning-service API settings.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// PresidioConfig holds PII entity-detection service settings.
type PresidioConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Language    string `yaml:"language" mapstructure:"language"`
}

// PseudonymConfig configures the deterministic pseudonymization engine.
// The seed is an explicit configuration value, never read from process
// globals, so two services sharing a seed produce linkable pseudonyms.
type PseudonymConfig struct {
	Seed string `yaml:"seed" mapstructure:"seed"`
}

// OrchestratorConfig bounds job fan-out.
type OrchestratorConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	MaxStepsPerJob    int `yaml:"max_steps_per_job" mapstructure:"max_steps_per_job"`
	JobTimeoutSecs    int `yaml:"job_timeout_secs" mapstructure:"job_timeout_secs"`
}

// JobTimeout returns the ceiling wall-clock budget for one job.
func (c OrchestratorConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP job API.
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
	v.SetEnvPrefix("VERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_sec", 5)
	v.SetDefault("anthropic.burst", 10)
	v.SetDefault("pseudonym.seed", "")
	v.SetDefault("presidio.base_url", "http://localhost:5002")
	v.SetDefault("presidio.timeout_secs", 10)
	v.SetDefault("presidio.language", "en")
	v.SetDefault("orchestrator.max_concurrent_jobs", 4)
	v.SetDefault("orchestrator.max_steps_per_job", 8)
	v.SetDefault("orchestrator.job_timeout_secs", 600)

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

// Validate checks that the configuration required for the given mode is
// present. Modes: "process" (full verification stack), "serve" (process plus
// a listen port), "import" and "migrate" (store only).
func (c *Config) Validate(mode string) error {
	var problems []string

	requireStore := func() {
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	}
	requireVerification := func() {
		requireStore()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Pseudonym.Seed == "" {
			problems = append(problems, "pseudonym.seed is required")
		}
		if c.Orchestrator.MaxStepsPerJob < 1 || c.Orchestrator.MaxStepsPerJob > 64 {
			problems = append(problems, "orchestrator.max_steps_per_job must be between 1 and 64")
		}
		if c.Orchestrator.MaxConcurrentJobs < 1 || c.Orchestrator.MaxConcurrentJobs > 64 {
			problems = append(problems, "orchestrator.max_concurrent_jobs must be between 1 and 64")
		}
	}

	switch mode {
	case "process":
		requireVerification()
	case "serve":
		requireVerification()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "import", "migrate":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for mode %s:\n  %s", mode, strings.Join(problems, "\n  "))
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

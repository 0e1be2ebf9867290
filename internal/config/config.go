package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Matcher MatcherConfig `yaml:"matcher" mapstructure:"matcher"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the catalog backend.
type StoreConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"` // memory, sqlite or postgres
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	MaxConns     int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns     int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MatcherConfig bounds catalog scans and join fan-out.
type MatcherConfig struct {
	MaxServiceAreas        int `yaml:"max_service_areas" mapstructure:"max_service_areas"`
	MaxResourcesPerProgram int `yaml:"max_resources_per_program" mapstructure:"max_resources_per_program"`
	BatchSize              int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency         int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	DefaultLimit           int `yaml:"default_limit" mapstructure:"default_limit"`
}

// ScoringWeights are the composite weights for each sub-score. They should
// sum to 1.
type ScoringWeights struct {
	ZoneMatch    float64 `yaml:"zone_match" mapstructure:"zone_match"`
	Verification float64 `yaml:"verification" mapstructure:"verification"`
	Freshness    float64 `yaml:"freshness" mapstructure:"freshness"`
	Jurisdiction float64 `yaml:"jurisdiction" mapstructure:"jurisdiction"`
	Outcome      float64 `yaml:"outcome" mapstructure:"outcome"`
}

// ScoringConfig configures the relevance scorer.
type ScoringConfig struct {
	Weights           ScoringWeights `yaml:"weights" mapstructure:"weights"`
	BrokenLinkPenalty float64        `yaml:"broken_link_penalty" mapstructure:"broken_link_penalty"`
	BouncePenaltyPer  float64        `yaml:"bounce_penalty_per" mapstructure:"bounce_penalty_per"`
	BouncePenaltyCap  float64        `yaml:"bounce_penalty_cap" mapstructure:"bounce_penalty_cap"`
	CrisisMultiplier  float64        `yaml:"crisis_multiplier" mapstructure:"crisis_multiplier"`
}

// CatalogConfig configures protection around remote catalog calls.
type CatalogConfig struct {
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	RetryMaxMs       int     `yaml:"retry_max_ms" mapstructure:"retry_max_ms"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("MATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.snapshot_path", "catalog.yaml")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("matcher.max_service_areas", 2000)
	v.SetDefault("matcher.max_resources_per_program", 25)
	v.SetDefault("matcher.batch_size", 50)
	v.SetDefault("matcher.max_concurrency", 8)
	v.SetDefault("matcher.default_limit", 5)
	v.SetDefault("scoring.weights.zone_match", 0.30)
	v.SetDefault("scoring.weights.verification", 0.25)
	v.SetDefault("scoring.weights.freshness", 0.20)
	v.SetDefault("scoring.weights.jurisdiction", 0.15)
	v.SetDefault("scoring.weights.outcome", 0.10)
	v.SetDefault("scoring.broken_link_penalty", 0.2)
	v.SetDefault("scoring.bounce_penalty_per", 0.02)
	v.SetDefault("scoring.bounce_penalty_cap", 0.2)
	v.SetDefault("scoring.crisis_multiplier", 1.05)
	v.SetDefault("catalog.retry_attempts", 3)
	v.SetDefault("catalog.retry_backoff_ms", 100)
	v.SetDefault("catalog.retry_max_ms", 2000)
	v.SetDefault("catalog.breaker_threshold", 5)
	v.SetDefault("catalog.breaker_reset_secs", 30)
	v.SetDefault("catalog.rate_per_sec", 200)
	v.SetDefault("catalog.burst", 50)

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

// Validate checks the settings a command depends on. Modes: "catalog"
// (store only), "find" (store and matcher), "serve" (find plus server).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "catalog", "find", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "memory":
		if c.Store.SnapshotPath == "" {
			errs = append(errs, "store.snapshot_path is required for the memory driver")
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the "+c.Store.Driver+" driver")
		}
	default:
		errs = append(errs, "store.driver must be memory, sqlite or postgres")
	}

	if mode == "find" || mode == "serve" {
		if c.Matcher.MaxServiceAreas <= 0 {
			errs = append(errs, "matcher.max_service_areas must be > 0")
		}
		if c.Matcher.MaxResourcesPerProgram <= 0 {
			errs = append(errs, "matcher.max_resources_per_program must be > 0")
		}
		if c.Matcher.DefaultLimit <= 0 {
			errs = append(errs, "matcher.default_limit must be > 0")
		}
		if c.Matcher.MaxConcurrency < 1 || c.Matcher.MaxConcurrency > 64 {
			errs = append(errs, "matcher.max_concurrency must be between 1 and 64")
		}
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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

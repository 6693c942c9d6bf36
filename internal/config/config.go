package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	RunsDir string        `yaml:"runs_dir" mapstructure:"runs_dir"`
	Run     RunConfig     `yaml:"run" mapstructure:"run"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RunConfig bounds a whole plan execution.
type RunConfig struct {
	TimeoutSec int `yaml:"timeout_sec" mapstructure:"timeout_sec"`
}

// CacheConfig configures the extraction result cache.
type CacheConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file | sqlite
	Dir     string `yaml:"dir" mapstructure:"dir"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	TTLSec  int    `yaml:"ttl_sec" mapstructure:"ttl_sec"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional Postgres connection pool tuning.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExtractConfig configures site extractors.
type ExtractConfig struct {
	FixturesDir string                `yaml:"fixtures_dir" mapstructure:"fixtures_dir"`
	Retries     int                   `yaml:"retries" mapstructure:"retries"`
	BackoffBase float64               `yaml:"backoff_base" mapstructure:"backoff_base"`
	Aliases     map[string]string     `yaml:"aliases" mapstructure:"aliases"`
	Sites       map[string]SiteConfig `yaml:"sites" mapstructure:"sites"`
}

// SiteConfig configures one site extractor.
type SiteConfig struct {
	Kind        string  `yaml:"kind" mapstructure:"kind"` // fixture | http
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	BackoffBase float64 `yaml:"backoff_base" mapstructure:"backoff_base"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSec  int     `yaml:"timeout_sec" mapstructure:"timeout_sec"`
}

// ScoringConfig holds ranking weights and price thresholds. Zero values
// fall back to the scorer defaults.
type ScoringConfig struct {
	PriceWeight  float64 `yaml:"price_weight" mapstructure:"price_weight"`
	RAMWeight    float64 `yaml:"ram_weight" mapstructure:"ram_weight"`
	CPUWeight    float64 `yaml:"cpu_weight" mapstructure:"cpu_weight"`
	SSDWeight    float64 `yaml:"ssd_weight" mapstructure:"ssd_weight"`
	GPUWeight    float64 `yaml:"gpu_weight" mapstructure:"gpu_weight"`
	ScreenWeight float64 `yaml:"screen_weight" mapstructure:"screen_weight"`
	OSWeight     float64 `yaml:"os_weight" mapstructure:"os_weight"`

	GreatValueBelow  int     `yaml:"great_value_below" mapstructure:"great_value_below"`
	GoodPriceBelow   int     `yaml:"good_price_below" mapstructure:"good_price_below"`
	ExpensiveAbove   int     `yaml:"expensive_above" mapstructure:"expensive_above"`
	PriceRefMin      int     `yaml:"price_ref_min" mapstructure:"price_ref_min"`
	PriceRefMax      int     `yaml:"price_ref_max" mapstructure:"price_ref_max"`
	UnderBudgetBonus float64 `yaml:"under_budget_bonus" mapstructure:"under_budget_bonus"`
	OverBudgetBase   float64 `yaml:"over_budget_base" mapstructure:"over_budget_base"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("config: no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NAVIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing deployments.
	for key, legacy := range map[string]string{
		"runs_dir":        "RUNS_DIR",
		"run.timeout_sec": "RUN_TIMEOUT_SEC",
		"cache.ttl_sec":   "CACHE_TTL_SEC",
	} {
		envKey := "NAVIGATOR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("runs_dir", "runs")
	v.SetDefault("run.timeout_sec", 90)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.ttl_sec", 43200)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool.max_conns", 4)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("scoring.price_weight", 0.35)
	v.SetDefault("scoring.ram_weight", 0.20)
	v.SetDefault("scoring.cpu_weight", 0.20)
	v.SetDefault("scoring.ssd_weight", 0.12)
	v.SetDefault("scoring.gpu_weight", 0.08)
	v.SetDefault("scoring.screen_weight", 0.03)
	v.SetDefault("scoring.os_weight", 0.02)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extract.fixtures_dir", "fixtures")
	v.SetDefault("extract.retries", 3)
	v.SetDefault("extract.backoff_base", 1.6)
	v.SetDefault("extract.aliases", map[string]string{
		"amazon":           "flipkart",
		"croma":            "flipkart",
		"reliance":         "flipkart",
		"reliance digital": "flipkart",
	})
	v.SetDefault("extract.sites", map[string]any{
		"flipkart": map[string]any{
			"kind":         "fixture",
			"retries":      3,
			"backoff_base": 1.6,
		},
	})

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

// CacheDir returns the file cache directory, defaulting to runs_dir/_cache.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.RunsDir, "_cache")
}

// CacheDSN returns the SQLite cache path, defaulting to runs_dir/_cache.db.
func (c *Config) CacheDSN() string {
	if c.Cache.DSN != "" {
		return c.Cache.DSN
	}
	return filepath.Join(c.RunsDir, "_cache.db")
}

// HistoryDSN returns the run history database location.
func (c *Config) HistoryDSN() string {
	if c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	return filepath.Join(c.RunsDir, "_history.db")
}

// Validate checks the fields a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Run.TimeoutSec <= 0 {
		errs = append(errs, "run.timeout_sec must be > 0")
	}
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be file or sqlite", c.Cache.Backend))
	}
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	for name, site := range c.Extract.Sites {
		switch site.Kind {
		case "", "fixture":
		case "http":
			if site.BaseURL == "" {
				errs = append(errs, fmt.Sprintf("extract.sites.%s.base_url is required for http", name))
			}
		default:
			errs = append(errs, fmt.Sprintf("extract.sites.%s.kind %q must be fixture or http", name, site.Kind))
		}
	}

	switch mode {
	case "run":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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

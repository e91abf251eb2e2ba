package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	LiveCalc  LiveCalcConfig  `yaml:"livecalc" mapstructure:"livecalc"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Waterfall WaterfallConfig `yaml:"waterfall" mapstructure:"waterfall"`
	EoL       EoLConfig       `yaml:"eol" mapstructure:"eol"`
	Trace     TraceConfig     `yaml:"trace" mapstructure:"trace"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// EngineConfig bounds calculation concurrency and supplies product defaults.
type EngineConfig struct {
	MaxConcurrentMaterials  int    `yaml:"max_concurrent_materials" mapstructure:"max_concurrent_materials"`
	MaxConcurrentFacilities int    `yaml:"max_concurrent_facilities" mapstructure:"max_concurrent_facilities"`
	DefaultRegion           string `yaml:"default_region" mapstructure:"default_region"`
	DefaultBoundary         string `yaml:"default_boundary" mapstructure:"default_boundary"`
}

// LiveCalcConfig configures the live process-database tier.
type LiveCalcConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	Method        string  `yaml:"method" mapstructure:"method"`
	CacheDriver   string  `yaml:"cache_driver" mapstructure:"cache_driver"` // memory, store or redis
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	RetryAttempts       int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBaseDelayMs    int `yaml:"retry_base_delay_ms" mapstructure:"retry_base_delay_ms"`
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// Enabled reports whether a live calculation service is configured.
func (c LiveCalcConfig) Enabled() bool {
	return c.BaseURL != ""
}

// CacheTTL returns the cache lifetime.
func (c LiveCalcConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// RedisConfig configures the shared live calculation cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// WaterfallConfig points at an optional tier constants file.
type WaterfallConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// EoLConfig points at an optional regional defaults file.
type EoLConfig struct {
	DefaultsPath string `yaml:"defaults_path" mapstructure:"defaults_path"`
}

// TraceConfig configures OpenTelemetry export.
type TraceConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Exporter string `yaml:"exporter" mapstructure:"exporter"`
}

// TemporalConfig configures the recalculation worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("engine.max_concurrent_materials", 8)
	v.SetDefault("engine.max_concurrent_facilities", 4)
	v.SetDefault("engine.default_region", "GLOBAL")
	v.SetDefault("engine.default_boundary", "cradle_to_gate")
	v.SetDefault("livecalc.method", "EF 3.1")
	v.SetDefault("livecalc.cache_driver", "store")
	v.SetDefault("livecalc.cache_ttl_hours", 168)
	v.SetDefault("livecalc.rate_per_second", 5.0)
	v.SetDefault("livecalc.burst", 5)
	v.SetDefault("livecalc.timeout_secs", 30)
	v.SetDefault("livecalc.retry_attempts", 3)
	v.SetDefault("livecalc.retry_base_delay_ms", 200)
	v.SetDefault("livecalc.breaker_threshold", 5)
	v.SetDefault("livecalc.breaker_cooldown_secs", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("trace.exporter", "stdout")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "impact-recalculation")

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

// Validate checks required settings for a command mode: calculate, serve,
// worker, migrate, seed or export.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}

	switch mode {
	case "migrate", "seed", "export":
	case "calculate":
		errs = append(errs, c.validateEngine()...)
	case "serve":
		errs = append(errs, c.validateEngine()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "worker":
		errs = append(errs, c.validateEngine()...)
		errs = append(errs, c.validateTemporal()...)
	case "recalculate":
		errs = append(errs, c.validateTemporal()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateTemporal() []string {
	var errs []string
	if c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	return errs
}

func (c *Config) validateEngine() []string {
	var errs []string
	if c.Engine.MaxConcurrentMaterials < 1 || c.Engine.MaxConcurrentMaterials > 64 {
		errs = append(errs, "engine.max_concurrent_materials must be between 1 and 64")
	}
	if c.Engine.MaxConcurrentFacilities < 1 || c.Engine.MaxConcurrentFacilities > 64 {
		errs = append(errs, "engine.max_concurrent_facilities must be between 1 and 64")
	}
	if c.LiveCalc.Enabled() {
		switch c.LiveCalc.CacheDriver {
		case "memory", "store":
		case "redis":
			if c.Redis.Addr == "" {
				errs = append(errs, "redis.addr is required for the redis cache driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("livecalc.cache_driver must be memory, store or redis, got %q", c.LiveCalc.CacheDriver))
		}
		if c.LiveCalc.CacheTTLHours <= 0 {
			errs = append(errs, "livecalc.cache_ttl_hours must be > 0")
		}
		if c.LiveCalc.RatePerSecond < 0 {
			errs = append(errs, "livecalc.rate_per_second must be >= 0")
		}
	}
	if c.Trace.Enabled && c.Trace.Exporter != "stdout" {
		errs = append(errs, fmt.Sprintf("trace.exporter must be stdout, got %q", c.Trace.Exporter))
	}
	return errs
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

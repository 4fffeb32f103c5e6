package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SURVEY_LOGGING_LEVEL.
const EnvPrefix = "SURVEY"

// Config is the main configuration struct combining all sub-configs.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Scenario   ScenarioConfig   `mapstructure:"scenario"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// SimulationConfig drives the tick loop.
type SimulationConfig struct {
	Tick        time.Duration `mapstructure:"tick" validate:"gt=0"`
	Duration    time.Duration `mapstructure:"duration" validate:"gte=0"`
	Accelerated bool          `mapstructure:"accelerated"`
	WarpRate    float64       `mapstructure:"warp_rate" validate:"gte=1"`
	WarpMode    string        `mapstructure:"warp_mode" validate:"oneof=physics high"`
	RateModel   string        `mapstructure:"rate_model" validate:"oneof=fixed zone_scaled"`
	// StatusLogInterval throttles per-instrument status logging.
	StatusLogInterval time.Duration `mapstructure:"status_log_interval" validate:"gte=0"`
}

// ScenarioConfig points at the scenario file.
type ScenarioConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Connection type: "postgres" or "sqlite"
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite"`

	// Full postgres connection URL
	URL string `mapstructure:"url" validate:"required_if=Type postgres"`

	// SQLite file path or ":memory:"
	Path string `mapstructure:"path"`

	Pool PoolConfig `mapstructure:"pool"`

	// FlushInterval batches record writes; 0 flushes every tick.
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"gte=0"`
}

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open" validate:"min=1"`
	MaxIdle     int           `mapstructure:"max_idle" validate:"min=1"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// LoggingConfig selects the logging backend.
type LoggingConfig struct {
	Level   string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format  string `mapstructure:"format" validate:"oneof=text json"`
	Backend string `mapstructure:"backend" validate:"oneof=slog zap"`
}

// ServerConfig holds listen addresses for survey-server.
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	// CORSOrigins enables cross-origin access to the HTTP API when non-empty.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// TracingConfig governs OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	Exporter    string  `mapstructure:"exporter" validate:"oneof=stdout otlp otlpgrpc"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/surface-survey")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we'll use env vars and defaults
	}

	// DATABASE_URL is honoured without the prefix
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MustLoadConfig loads configuration and panics on error (for use in main.go)
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

var defaultValues = map[string]any{
	"simulation.tick":                time.Second,
	"simulation.duration":            time.Duration(0),
	"simulation.accelerated":         false,
	"simulation.warp_rate":           1.0,
	"simulation.warp_mode":           "physics",
	"simulation.rate_model":          "zone_scaled",
	"simulation.status_log_interval": 10 * time.Second,
	"scenario.path":                  "configs/scenario.yaml",
	"database.enabled":               false,
	"database.type":                  "sqlite",
	"database.url":                   "",
	"database.path":                  "survey.db",
	"database.pool.max_open":         10,
	"database.pool.max_idle":         2,
	"database.pool.max_lifetime":     5 * time.Minute,
	"database.flush_interval":        5 * time.Second,
	"logging.level":                  "info",
	"logging.format":                 "text",
	"logging.backend":                "slog",
	"server.grpc_addr":               ":50051",
	"server.http_addr":               ":8080",
	"server.cors_origins":            []string{},
	"tracing.enabled":                false,
	"tracing.service_name":           "surface-survey",
	"tracing.exporter":               "stdout",
	"tracing.endpoint":               "",
	"tracing.sample_ratio":           1.0,
}

// registerDefaults makes every key known to viper so environment overrides
// reach Unmarshal.
func registerDefaults(v *viper.Viper) {
	for key, value := range defaultValues {
		v.SetDefault(key, value)
	}
}

// SetDefaults sets default values for zero configuration fields.
func SetDefaults(cfg *Config) {
	if cfg.Simulation.Tick == 0 {
		cfg.Simulation.Tick = time.Second
	}
	if cfg.Simulation.WarpRate == 0 {
		cfg.Simulation.WarpRate = 1
	}
	if cfg.Simulation.WarpMode == "" {
		cfg.Simulation.WarpMode = "physics"
	}
	if cfg.Simulation.RateModel == "" {
		cfg.Simulation.RateModel = "zone_scaled"
	}

	if cfg.Scenario.Path == "" {
		cfg.Scenario.Path = "configs/scenario.yaml"
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "survey.db"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 10
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 2
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Backend == "" {
		cfg.Logging.Backend = "slog"
	}

	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = ":50051"
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "surface-survey"
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "stdout"
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{Tracing: TracingConfig{SampleRatio: 1}}
	SetDefaults(cfg)
	return cfg
}

// Package config provides unified configuration loading for agentcore:
// defaults, YAML file overlay and environment variable overrides, in that
// precedence order.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the complete agentcore configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Redis configures the optional Redis snapshot store.
	Redis RedisConfig `yaml:"redis"`

	// Database configures the optional SQL snapshot store.
	Database DatabaseConfig `yaml:"database"`

	// Engine configures execution engine defaults.
	Engine EngineConfig `yaml:"engine"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// RedisConfig configures the Redis snapshot store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// DatabaseConfig configures the SQL snapshot store.
type DatabaseConfig struct {
	// Driver is mysql, postgres or sqlite.
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// EngineConfig configures execution engine defaults.
type EngineConfig struct {
	// HistorySize caps each machine's transition history ring.
	HistorySize int `yaml:"history_size"`
	// MetricsNamespace prefixes all Prometheus metric names.
	MetricsNamespace string `yaml:"metrics_namespace"`
	// SnapshotStore selects the persistence backend: memory, redis or
	// database.
	SnapshotStore string `yaml:"snapshot_store"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "agentcore",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "agentcore:sm:",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "agentcore.db",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Engine: EngineConfig{
			HistorySize:      100,
			MetricsNamespace: "agentcore",
			SnapshotStore:    "memory",
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry enabled but otlp_endpoint is empty")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample_rate %g out of [0,1]", c.Telemetry.SampleRate)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database driver %q", c.Database.Driver)
	}
	if c.Engine.HistorySize < 1 {
		return fmt.Errorf("engine history_size %d < 1", c.Engine.HistorySize)
	}
	switch c.Engine.SnapshotStore {
	case "", "memory", "redis", "database":
	default:
		return fmt.Errorf("invalid snapshot_store %q", c.Engine.SnapshotStore)
	}
	return nil
}

// NewLogger builds a zap logger from LogConfig.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

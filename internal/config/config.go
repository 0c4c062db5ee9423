// Package config loads and validates the feedwatch YAML configuration.
package config

import "time"

// Config is the root configuration for a feedwatch instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Feed      FeedConfig      `yaml:"feed"`
	Hub       HubConfig       `yaml:"hub"`
	Stream    StreamConfig    `yaml:"stream"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// InstanceConfig identifies this process in logs and telemetry.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds the market-data endpoint and initial subscription.
type FeedConfig struct {
	URL        string `yaml:"url"`
	Connection string `yaml:"connection"` // Logical connection name, defaults to "market"
	Symbol     string `yaml:"symbol"`
	Timeframe  string `yaml:"timeframe"`
	TokenEnv   string `yaml:"token_env"`  // Env var holding the bearer token
	TokenFile  string `yaml:"token_file"` // Token file, re-read on each connect
	Token      string `yaml:"token"`      // Inline token, lowest precedence
}

// HubConfig holds shared WebSocket connection settings.
type HubConfig struct {
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BreakerThreshold   int           `yaml:"breaker_threshold"`
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown"`
	TokenRetryDelay    time.Duration `yaml:"token_retry_delay"`
}

// StreamConfig holds per-subscription client settings.
type StreamConfig struct {
	HeartbeatTimeout       time.Duration `yaml:"heartbeat_timeout"`
	HeartbeatCheckInterval time.Duration `yaml:"heartbeat_check_interval"`
	ReconnectBaseDelay     time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay      time.Duration `yaml:"reconnect_max_delay"`
}

// TelemetryConfig holds the observability pipeline settings.
type TelemetryConfig struct {
	BufferSize    int           `yaml:"buffer_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	NATS          NATSConfig    `yaml:"nats"`
	Postgres      PGSinkConfig  `yaml:"postgres"`
}

// NATSConfig holds the NATS telemetry sink settings.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// PGSinkConfig holds the Postgres telemetry sink settings.
type PGSinkConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Database DBConfig `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

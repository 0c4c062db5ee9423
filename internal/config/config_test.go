package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: feedwatch-1
feed:
  url: wss://feed.example.com/stream
  symbol: ESM4
  timeframe: 5m
hub:
  ping_interval: 20s
telemetry:
  nats:
    enabled: true
    url: nats://localhost:4222
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "feedwatch-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "feedwatch-1")
	}
	if cfg.Feed.URL != "wss://feed.example.com/stream" {
		t.Errorf("Feed.URL = %q", cfg.Feed.URL)
	}
	if cfg.Feed.Timeframe != "5m" {
		t.Errorf("Feed.Timeframe = %q, want 5m", cfg.Feed.Timeframe)
	}
	if cfg.Hub.PingInterval != 20*time.Second {
		t.Errorf("Hub.PingInterval = %v, want 20s", cfg.Hub.PingInterval)
	}
	if !cfg.Telemetry.NATS.Enabled || cfg.Telemetry.NATS.URL != "nats://localhost:4222" {
		t.Errorf("Telemetry.NATS = %+v", cfg.Telemetry.NATS)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_TOKEN", "secret123")

	yaml := `
instance:
  id: feedwatch-1
feed:
  url: wss://feed.example.com/stream
  symbol: ESM4
  token: ${TEST_FEED_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.Token != "secret123" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: feedwatch-1
feed:
  url: wss://feed.example.com/stream
  symbol: ESM4
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.Connection != DefaultConnection {
		t.Errorf("Feed.Connection = %q, want default %q", cfg.Feed.Connection, DefaultConnection)
	}
	if cfg.Feed.Timeframe != DefaultTimeframe {
		t.Errorf("Feed.Timeframe = %q, want default %q", cfg.Feed.Timeframe, DefaultTimeframe)
	}
	if cfg.Hub.PingInterval != DefaultPingInterval {
		t.Errorf("Hub.PingInterval = %v, want default %v", cfg.Hub.PingInterval, DefaultPingInterval)
	}
	if cfg.Hub.BreakerThreshold != DefaultBreakerThreshold {
		t.Errorf("Hub.BreakerThreshold = %d, want default %d", cfg.Hub.BreakerThreshold, DefaultBreakerThreshold)
	}
	if cfg.Stream.HeartbeatTimeout != DefaultHeartbeatTimeout {
		t.Errorf("Stream.HeartbeatTimeout = %v, want default %v", cfg.Stream.HeartbeatTimeout, DefaultHeartbeatTimeout)
	}
	if cfg.Telemetry.BatchSize != DefaultTelemetryBatchSize {
		t.Errorf("Telemetry.BatchSize = %d, want default %d", cfg.Telemetry.BatchSize, DefaultTelemetryBatchSize)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{
			Instance: InstanceConfig{ID: "test"},
			Feed: FeedConfig{
				URL:    "wss://feed.example.com/stream",
				Symbol: "ESM4",
			},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing feed url",
			mutate:  func(c *Config) { c.Feed.URL = "" },
			wantErr: "feed.url is required",
		},
		{
			name:    "http feed url",
			mutate:  func(c *Config) { c.Feed.URL = "https://feed.example.com" },
			wantErr: `feed.url must use the ws or wss scheme, got "https://feed.example.com"`,
		},
		{
			name:    "missing symbol",
			mutate:  func(c *Config) { c.Feed.Symbol = "" },
			wantErr: "feed.symbol is required",
		},
		{
			name:    "nats enabled without url",
			mutate:  func(c *Config) { c.Telemetry.NATS.Enabled = true },
			wantErr: "telemetry.nats.url is required when the nats sink is enabled",
		},
		{
			name: "postgres sink missing password",
			mutate: func(c *Config) {
				c.Telemetry.Postgres.Enabled = true
				c.Telemetry.Postgres.Database = DBConfig{Host: "localhost", Name: "tm", User: "u", MaxConns: 5}
			},
			wantErr: "telemetry.postgres.database.password is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: `log.level must be debug, info, warn or error, got "verbose"`,
		},
		{
			name: "heartbeat check exceeds timeout",
			mutate: func(c *Config) {
				c.Stream.HeartbeatCheckInterval = 2 * time.Minute
			},
			wantErr: "stream.heartbeat_check_interval (2m0s) cannot exceed heartbeat_timeout (40s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

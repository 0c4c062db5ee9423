package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must use the ws or wss scheme, got %q", c.Feed.URL)
	}
	if c.Feed.Symbol == "" {
		return errors.New("feed.symbol is required")
	}

	if c.Hub.BreakerThreshold < 1 {
		return errors.New("hub.breaker_threshold must be >= 1")
	}
	if c.Hub.ReconnectBaseDelay > c.Hub.ReconnectMaxDelay {
		return fmt.Errorf("hub.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Hub.ReconnectBaseDelay, c.Hub.ReconnectMaxDelay)
	}

	if c.Stream.HeartbeatCheckInterval > c.Stream.HeartbeatTimeout {
		return fmt.Errorf("stream.heartbeat_check_interval (%v) cannot exceed heartbeat_timeout (%v)",
			c.Stream.HeartbeatCheckInterval, c.Stream.HeartbeatTimeout)
	}

	if c.Telemetry.NATS.Enabled && c.Telemetry.NATS.URL == "" {
		return errors.New("telemetry.nats.url is required when the nats sink is enabled")
	}
	if c.Telemetry.Postgres.Enabled {
		if err := c.Telemetry.Postgres.Database.validate("telemetry.postgres.database"); err != nil {
			return err
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

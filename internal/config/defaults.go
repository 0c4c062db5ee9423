package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultConnection             = "market"
	DefaultTimeframe              = "1m"
	DefaultDialTimeout            = 10 * time.Second
	DefaultWriteTimeout           = 5 * time.Second
	DefaultPingInterval           = 30 * time.Second
	DefaultReconnectBaseDelay     = 5 * time.Second
	DefaultReconnectMaxDelay      = 60 * time.Second
	DefaultBreakerThreshold       = 3
	DefaultBreakerCooldown        = 60 * time.Second
	DefaultTokenRetryDelay        = 5 * time.Second
	DefaultHeartbeatTimeout       = 40 * time.Second
	DefaultHeartbeatCheckInterval = 15 * time.Second
	DefaultTelemetryBufferSize    = 256
	DefaultTelemetryBatchSize     = 100
	DefaultTelemetryFlushInterval = 2 * time.Second
	DefaultNATSSubjectPrefix      = "marketfeed.telemetry"
	DefaultDBPort                 = 5432
	DefaultDBSSLMode              = "prefer"
	DefaultMaxConns               = 10
	DefaultMinConns               = 2
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"
)

func (c *Config) applyDefaults() {
	if c.Feed.Connection == "" {
		c.Feed.Connection = DefaultConnection
	}
	if c.Feed.Timeframe == "" {
		c.Feed.Timeframe = DefaultTimeframe
	}

	if c.Hub.DialTimeout == 0 {
		c.Hub.DialTimeout = DefaultDialTimeout
	}
	if c.Hub.WriteTimeout == 0 {
		c.Hub.WriteTimeout = DefaultWriteTimeout
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = DefaultPingInterval
	}
	if c.Hub.ReconnectBaseDelay == 0 {
		c.Hub.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Hub.ReconnectMaxDelay == 0 {
		c.Hub.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Hub.BreakerThreshold == 0 {
		c.Hub.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.Hub.BreakerCooldown == 0 {
		c.Hub.BreakerCooldown = DefaultBreakerCooldown
	}
	if c.Hub.TokenRetryDelay == 0 {
		c.Hub.TokenRetryDelay = DefaultTokenRetryDelay
	}

	if c.Stream.HeartbeatTimeout == 0 {
		c.Stream.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Stream.HeartbeatCheckInterval == 0 {
		c.Stream.HeartbeatCheckInterval = DefaultHeartbeatCheckInterval
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	if c.Telemetry.BufferSize == 0 {
		c.Telemetry.BufferSize = DefaultTelemetryBufferSize
	}
	if c.Telemetry.BatchSize == 0 {
		c.Telemetry.BatchSize = DefaultTelemetryBatchSize
	}
	if c.Telemetry.FlushInterval == 0 {
		c.Telemetry.FlushInterval = DefaultTelemetryFlushInterval
	}
	if c.Telemetry.NATS.SubjectPrefix == "" {
		c.Telemetry.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if c.Telemetry.Postgres.Enabled {
		applyDBDefaults(&c.Telemetry.Postgres.Database)
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

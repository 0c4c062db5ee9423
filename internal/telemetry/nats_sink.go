package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig holds NATS sink settings.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	ClientName     string        `yaml:"client_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
}

// NATSSink publishes each event to <prefix>.<event-name> as JSON on core
// NATS. Publishing is fire-and-forget, matching the pipeline contract.
type NATSSink struct {
	cfg    NATSConfig
	logger *slog.Logger
	nc     *nats.Conn
}

// NewNATSSink connects to NATS. The connection retries in the background,
// so a broker outage at startup does not fail the process.
func NewNATSSink(cfg NATSConfig, logger *slog.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "telemetry"
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "marketfeed-telemetry"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSSink{cfg: cfg, logger: logger, nc: nc}, nil
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Write(_ context.Context, events []Event) error {
	var firstErr error
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("marshal event %s: %w", ev.Name, err)
			}
			continue
		}
		subject := s.cfg.SubjectPrefix + "." + ev.Name
		if err := s.nc.Publish(subject, data); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("publish %s: %w", subject, err)
		}
	}
	return firstErr
}

// Close flushes pending publishes and drains the connection.
func (s *NATSSink) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		s.logger.Debug("nats drain failed", "error", err)
		s.nc.Close()
	}
}

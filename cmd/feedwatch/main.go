// feedwatch runs a long-lived market-data subscription: it connects to
// the configured feed, keeps the subscription alive across reconnects,
// and serves a small health/stats endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradevue/marketfeed/internal/config"
	"github.com/tradevue/marketfeed/internal/database"
	"github.com/tradevue/marketfeed/internal/hub"
	"github.com/tradevue/marketfeed/internal/instrument"
	"github.com/tradevue/marketfeed/internal/model"
	"github.com/tradevue/marketfeed/internal/stream"
	"github.com/tradevue/marketfeed/internal/telemetry"
	"github.com/tradevue/marketfeed/internal/token"
	"github.com/tradevue/marketfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedwatch.local.yaml", "path to config file")
	symbol := flag.String("symbol", "", "override the configured symbol")
	timeframe := flag.String("timeframe", "", "override the configured timeframe")
	healthPort := flag.Int("health-port", 8080, "health endpoint port, 0 disables")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *symbol != "" {
		cfg.Feed.Symbol = *symbol
	}
	if *timeframe != "" {
		cfg.Feed.Timeframe = *timeframe
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting feedwatch",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"symbol", cfg.Feed.Symbol,
		"timeframe", cfg.Feed.Timeframe,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	emitter, cleanup, err := buildTelemetry(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	h := hub.New(hub.Config{
		DialTimeout:        cfg.Hub.DialTimeout,
		WriteTimeout:       cfg.Hub.WriteTimeout,
		PingInterval:       cfg.Hub.PingInterval,
		ReconnectBaseDelay: cfg.Hub.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Hub.ReconnectMaxDelay,
		BreakerThreshold:   cfg.Hub.BreakerThreshold,
		BreakerCooldown:    cfg.Hub.BreakerCooldown,
		TokenRetryDelay:    cfg.Hub.TokenRetryDelay,
	}, logger)
	defer h.Close()

	instruments := instrument.NewRegistry()

	client := stream.New(stream.Config{
		ConnectionName:         cfg.Feed.Connection,
		URL:                    cfg.Feed.URL,
		Symbol:                 cfg.Feed.Symbol,
		Timeframe:              cfg.Feed.Timeframe,
		Token:                  buildTokenProvider(cfg.Feed),
		HeartbeatTimeout:       cfg.Stream.HeartbeatTimeout,
		HeartbeatCheckInterval: cfg.Stream.HeartbeatCheckInterval,
		ReconnectBaseDelay:     cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:      cfg.Stream.ReconnectMaxDelay,
	}, h, instruments, emitter, watchHandlers(logger), logger)
	defer client.Close()

	client.Connect()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := client.Stats()
				logger.Info("stream stats",
					"status", st.Status.String(),
					"messages", st.MessagesReceived,
					"dropped", st.EventsDropped,
					"reconnects", st.ReconnectAttempts,
				)
			}
		}
	}()

	if *healthPort > 0 {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", *healthPort),
			Handler: healthHandler(client, h),
		}
		go func() {
			logger.Info("health endpoint listening", "port", *healthPort)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// buildTokenProvider resolves the token source precedence: env var, then
// file, then the inline config value.
func buildTokenProvider(feed config.FeedConfig) func() string {
	providers := make([]token.Provider, 0, 3)
	if feed.TokenEnv != "" {
		providers = append(providers, token.FromEnv(feed.TokenEnv))
	}
	if feed.TokenFile != "" {
		providers = append(providers, token.FromFile(feed.TokenFile))
	}
	if feed.Token != "" {
		providers = append(providers, token.Static(feed.Token))
	}
	if len(providers) == 0 {
		return nil
	}
	return token.Chain(providers...)
}

// buildTelemetry wires the configured sinks behind one emitter. The
// returned cleanup stops the emitter and closes sink connections.
func buildTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*telemetry.Emitter, func(), error) {
	sinks := []telemetry.Sink{telemetry.NewLogSink(logger, slog.LevelDebug)}
	var closers []func()

	if cfg.Telemetry.NATS.Enabled {
		sink, err := telemetry.NewNATSSink(telemetry.NATSConfig{
			URL:           cfg.Telemetry.NATS.URL,
			SubjectPrefix: cfg.Telemetry.NATS.SubjectPrefix,
			ClientName:    "feedwatch-" + cfg.Instance.ID,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("nats sink: %w", err)
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
	}

	if cfg.Telemetry.Postgres.Enabled {
		pool, err := database.Connect(ctx, cfg.Telemetry.Postgres.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres sink: %w", err)
		}
		sinks = append(sinks, telemetry.NewPGSink(pool, logger))
		closers = append(closers, pool.Close)
	}

	emitter := telemetry.NewEmitter(telemetry.EmitterConfig{
		Instance:      cfg.Instance.ID,
		BufferSize:    cfg.Telemetry.BufferSize,
		BatchSize:     cfg.Telemetry.BatchSize,
		FlushInterval: cfg.Telemetry.FlushInterval,
	}, telemetry.NewMultiSink(sinks...), logger)

	if err := emitter.Start(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		emitter.Stop(stopCtx)
		for _, closeSink := range closers {
			closeSink()
		}
	}
	return emitter, cleanup, nil
}

// watchHandlers logs market data at debug so the process is observable
// without drowning the log at info.
func watchHandlers(logger *slog.Logger) stream.Handlers {
	return stream.Handlers{
		OnStatus: func(s model.ConnectionStatus) {
			logger.Info("stream status", "status", s.String())
		},
		OnReady: func(info model.SubscriptionInfo) {
			logger.Info("subscription ready",
				"symbol", info.Symbol,
				"timeframe", info.Timeframe,
				"topics", len(info.Topics),
			)
		},
		OnFailed: func(reason string) {
			logger.Error("subscription failed", "reason", reason)
		},
		OnDepth: func(snap model.DepthSnapshot) {
			logger.Debug("depth",
				"symbol", snap.Symbol,
				"mid", snap.MidPrice,
				"spread", snap.Spread,
				"bid_levels", len(snap.Bids),
				"ask_levels", len(snap.Asks),
			)
		},
		OnTicker: func(snap model.TickerSnapshot) {
			logger.Debug("ticker",
				"symbol", snap.Symbol,
				"bid", snap.Bid,
				"ask", snap.Ask,
				"last", snap.Last,
			)
		},
		OnBar: func(symbol string, bar model.Bar) {
			logger.Debug("bar",
				"symbol", symbol,
				"ts", bar.Timestamp,
				"close", bar.Close,
				"volume", bar.Volume,
			)
		},
		OnKline: func(snap model.KlineSnapshot) {
			logger.Debug("kline",
				"symbol", snap.Symbol,
				"timeframe", snap.Timeframe,
				"bars", len(snap.Bars),
			)
		},
		OnWarning: func(code, message string) {
			logger.Warn("stream warning", "code", code, "message", message)
		},
	}
}

func healthHandler(client *stream.Client, h *hub.Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		st := client.Stats()
		hubStats := h.Stats()

		status := "healthy"
		switch st.Status {
		case model.StatusFailed:
			status = "unhealthy"
		case model.StatusReconnecting, model.StatusConnecting:
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"stream": map[string]any{
				"state":              st.Status.String(),
				"symbol":             st.Symbol,
				"timeframe":          st.Timeframe,
				"confirmed_topics":   st.ConfirmedTopics,
				"reconnect_attempts": st.ReconnectAttempts,
				"messages_received":  st.MessagesReceived,
				"events_dropped":     st.EventsDropped,
				"last_activity_at":   st.LastActivityAt,
			},
			"hub": map[string]any{
				"connections": hubStats.Connections,
				"open":        hubStats.Open,
				"subscribers": hubStats.Subscribers,
			},
		})
	})

	return mux
}

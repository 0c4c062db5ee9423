// streamtest connects to a market-data feed and prints normalized events
// to the console. Handy for eyeballing a feed before wiring it into
// anything.
//
// Usage: go run ./cmd/streamtest --url wss://feed.example.com/stream --symbol ESM4
//
// The bearer token is read from the MARKETFEED_TOKEN environment variable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradevue/marketfeed/internal/hub"
	"github.com/tradevue/marketfeed/internal/instrument"
	"github.com/tradevue/marketfeed/internal/model"
	"github.com/tradevue/marketfeed/internal/stream"
	"github.com/tradevue/marketfeed/internal/token"
)

func main() {
	url := flag.String("url", "", "WebSocket feed URL (required)")
	symbol := flag.String("symbol", "", "symbol to subscribe (required)")
	timeframe := flag.String("timeframe", "1m", "bar timeframe")
	verbose := flag.Bool("verbose", false, "print full snapshot JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *url == "" || *symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: streamtest --url wss://... --symbol ESM4 [--timeframe 1m]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	h := hub.New(hub.DefaultConfig(), logger)
	defer h.Close()

	cfg := stream.DefaultConfig()
	cfg.ConnectionName = "streamtest"
	cfg.URL = *url
	cfg.Symbol = *symbol
	cfg.Timeframe = *timeframe
	cfg.Token = token.FromEnv("MARKETFEED_TOKEN")

	client := stream.New(cfg, h, instrument.NewRegistry(), nil, printHandlers(*verbose, cancel), logger)
	defer client.Close()

	client.Connect()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := client.Stats()
				logger.Info("stats",
					"status", st.Status.String(),
					"messages", st.MessagesReceived,
					"dropped", st.EventsDropped,
					"reconnects", st.ReconnectAttempts,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown complete")
}

func printHandlers(verbose bool, cancel context.CancelFunc) stream.Handlers {
	return stream.Handlers{
		OnStatus: func(s model.ConnectionStatus) {
			fmt.Printf("[STATUS] %s\n", s)
		},
		OnReady: func(info model.SubscriptionInfo) {
			fmt.Printf("[READY] symbol=%s timeframe=%s topics=%v\n",
				info.Symbol, info.Timeframe, info.Topics)
		},
		OnFailed: func(reason string) {
			fmt.Printf("[FAILED] %s\n", reason)
			cancel()
		},
		OnDepth: func(snap model.DepthSnapshot) {
			if verbose {
				data, _ := json.MarshalIndent(snap, "", "  ")
				fmt.Printf("[DEPTH] %s\n", data)
				return
			}
			fmt.Printf("[DEPTH] symbol=%s mid=%.4f spread=%.4f bids=%d asks=%d\n",
				snap.Symbol, snap.MidPrice, snap.Spread, len(snap.Bids), len(snap.Asks))
		},
		OnTicker: func(snap model.TickerSnapshot) {
			if verbose {
				data, _ := json.MarshalIndent(snap, "", "  ")
				fmt.Printf("[TICKER] %s\n", data)
				return
			}
			fmt.Printf("[TICKER] symbol=%s bid=%.4f ask=%.4f last=%.4f change=%.2f%%\n",
				snap.Symbol, snap.Bid, snap.Ask, snap.Last, snap.ChangePercent)
		},
		OnBar: func(symbol string, bar model.Bar) {
			fmt.Printf("[BAR] symbol=%s ts=%s o=%.4f h=%.4f l=%.4f c=%.4f v=%.0f\n",
				symbol, bar.Timestamp.Format(time.RFC3339), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		},
		OnKline: func(snap model.KlineSnapshot) {
			fmt.Printf("[KLINE] symbol=%s timeframe=%s bars=%d end=%s\n",
				snap.Symbol, snap.Timeframe, len(snap.Bars), snap.End.Format(time.RFC3339))
		},
		OnWarning: func(code, message string) {
			fmt.Printf("[WARN] %s: %s\n", code, message)
		},
	}
}

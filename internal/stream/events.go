package stream

import (
	"fmt"
	"strings"

	"github.com/tradevue/marketfeed/internal/norm"
	"github.com/tradevue/marketfeed/internal/telemetry"
)

// handleEvent routes one live market-data event to the matching
// normalizer and consumer callback. Runs on the actor goroutine.
func (c *Client) handleEvent(env *envelope) {
	topic := env.topicName()
	base, topicSym, ok := norm.ParseTopic(topic)
	if !ok {
		c.logger.Debug("unparsable topic", "topic", topic)
		return
	}

	payload := env.payloadMap()
	if payload == nil {
		c.logger.Debug("event without payload", "topic", topic)
		return
	}
	paySym := norm.PayloadSymbol(payload)

	// Root-equivalence guard: events for a different instrument root are
	// dropped, never relabeled. "ESM4" for a client on "ES" passes.
	if c.symbolMismatch(topicSym, paySym) {
		c.dropped++
		got := topicSym
		if got == "" {
			got = paySym
		}
		c.warnOnce(
			"symbol-mismatch:"+got,
			"symbol-mismatch",
			fmt.Sprintf("ignoring %s event for %s while subscribed to %s", base, got, c.symbol),
		)
		c.telemetry.Emit(telemetry.EventSymbolMismatch, map[string]any{
			"expected": c.symbol,
			"got":      got,
			"topic":    topic,
		})
		return
	}

	tick := c.instruments.TickSize(c.symbol)

	switch {
	case strings.HasSuffix(base, ".dom") || strings.HasSuffix(base, ".depth"):
		snap, err := norm.Depth(payload, c.symbol, tick)
		if err != nil {
			c.logger.Debug("depth event dropped", "error", err)
			return
		}
		snap.Symbol = c.symbol
		if c.handlers.OnDepth != nil {
			c.handlers.OnDepth(snap)
		}

	case strings.HasSuffix(base, ".ticker"):
		snap, err := norm.Ticker(payload, c.symbol, tick)
		if err != nil {
			c.logger.Debug("ticker event dropped", "error", err)
			return
		}
		snap.Symbol = c.symbol
		if c.handlers.OnTicker != nil {
			c.handlers.OnTicker(snap)
		}

	case strings.HasSuffix(base, ".bar") || strings.HasSuffix(base, ".kline"):
		c.handleBarEvent(payload, tick)

	default:
		c.logger.Debug("unhandled event topic", "topic", topic)
	}
}

// handleBarEvent accepts either a single live bar or a bar series pushed
// on the bar channel.
func (c *Client) handleBarEvent(payload map[string]any, tick float64) {
	if kl, err := norm.Kline(payload, c.symbol, c.timeframe, tick); err == nil {
		kl.Symbol = c.symbol
		if c.handlers.OnKline != nil {
			c.handlers.OnKline(kl)
		}
		return
	}

	bar, ok := norm.Bar(payload, tick)
	if !ok {
		// Some feeds nest the live bar one level down.
		if v, okField := payload["bar"]; okField {
			bar, ok = norm.Bar(v, tick)
		}
	}
	if !ok {
		c.logger.Debug("bar event dropped, no parsable bar")
		return
	}
	if c.handlers.OnBar != nil {
		c.handlers.OnBar(c.symbol, bar)
	}
}

// symbolMismatch reports whether either the topic symbol or the payload
// symbol names a different instrument root than the subscription.
func (c *Client) symbolMismatch(topicSym, paySym string) bool {
	if topicSym != "" && !norm.SameRoot(topicSym, c.symbol) {
		return true
	}
	if paySym != "" && !norm.SameRoot(paySym, c.symbol) {
		return true
	}
	return false
}

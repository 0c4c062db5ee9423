package stream

import (
	"github.com/tradevue/marketfeed/internal/model"
	"github.com/tradevue/marketfeed/internal/norm"
)

// ingestAckSnapshot extracts initial market state bundled into a
// subscribe ACK and replays it through the normal consumer callbacks, so
// the UI paints before the first live event arrives.
func (c *Client) ingestAckSnapshot(env *envelope, symbol, timeframe string) {
	for _, rec := range resolveSnapshotRecords(env) {
		c.ingestRecord(rec, symbol, timeframe)
	}
}

// resolveSnapshotRecords finds the snapshot payload across the aliases
// feeds use: a top-level snapshot/snapshots field, or the same nested
// under payload or data. Single objects and arrays are both accepted; the
// first alias that yields records wins.
func resolveSnapshotRecords(env *envelope) []map[string]any {
	if recs := decodeRecords(env.Snapshot); recs != nil {
		return recs
	}
	if recs := decodeRecords(env.Snapshots); recs != nil {
		return recs
	}

	for _, raw := range [][]byte{env.Payload, env.Data} {
		m := decodeMap(raw)
		if m == nil {
			continue
		}
		for _, key := range []string{"snapshot", "snapshots"} {
			if v, ok := m[key]; ok {
				if recs := anyRecords(v); recs != nil {
					return recs
				}
			}
		}
	}
	return nil
}

// ingestRecord probes one snapshot record for every data shape it may
// carry. The probes are independent: a record can hold a depth block, a
// quote and a bar history at once.
func (c *Client) ingestRecord(rec map[string]any, symbol, timeframe string) {
	tick := c.instruments.TickSize(symbol)

	if hasAny(rec, "bids", "asks", "best_bid_price", "bestBidPrice", "best_ask_price", "bestAskPrice") {
		if snap, err := norm.Depth(rec, symbol, tick); err == nil {
			snap.Symbol = symbol
			if c.handlers.OnDepth != nil {
				c.handlers.OnDepth(snap)
			}
		}
	}

	if hasAny(rec, "bid", "ask", "last", "last_price", "lastPrice") {
		if snap, err := norm.Ticker(rec, symbol, tick); err == nil {
			snap.Symbol = symbol
			if c.handlers.OnTicker != nil {
				c.handlers.OnTicker(snap)
			}
		}
	}

	sawHistory := false
	if hasAny(rec, "items", "bars", "candles", "klines", "history") {
		if kl, err := norm.Kline(rec, symbol, timeframe, tick); err == nil {
			kl.Symbol = symbol
			sawHistory = true
			if c.handlers.OnKline != nil {
				c.handlers.OnKline(kl)
			}
		}
	}

	if v, ok := firstField(rec, "bar", "latest_bar", "latestBar", "last_bar", "lastBar"); ok {
		if bar, ok := norm.Bar(v, tick); ok {
			if c.handlers.OnBar != nil {
				c.handlers.OnBar(symbol, bar)
			}
			// Without a history block, promote the single live bar into a
			// one-bar series so charts have something to seed from.
			if !sawHistory && c.handlers.OnKline != nil {
				interval := norm.TimeframeSeconds(timeframe)
				c.handlers.OnKline(model.KlineSnapshot{
					Symbol:          symbol,
					Timeframe:       timeframe,
					IntervalSeconds: interval,
					DurationSeconds: interval,
					Bars:            []model.Bar{bar},
					End:             bar.Timestamp,
				})
			}
		}
	}
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func firstField(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

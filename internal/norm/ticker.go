package norm

import (
	"time"

	"github.com/tradevue/marketfeed/internal/model"
)

// Ticker maps a raw ticker payload to a canonical TickerSnapshot.
//
// Mid price is derived from the bid/ask average when not explicit; change
// and changePercent are derived from last vs close when absent. Prices pass
// tick-size correction with the close (falling back to mid) as reference.
//
// Returns ErrSymbolMismatch when the payload symbol root disagrees with
// want, and ErrEmptyPayload when no price field is present.
func Ticker(payload map[string]any, want string, tickSize float64) (model.TickerSnapshot, error) {
	symbol := stringField(payload, "symbol", "s", "ticker", "instrument")
	if symbol != "" && !SameRoot(symbol, want) {
		return model.TickerSnapshot{}, ErrSymbolMismatch
	}

	bid, hasBid := floatField(payload, "bid", "bid_price", "bidPrice", "b")
	ask, hasAsk := floatField(payload, "ask", "ask_price", "askPrice", "a")
	last, hasLast := floatField(payload, "last", "last_price", "lastPrice", "price", "lp")
	close_, hasClose := floatField(payload, "close", "prev_close", "prevClose", "close_price", "c")

	if !hasBid && !hasAsk && !hasLast && !hasClose {
		return model.TickerSnapshot{}, ErrEmptyPayload
	}

	mid, hasMid := floatField(payload, "mid_price", "midPrice", "mid")
	if !hasMid && hasBid && hasAsk {
		mid = (bid + ask) / 2
	}

	reference := close_
	if reference == 0 {
		reference = mid
	}

	bid = CorrectPrice(bid, tickSize, reference)
	ask = CorrectPrice(ask, tickSize, reference)
	last = CorrectPrice(last, tickSize, reference)
	close_ = CorrectPrice(close_, tickSize, reference)
	// Mid is derived and legitimately half-tick, so it is not snapped.

	spread, hasSpread := floatField(payload, "spread")
	if !hasSpread && bid > 0 && ask > 0 {
		spread = ask - bid
	}

	change, hasChange := floatField(payload, "change")
	if !hasChange && hasLast && hasClose {
		change = last - close_
	}
	changePct, hasChangePct := floatField(payload, "change_percent", "changePercent")
	if !hasChangePct && close_ != 0 && hasLast && hasClose {
		changePct = change / close_ * 100
	}

	updatedAt, ok := timeField(payload, "updatedAt", "updated_at", "timestamp", "ts", "time")
	if !ok {
		updatedAt = time.Now().UTC()
	}

	return model.TickerSnapshot{
		Symbol:        symbol,
		Bid:           bid,
		Ask:           ask,
		Last:          last,
		Close:         close_,
		MidPrice:      mid,
		Spread:        spread,
		Change:        change,
		ChangePercent: changePct,
		UpdatedAt:     updatedAt,
	}, nil
}

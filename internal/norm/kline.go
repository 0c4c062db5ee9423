package norm

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tradevue/marketfeed/internal/model"
)

// Bar maps a single raw bar to a canonical Bar. Accepted shapes: an OHLCV
// object (string or numeric fields) or a positional [ts, o, h, l, c, v]
// array. Missing high/low fall back to the close (or open) so a trade-only
// bar still charts. Returns ok=false when no timestamp or price is present.
func Bar(raw any, tickSize float64) (model.Bar, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return barFromMap(v, tickSize)
	case []any:
		return barFromArray(v, tickSize)
	}
	return model.Bar{}, false
}

func barFromMap(m map[string]any, tickSize float64) (model.Bar, bool) {
	ts, okTS := timeField(m, "timestamp", "ts", "time", "t", "start", "openTime", "open_time")
	open, okO := floatField(m, "open", "o")
	high, okH := floatField(m, "high", "h")
	low, okL := floatField(m, "low", "l")
	close_, okC := floatField(m, "close", "c")
	volume, _ := floatField(m, "volume", "vol", "v")

	if !okTS || (!okO && !okC) {
		return model.Bar{}, false
	}

	// Sparse bars: collapse to whatever price we have.
	if !okC {
		close_ = open
	}
	if !okO {
		open = close_
	}
	if !okH {
		high = close_
	}
	if !okL {
		low = close_
	}

	return model.Bar{
		Timestamp: ts,
		Open:      CorrectPrice(open, tickSize, close_),
		High:      CorrectPrice(high, tickSize, close_),
		Low:       CorrectPrice(low, tickSize, close_),
		Close:     CorrectPrice(close_, tickSize, close_),
		Volume:    volume,
	}, true
}

func barFromArray(arr []any, tickSize float64) (model.Bar, bool) {
	if len(arr) < 5 {
		return model.Bar{}, false
	}

	ts, okTS := Time(arr[0])
	open, okO := Float(arr[1])
	high, okH := Float(arr[2])
	low, okL := Float(arr[3])
	close_, okC := Float(arr[4])
	var volume float64
	if len(arr) > 5 {
		volume, _ = Float(arr[5])
	}

	if !okTS || !okO || !okC {
		return model.Bar{}, false
	}

	// Same sparse-bar collapse as the map shape.
	if !okH {
		high = close_
	}
	if !okL {
		low = close_
	}

	return model.Bar{
		Timestamp: ts,
		Open:      CorrectPrice(open, tickSize, close_),
		High:      CorrectPrice(high, tickSize, close_),
		Low:       CorrectPrice(low, tickSize, close_),
		Close:     CorrectPrice(close_, tickSize, close_),
		Volume:    volume,
	}, true
}

// Bars maps a raw bar list, deduplicates bars sharing an identical
// normalized UTC timestamp (later occurrence wins) and sorts ascending.
func Bars(raw []any, tickSize float64) []model.Bar {
	byTS := make(map[int64]model.Bar, len(raw))
	for _, entry := range raw {
		bar, ok := Bar(entry, tickSize)
		if !ok {
			continue
		}
		byTS[bar.Timestamp.UnixNano()] = bar
	}

	bars := make([]model.Bar, 0, len(byTS))
	for _, bar := range byTS {
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars
}

// Kline maps a kline-shaped payload (symbol/timeframe/interval/duration/
// items) to a canonical KlineSnapshot.
func Kline(payload map[string]any, want, timeframe string, tickSize float64) (model.KlineSnapshot, error) {
	symbol := stringField(payload, "symbol", "s", "ticker", "instrument")
	if symbol != "" && !SameRoot(symbol, want) {
		return model.KlineSnapshot{}, ErrSymbolMismatch
	}

	tf := stringField(payload, "timeframe", "tf", "resolution")
	if tf == "" {
		tf = timeframe
	}

	items, _ := field(payload, "items", "bars", "candles", "klines", "history", "data")
	rawBars, _ := items.([]any)
	bars := Bars(rawBars, tickSize)
	if len(bars) == 0 {
		return model.KlineSnapshot{}, ErrEmptyPayload
	}

	interval, ok := intervalSecondsField(payload, "intervalSeconds", "interval_seconds", "interval")
	if !ok {
		interval = TimeframeSeconds(tf)
	}
	duration, ok := intervalSecondsField(payload, "durationSeconds", "duration_seconds", "duration")
	if !ok {
		duration = interval * len(bars)
	}

	end, ok := timeField(payload, "end", "endTime", "end_time")
	if !ok {
		end = bars[len(bars)-1].Timestamp
	}

	return model.KlineSnapshot{
		Symbol:          symbol,
		Timeframe:       tf,
		IntervalSeconds: interval,
		DurationSeconds: duration,
		Bars:            bars,
		End:             end,
	}, nil
}

// intervalSecondsField reads an interval field that may be numeric seconds
// or a timeframe string like "5m".
func intervalSecondsField(payload map[string]any, keys ...string) (int, bool) {
	v, ok := field(payload, keys...)
	if !ok {
		return 0, false
	}
	if n, ok := Int(v); ok && n > 0 {
		return n, true
	}
	if s, ok := v.(string); ok {
		if n := TimeframeSeconds(s); n > 0 {
			return n, true
		}
	}
	return 0, false
}

// TimeframeSeconds converts a timeframe string like "1m", "5m", "1h", "1d"
// to seconds. Returns 0 for unparsable input.
func TimeframeSeconds(timeframe string) int {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	if tf == "" {
		return 0
	}

	unit := tf[len(tf)-1]
	digits := tf[:len(tf)-1]
	mult := 0
	switch unit {
	case 's':
		mult = 1
	case 'm':
		mult = 60
	case 'h':
		mult = 3600
	case 'd':
		mult = 86400
	case 'w':
		mult = 7 * 86400
	default:
		// Bare number means minutes ("15" == "15m").
		digits = tf
		mult = 60
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0
	}
	return n * mult
}

package norm

import (
	"errors"
	"testing"
	"time"
)

func TestBarFromMap(t *testing.T) {
	bar, ok := Bar(map[string]any{
		"timestamp": "2025-03-14T15:00:00Z",
		"open":      "4500.25",
		"high":      4502.0,
		"low":       4499.5,
		"close":     4501.0,
		"volume":    1234.0,
	}, 0.25)
	if !ok {
		t.Fatal("expected ok")
	}
	if bar.Open != 4500.25 || bar.High != 4502 || bar.Low != 4499.5 || bar.Close != 4501 {
		t.Errorf("bar = %+v", bar)
	}
	if bar.Volume != 1234 {
		t.Errorf("Volume = %v", bar.Volume)
	}
}

func TestBarSparseFallback(t *testing.T) {
	bar, ok := Bar(map[string]any{
		"ts":    float64(1700000000),
		"close": 101.5,
	}, 0)
	if !ok {
		t.Fatal("expected ok")
	}
	if bar.Open != 101.5 || bar.High != 101.5 || bar.Low != 101.5 {
		t.Errorf("sparse bar should collapse to close: %+v", bar)
	}
}

func TestBarFromArray(t *testing.T) {
	bar, ok := Bar([]any{float64(1700000000000), "100", "102", "99", "101", "5000"}, 0)
	if !ok {
		t.Fatal("expected ok")
	}
	if !bar.Timestamp.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("Timestamp = %v", bar.Timestamp)
	}
	if bar.High != 102 || bar.Volume != 5000 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestBarFromArraySparseFallback(t *testing.T) {
	// Positional bars collapse missing high/low to close, like the map shape.
	bar, ok := Bar([]any{float64(1700000000000), 100.0, nil, nil, 101.0}, 0)
	if !ok {
		t.Fatal("expected ok")
	}
	if bar.High != 101 || bar.Low != 101 {
		t.Errorf("sparse array bar should collapse to close: %+v", bar)
	}
}

func TestBarsDedupeEquivalentTimestamps(t *testing.T) {
	// Same instant written as "Z" and "+00:00"; the later entry wins.
	raw := []any{
		map[string]any{"timestamp": "2025-03-14T15:00:00Z", "close": 100.0},
		map[string]any{"timestamp": "2025-03-14T15:01:00Z", "close": 101.0},
		map[string]any{"timestamp": "2025-03-14T15:00:00+00:00", "close": 100.5},
	}

	bars := Bars(raw, 0)
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2", len(bars))
	}
	if bars[0].Close != 100.5 {
		t.Errorf("dedup kept %v, want later occurrence 100.5", bars[0].Close)
	}
	if !bars[0].Timestamp.Before(bars[1].Timestamp) {
		t.Error("bars not sorted ascending")
	}
}

func TestKline(t *testing.T) {
	payload := map[string]any{
		"symbol":    "ESM4",
		"timeframe": "1m",
		"interval":  60.0,
		"duration":  120.0,
		"items": []any{
			map[string]any{"timestamp": "2025-03-14T15:01:00Z", "close": 101.0},
			map[string]any{"timestamp": "2025-03-14T15:00:00Z", "close": 100.0},
		},
	}

	got, err := Kline(payload, "ES", "1m", 0)
	if err != nil {
		t.Fatalf("Kline failed: %v", err)
	}
	if got.IntervalSeconds != 60 || got.DurationSeconds != 120 {
		t.Errorf("interval/duration = %d/%d", got.IntervalSeconds, got.DurationSeconds)
	}
	if len(got.Bars) != 2 || got.Bars[0].Close != 100 {
		t.Errorf("bars = %+v", got.Bars)
	}
	if !got.End.Equal(time.Date(2025, 3, 14, 15, 1, 0, 0, time.UTC)) {
		t.Errorf("End = %v", got.End)
	}
}

func TestKlineIntervalFromTimeframe(t *testing.T) {
	payload := map[string]any{
		"symbol": "ES",
		"bars": []any{
			map[string]any{"timestamp": "2025-03-14T15:00:00Z", "close": 100.0},
		},
	}

	got, err := Kline(payload, "ES", "5m", 0)
	if err != nil {
		t.Fatalf("Kline failed: %v", err)
	}
	if got.IntervalSeconds != 300 {
		t.Errorf("IntervalSeconds = %d, want 300", got.IntervalSeconds)
	}
	if got.Timeframe != "5m" {
		t.Errorf("Timeframe = %q", got.Timeframe)
	}
}

func TestKlineRejectsMismatchAndEmpty(t *testing.T) {
	_, err := Kline(map[string]any{"symbol": "NQ", "items": []any{}}, "ES", "1m", 0)
	if !errors.Is(err, ErrSymbolMismatch) {
		t.Errorf("err = %v, want ErrSymbolMismatch", err)
	}

	_, err = Kline(map[string]any{"symbol": "ES", "items": []any{}}, "ES", "1m", 0)
	if !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestTimeframeSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1m", 60},
		{"5m", 300},
		{"1h", 3600},
		{"1d", 86400},
		{"30s", 30},
		{"15", 900},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := TimeframeSeconds(tt.in); got != tt.want {
			t.Errorf("TimeframeSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

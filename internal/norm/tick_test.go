package norm

import (
	"math"
	"testing"
)

func TestCorrectPriceSnapsToTick(t *testing.T) {
	tests := []struct {
		price    float64
		tickSize float64
		want     float64
	}{
		{4500.13, 0.25, 4500.25},
		{4500.12, 0.25, 4500.00},
		{101.4049, 0.01, 101.40},
		{1.23456, 0, 1.23456}, // unknown tick size passes through
		{0, 0.25, 0},
	}

	for _, tt := range tests {
		if got := CorrectPrice(tt.price, tt.tickSize, tt.price); got != tt.want {
			t.Errorf("CorrectPrice(%v, %v) = %v, want %v", tt.price, tt.tickSize, got, tt.want)
		}
	}
}

func TestCorrectPriceNeverRescales(t *testing.T) {
	// A contract-multiplier feed quoting 50x the reference must keep its
	// magnitude. The reference is a sanity aid, not a scaling hint.
	got := CorrectPrice(225000, 0.25, 4500)
	if got != 225000 {
		t.Errorf("CorrectPrice downscaled a plausible price: got %v", got)
	}
}

func TestCorrectPriceNonFinite(t *testing.T) {
	if got := CorrectPrice(math.NaN(), 0.25, 4500); got != 4500 {
		t.Errorf("NaN price should fall back to reference, got %v", got)
	}
	if got := CorrectPrice(math.Inf(1), 0.25, math.NaN()); got != 0 {
		t.Errorf("non-finite price and reference should yield 0, got %v", got)
	}
}

func TestTickDecimals(t *testing.T) {
	tests := []struct {
		tick float64
		want int
	}{
		{1, 0},
		{0.5, 1},
		{0.25, 2},
		{0.001, 3},
	}
	for _, tt := range tests {
		if got := tickDecimals(tt.tick); got != tt.want {
			t.Errorf("tickDecimals(%v) = %d, want %d", tt.tick, got, tt.want)
		}
	}
}

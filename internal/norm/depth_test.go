package norm

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tradevue/marketfeed/internal/model"
)

func TestDepthBasic(t *testing.T) {
	payload := map[string]any{
		"symbol":    "ESM4",
		"timestamp": "2025-03-14T15:09:26Z",
		"bids": []any{
			map[string]any{"price": 4500.25, "size": 10.0},
			map[string]any{"price": 4500.00, "size": 5.0},
		},
		"asks": []any{
			map[string]any{"price": 4500.50, "size": 8.0},
			map[string]any{"price": 4500.75, "size": 3.0},
		},
	}

	got, err := Depth(payload, "ES", 0.25)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}

	want := model.DepthSnapshot{
		Symbol: "ESM4",
		Bids: []model.PriceLevel{
			{Price: 4500.25, Size: 10},
			{Price: 4500.00, Size: 5},
		},
		Asks: []model.PriceLevel{
			{Price: 4500.50, Size: 8},
			{Price: 4500.75, Size: 3},
		},
		MidPrice:     4500.375, // (4500.25+4500.50)/2, not snapped
		Spread:       0.25,
		TotalBidSize: 15,
		TotalAskSize: 11,
		UpdatedAt:    time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Depth mismatch (-want +got):\n%s", diff)
	}
}

func TestDepthCapsAndSorts(t *testing.T) {
	bids := make([]any, 0, 8)
	// Deliberately unsorted, 8 levels.
	for _, p := range []float64{4499, 4503, 4500, 4502, 4498, 4501, 4497, 4496} {
		bids = append(bids, []any{p, 1.0})
	}

	payload := map[string]any{
		"symbol":    "ES",
		"timestamp": float64(1700000000),
		"bids":      bids,
	}

	got, err := Depth(payload, "ES", 0)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}

	if len(got.Bids) != MaxDepthLevels {
		t.Fatalf("bids = %d levels, want %d", len(got.Bids), MaxDepthLevels)
	}
	for i := 1; i < len(got.Bids); i++ {
		if got.Bids[i].Price > got.Bids[i-1].Price {
			t.Errorf("bids not descending at %d: %v", i, got.Bids)
		}
	}
	if got.Bids[0].Price != 4503 {
		t.Errorf("best bid = %v, want 4503", got.Bids[0].Price)
	}
	if got.TotalBidSize != 5 {
		t.Errorf("TotalBidSize = %v, want 5 (capped levels only)", got.TotalBidSize)
	}
}

func TestDepthSynthesizesBestLevel(t *testing.T) {
	payload := map[string]any{
		"symbol":         "ES",
		"best_bid_price": 4500.25,
		"best_bid_size":  12.0,
		"best_ask_price": 4500.50,
		"best_ask_size":  7.0,
	}

	got, err := Depth(payload, "ES", 0.25)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}

	if len(got.Bids) != 1 || got.Bids[0].Price != 4500.25 || got.Bids[0].Size != 12 {
		t.Errorf("synthesized bid = %+v", got.Bids)
	}
	if len(got.Asks) != 1 || got.Asks[0].Price != 4500.50 {
		t.Errorf("synthesized ask = %+v", got.Asks)
	}
	if got.Spread != 0.25 {
		t.Errorf("Spread = %v, want 0.25", got.Spread)
	}
}

func TestDepthRejectsSymbolMismatch(t *testing.T) {
	payload := map[string]any{
		"symbol": "NQM4",
		"bids":   []any{[]any{15000.0, 1.0}},
	}

	_, err := Depth(payload, "ES", 0.25)
	if !errors.Is(err, ErrSymbolMismatch) {
		t.Errorf("err = %v, want ErrSymbolMismatch", err)
	}
}

func TestDepthEmptyPayload(t *testing.T) {
	_, err := Depth(map[string]any{"symbol": "ES"}, "ES", 0.25)
	if !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("err = %v, want ErrEmptyPayload", err)
	}
}

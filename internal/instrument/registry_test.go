package instrument

import (
	"testing"

	"github.com/tradevue/marketfeed/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestDOMCapableExplicitMetadataWins(t *testing.T) {
	r := NewRegistry()
	r.Upsert(model.SymbolMeta{
		Symbol:       "ES",
		SecurityType: "equity", // would say no
		DOMCapable:   boolPtr(true),
	})

	if !r.DOMCapable("ESM4") {
		t.Error("explicit DOMCapable=true should win over security type")
	}
}

func TestDOMCapableSecurityTypeHeuristic(t *testing.T) {
	tests := []struct {
		secType string
		want    bool
	}{
		{"future", true},
		{"option", true},
		{"forward", true},
		{"commodity", true},
		{"equity", false},
		{"cfd", false},
		{"etf", false},
	}

	for _, tt := range tests {
		r := NewRegistry()
		r.Upsert(model.SymbolMeta{Symbol: "X1", SecurityType: tt.secType})
		if got := r.DOMCapable("X1"); got != tt.want {
			t.Errorf("secType %q: DOMCapable = %v, want %v", tt.secType, got, tt.want)
		}
	}
}

func TestDOMCapableExchangeHints(t *testing.T) {
	tests := []struct {
		exchange string
		want     bool
	}{
		{"CME", true},
		{"EUREX", true},
		{"ICE", true},
		{"NASDAQ", false},
		{"NYSE", false},
		{"ARCA", false},
	}

	for _, tt := range tests {
		r := NewRegistry()
		r.Upsert(model.SymbolMeta{Symbol: "X1", Exchange: tt.exchange})
		if got := r.DOMCapable("X1"); got != tt.want {
			t.Errorf("exchange %q: DOMCapable = %v, want %v", tt.exchange, got, tt.want)
		}
	}
}

func TestDOMCapableCachedACKCapability(t *testing.T) {
	r := NewRegistry()

	// No metadata at all: optimistic default.
	if !r.DOMCapable("AAPL") {
		t.Error("unknown symbol should default to DOM-capable")
	}

	// ACK said no DOM; the cache should correct the default.
	r.CacheCapabilities("AAPL", map[string]bool{"dom": false})
	if r.DOMCapable("AAPL") {
		t.Error("cached ACK capability should override the default")
	}

	r.CacheCapabilities("AAPL", map[string]bool{"dom": true})
	if !r.DOMCapable("AAPL") {
		t.Error("updated ACK capability should apply")
	}
}

func TestRegistryKeysByRoot(t *testing.T) {
	r := NewRegistry()
	r.Upsert(model.SymbolMeta{Symbol: "ESM4", TickSize: 0.25})

	if got := r.TickSize("ES"); got != 0.25 {
		t.Errorf("TickSize(ES) = %v, want 0.25", got)
	}
	if got := r.TickSize("ESU24"); got != 0.25 {
		t.Errorf("TickSize(ESU24) = %v, want 0.25", got)
	}
	if got := r.Get("ESM4").Root; got != "ES" {
		t.Errorf("Root = %q, want ES", got)
	}
}

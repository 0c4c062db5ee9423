package model

import "time"

// -----------------------------------------------------------------------------
// Connection State
// -----------------------------------------------------------------------------

// ConnectionStatus describes the lifecycle of a logical connection.
type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusReconnecting
	StatusFailed
)

// String returns the lowercase status name used in logs and telemetry.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------
// Market Data Snapshots
// -----------------------------------------------------------------------------

// PriceLevel is a single depth level.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// DepthSnapshot is the canonical top-of-book view. Bids are ordered by price
// descending, asks ascending, each side capped at 5 levels.
type DepthSnapshot struct {
	Symbol       string       `json:"symbol"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
	MidPrice     float64      `json:"midPrice"`
	Spread       float64      `json:"spread"`
	TotalBidSize float64      `json:"totalBidSize"`
	TotalAskSize float64      `json:"totalAskSize"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// TickerSnapshot is the canonical last-quote view.
type TickerSnapshot struct {
	Symbol        string    `json:"symbol"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Last          float64   `json:"last"`
	Close         float64   `json:"close"`
	MidPrice      float64   `json:"midPrice"`
	Spread        float64   `json:"spread"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Bar is a single OHLCV bar. Timestamp is the bar open time in UTC.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// KlineSnapshot is a historical bar series for one symbol and timeframe.
// Bars are deduplicated by timestamp (latest occurrence wins) and sorted
// ascending.
type KlineSnapshot struct {
	Symbol          string    `json:"symbol"`
	Timeframe       string    `json:"timeframe"`
	IntervalSeconds int       `json:"intervalSeconds"`
	DurationSeconds int       `json:"durationSeconds"`
	Bars            []Bar     `json:"bars"`
	End             time.Time `json:"end"`
}

// -----------------------------------------------------------------------------
// Instrument Metadata
// -----------------------------------------------------------------------------

// SymbolMeta carries per-instrument metadata used for price correction and
// topic derivation. Zero values mean "unknown".
type SymbolMeta struct {
	Symbol       string  // Display symbol (e.g., "ESM4")
	Root         string  // Root symbol stripped of futures month/year codes
	SecurityType string  // "future", "equity", "cfd", "etf", "option", ...
	Exchange     string  // Listing exchange (e.g., "CME", "NASDAQ")
	TickSize     float64 // Minimum price increment, 0 if unknown
	DOMCapable   *bool   // Explicit depth-of-market capability, nil if unknown
}

// SubscriptionInfo is the confirmed subscription state handed to consumers
// after a successful subscribe ACK.
type SubscriptionInfo struct {
	Symbol       string          `json:"symbol"`
	Timeframe    string          `json:"timeframe"`
	Topics       []string        `json:"topics"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

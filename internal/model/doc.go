// Package model defines the canonical domain types shared across the
// marketfeed client.
//
// Conventions:
//   - Prices and sizes: float64 in instrument units, snapped to the
//     instrument tick size before they become canonical
//   - Timestamps: time.Time normalized to UTC (ISO 8601 on the wire)
//   - Depth: at most 5 levels per side, bids descending, asks ascending
package model

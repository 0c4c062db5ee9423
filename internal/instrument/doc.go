// Package instrument implements the symbol metadata registry.
//
// The registry holds per-symbol metadata (tick size, security type,
// exchange) and resolves depth-of-market capability for topic derivation:
// explicit metadata wins, then security-type heuristics, then exchange
// hints, then the capability map cached from the most recent subscribe ACK,
// and finally an optimistic DOM-capable default.
package instrument

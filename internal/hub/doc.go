// Package hub implements the Connection Hub component.
//
// The Hub:
//   - Owns at most one physical WebSocket per logical connection name
//   - Multiplexes any number of subscribers onto that socket
//   - Reconnects with exponential backoff (doubling, capped) and trips a
//     circuit breaker after repeated early failures
//   - Treats authentication close codes as terminal (no reconnect)
//   - Emits application-level ping frames while the socket is open
//   - Resolves the bearer token from its subscribers on every attempt
package hub

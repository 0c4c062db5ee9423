// Package norm implements the pure normalization layer.
//
// Every function here is stateless: raw wire payloads (decoded JSON maps) go
// in, canonical model snapshots come out. Topic parsing, root-symbol
// extraction, timestamp normalization and tick-size price correction live
// here so they can be tested without any transport.
package norm

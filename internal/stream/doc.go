// Package stream implements the per-symbol subscription client.
//
// A Client owns one logical market-data subscription: it attaches to a
// shared hub connection, negotiates topic subscriptions for the current
// symbol and timeframe, normalizes inbound events through the norm
// package, and delivers canonical snapshots to consumer callbacks.
//
// All mutable client state is owned by a single actor goroutine. Public
// methods post closures to its mailbox; hub callbacks and timers do the
// same, so no field is ever touched concurrently.
package stream

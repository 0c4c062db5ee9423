// Package telemetry implements the fire-and-forget observability pipeline.
//
// Emit never blocks the caller: events land in a growable ring buffer and a
// background goroutine drains them in batches to the configured sinks
// (structured log, NATS subject, Postgres table). Sink errors are logged
// and dropped; telemetry never applies backpressure to the data path.
package telemetry

// Package database provides PostgreSQL connection pool management for the
// telemetry sink.
package database

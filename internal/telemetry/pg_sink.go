package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink persists events to a Postgres table via batched inserts.
//
// Expected schema:
//
//	CREATE TABLE telemetry_events (
//	    id       UUID PRIMARY KEY,
//	    instance TEXT NOT NULL,
//	    name     TEXT NOT NULL,
//	    at       TIMESTAMPTZ NOT NULL,
//	    fields   JSONB
//	);
type PGSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGSink wraps an existing connection pool.
func NewPGSink(pool *pgxpool.Pool, logger *slog.Logger) *PGSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGSink{pool: pool, logger: logger}
}

func (s *PGSink) Name() string { return "postgres" }

// Write inserts a batch with ON CONFLICT DO NOTHING so replayed batches
// stay idempotent.
func (s *PGSink) Write(ctx context.Context, events []Event) error {
	batch := &pgx.Batch{}
	for _, ev := range events {
		fields, err := json.Marshal(ev.Fields)
		if err != nil {
			s.logger.Debug("skipping unmarshalable event fields",
				"event", ev.Name,
				"error", err,
			)
			fields = []byte("{}")
		}
		batch.Queue(`
			INSERT INTO telemetry_events (id, instance, name, at, fields)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, ev.ID, ev.Instance, ev.Name, ev.At, fields)
	}

	start := time.Now()
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert telemetry event: %w", err)
		}
	}

	s.logger.Debug("flushed telemetry events",
		"count", len(events),
		"duration", time.Since(start),
	)
	return nil
}

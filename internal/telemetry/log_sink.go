package telemetry

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. The default sink when no
// external destination is configured.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs each event at the given level.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, ev := range events {
		s.logger.Log(ctx, s.level, "telemetry",
			"event", ev.Name,
			"instance", ev.Instance,
			"at", ev.At,
			"fields", ev.Fields,
		)
	}
	return nil
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Name() string                         { return "nop" }
func (NopSink) Write(context.Context, []Event) error { return nil }

// MultiSink fans each batch out to every child sink. A child error is
// returned after all children have been attempted.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks. Nil children are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Name() string { return "multi" }

func (m *MultiSink) Write(ctx context.Context, events []Event) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Write(ctx, events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

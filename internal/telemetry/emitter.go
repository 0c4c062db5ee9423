package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives drained event batches. Implementations must tolerate
// being called from a single goroutine at a time.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []Event) error
}

// EmitterConfig holds telemetry pipeline settings.
type EmitterConfig struct {
	Instance      string        // Instance label stamped onto every event
	BufferSize    int           // Initial ring capacity
	BatchSize     int           // Max events per sink write
	FlushInterval time.Duration // Drain cadence when below BatchSize
}

// DefaultEmitterConfig returns sensible defaults.
func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		BufferSize:    256,
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
	}
}

// Emitter is the fire-and-forget telemetry front end. Emit enqueues and
// returns immediately; a background goroutine drains batches to the sink.
// Sink failures are logged and the batch is dropped.
type Emitter struct {
	cfg    EmitterConfig
	logger *slog.Logger
	sink   Sink
	ring   *ring

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int64
	started bool
}

// NewEmitter creates a telemetry emitter. A nil sink disables output but
// keeps Emit safe to call.
func NewEmitter(cfg EmitterConfig, sink Sink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 256
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &Emitter{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		ring:   newRing(cfg.BufferSize),
	}
}

// Start launches the drain loop.
func (e *Emitter) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.drainLoop()

	e.logger.Info("telemetry emitter started",
		"sink", e.sink.Name(),
		"flush_interval", e.cfg.FlushInterval,
	)
	return nil
}

// Stop drains remaining events and shuts the loop down.
func (e *Emitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return nil
	}

	e.ring.close()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("telemetry emitter stop timed out")
		return ctx.Err()
	}

	// Final flush of whatever was queued after the loop exited.
	e.flush(ctx)
	e.logger.Info("telemetry emitter stopped")
	return nil
}

// Emit records one event. It never blocks and never returns an error;
// a nil receiver is a no-op so callers can leave telemetry unwired.
func (e *Emitter) Emit(name string, fields map[string]any) {
	if e == nil {
		return
	}

	ev := Event{
		ID:       uuid.New(),
		Instance: e.cfg.Instance,
		Name:     name,
		At:       time.Now().UTC(),
		Fields:   fields,
	}

	if !e.ring.push(ev) {
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
	}
}

// Stats returns queue statistics plus the post-close drop count.
func (e *Emitter) Stats() (BufferStats, int64) {
	e.mu.Lock()
	dropped := e.dropped
	e.mu.Unlock()
	return e.ring.stats(), dropped
}

func (e *Emitter) drainLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.flush(e.ctx)
		case <-e.ring.wake:
			if e.ring.len() >= e.cfg.BatchSize {
				e.flush(e.ctx)
			}
		}
	}
}

// flush writes queued events to the sink in batches. Errors drop the
// batch; telemetry never retries and never blocks the data path.
func (e *Emitter) flush(ctx context.Context) {
	for {
		batch := e.ring.drain(e.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		if err := e.sink.Write(ctx, batch); err != nil {
			e.logger.Warn("telemetry sink write failed",
				"sink", e.sink.Name(),
				"count", len(batch),
				"error", err,
			)
		}
	}
}

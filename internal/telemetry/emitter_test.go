package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

// captureSink records everything it is asked to write.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func testEmitterConfig() EmitterConfig {
	return EmitterConfig{
		Instance:      "test-1",
		BufferSize:    8,
		BatchSize:     4,
		FlushInterval: 20 * time.Millisecond,
	}
}

func TestEmitterDeliversToSink(t *testing.T) {
	sink := &captureSink{}
	em := NewEmitter(testEmitterConfig(), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := em.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	em.Emit(EventConnectionOpen, map[string]any{"conn": "primary"})
	em.Emit(EventSubscribeConfirmed, nil)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(sink.snapshot()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := sink.snapshot()
	if len(got) != 2 {
		t.Fatalf("sink received %d events, want 2", len(got))
	}
	if got[0].Name != EventConnectionOpen {
		t.Errorf("first event = %q, want %q", got[0].Name, EventConnectionOpen)
	}
	if got[0].Instance != "test-1" {
		t.Errorf("instance = %q, want test-1", got[0].Instance)
	}
	if got[0].ID == got[1].ID {
		t.Error("events share an ID")
	}
	if got[0].At.IsZero() {
		t.Error("event timestamp not set")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := em.Stop(stopCtx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestEmitterFlushesEagerlyAtBatchSize(t *testing.T) {
	sink := &captureSink{}
	cfg := testEmitterConfig()
	cfg.FlushInterval = time.Hour // only the batch threshold can flush
	em := NewEmitter(cfg, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	em.Start(ctx)

	for i := 0; i < cfg.BatchSize; i++ {
		em.Emit(EventHeartbeatStall, nil)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(sink.snapshot()) >= cfg.BatchSize {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := len(sink.snapshot()); got < cfg.BatchSize {
		t.Errorf("sink received %d events before interval flush, want %d", got, cfg.BatchSize)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	em.Stop(stopCtx)
}

func TestEmitterStopDrainsQueue(t *testing.T) {
	sink := &captureSink{}
	cfg := testEmitterConfig()
	cfg.FlushInterval = time.Hour
	cfg.BatchSize = 100
	em := NewEmitter(cfg, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	em.Start(ctx)

	for i := 0; i < 7; i++ {
		em.Emit(EventConnectionClosed, nil)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := em.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := len(sink.snapshot()); got != 7 {
		t.Errorf("sink received %d events after Stop, want 7", got)
	}
}

func TestEmitterNilReceiverAndNilSink(t *testing.T) {
	var em *Emitter
	em.Emit("anything", nil) // must not panic

	e2 := NewEmitter(testEmitterConfig(), nil, nil)
	e2.Emit("queued", nil) // nop sink, not started; still safe
	if st, _ := e2.Stats(); st.Pushed != 1 {
		t.Errorf("pushed = %d, want 1", st.Pushed)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	m := NewMultiSink(a, nil, b)

	events := []Event{{Name: "x"}, {Name: "y"}}
	if err := m.Write(context.Background(), events); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(a.snapshot()) != 2 || len(b.snapshot()) != 2 {
		t.Errorf("fan-out incomplete: a=%d b=%d", len(a.snapshot()), len(b.snapshot()))
	}
}

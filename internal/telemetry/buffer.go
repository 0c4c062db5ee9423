package telemetry

import "sync"

// ring is an unbounded growable ring buffer. It doubles its backing array
// when full, so Push never blocks and never drops; the emitter keeps it
// bounded in practice by draining on a short interval.
type ring struct {
	mu     sync.Mutex
	buf    []Event
	head   int
	count  int
	closed bool

	pushed  int64
	drained int64
	resizes int

	// wake carries at most one pending notification for the drain loop.
	wake chan struct{}
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{
		buf:  make([]Event, capacity),
		wake: make(chan struct{}, 1),
	}
}

// push enqueues an event, growing the ring if needed. Returns false once
// the ring is closed.
func (r *ring) push(ev Event) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}

	if r.count == len(r.buf) {
		r.grow()
	}

	r.buf[(r.head+r.count)%len(r.buf)] = ev
	r.count++
	r.pushed++
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// drain removes up to max events, or everything when max <= 0.
func (r *ring) drain(max int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	n := r.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[r.head]
		r.buf[r.head] = Event{}
		r.head = (r.head + 1) % len(r.buf)
	}
	r.count -= n
	r.drained += int64(n)
	return out
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *ring) cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// close rejects further pushes. Events already queued remain drainable.
func (r *ring) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *ring) stats() BufferStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return BufferStats{
		Queued:   r.count,
		Capacity: len(r.buf),
		Pushed:   r.pushed,
		Drained:  r.drained,
		Resizes:  r.resizes,
	}
}

// grow doubles capacity and unrolls the ring into the new array.
// Caller holds mu.
func (r *ring) grow() {
	next := make([]Event, len(r.buf)*2)
	n := copy(next, r.buf[r.head:])
	copy(next[n:], r.buf[:r.head])
	r.buf = next
	r.head = 0
	r.resizes++
}

// BufferStats is a point-in-time view of the event queue.
type BufferStats struct {
	Queued   int
	Capacity int
	Pushed   int64
	Drained  int64
	Resizes  int
}

package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub multiplexes logical subscribers onto shared WebSocket connections,
// one physical socket per connection name.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]*conn
}

// New creates a Connection Hub.
func New(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

// Subscribe registers a subscriber on the named logical connection,
// creating the underlying connection if absent. If the socket is already
// open the subscriber's OnOpen fires asynchronously; otherwise an open is
// scheduled if one is not already pending.
func (h *Hub) Subscribe(name, url string, handlers Handlers) *Subscriber {
	for {
		h.mu.Lock()
		c, ok := h.conns[name]
		if !ok {
			c = newConn(h, name, url, h.logger.With("conn", name))
			h.conns[name] = c
		}
		h.mu.Unlock()

		sub := &Subscriber{
			id:       uuid.New(),
			conn:     c,
			handlers: handlers,
		}

		// addSubscriber fails when the connection was torn down between the
		// registry lookup and registration; loop to get a fresh one.
		if c.addSubscriber(sub) {
			return sub
		}
		h.remove(name, c)
	}
}

// Stats returns current hub statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{Connections: len(h.conns)}
	for _, c := range h.conns {
		open, subs := c.counts()
		if open {
			s.Open++
		}
		s.Subscribers += subs
	}
	return s
}

// Close disposes every connection. Used on process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
}

// remove drops a connection from the registry once its last subscriber
// detaches.
func (h *Hub) remove(name string, c *conn) {
	h.mu.Lock()
	if cur, ok := h.conns[name]; ok && cur == c {
		delete(h.conns, name)
	}
	h.mu.Unlock()
}

// Subscriber is an opaque handle to a logical subscription on a shared
// connection.
type Subscriber struct {
	id       uuid.UUID
	conn     *conn
	handlers Handlers

	mu       sync.Mutex
	disposed bool
}

// ID returns the subscriber's unique identifier.
func (s *Subscriber) ID() uuid.UUID {
	return s.id
}

// Send writes a text frame to the shared socket.
func (s *Subscriber) Send(data []byte) error {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return ErrDisposed
	}
	return s.conn.send(data)
}

// IsOpen reports whether the shared socket is currently open.
func (s *Subscriber) IsOpen() bool {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return false
	}
	open, _ := s.conn.counts()
	return open
}

// Dispose detaches the subscriber. When the last subscriber leaves, the
// socket is closed and all timers are cleared. Idempotent.
func (s *Subscriber) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	s.conn.removeSubscriber(s)
}

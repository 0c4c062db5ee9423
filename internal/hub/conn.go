package hub

import (
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type connState int

const (
	connIdle connState = iota
	connDialing
	connOpen
)

// conn owns one physical socket for a logical connection name. All state is
// guarded by mu; the socket handle itself is only touched by the hub.
type conn struct {
	hub    *Hub
	name   string
	url    string
	logger *slog.Logger

	mu          sync.Mutex
	state       connState
	ws          *websocket.Conn
	subscribers []*Subscriber
	gen         int // socket generation, guards stale read-loop callbacks
	closed      bool

	// Reconnect state
	reconnectDelay time.Duration
	earlyFailures  int
	breakerUntil   time.Time
	openTimer      *time.Timer
	pingStop       chan struct{}

	// Write serialization
	writeMu sync.Mutex
}

func newConn(h *Hub, name, rawURL string, logger *slog.Logger) *conn {
	return &conn{
		hub:            h,
		name:           name,
		url:            rawURL,
		logger:         logger,
		reconnectDelay: h.cfg.ReconnectBaseDelay,
	}
}

// addSubscriber registers a subscriber. Returns false if the connection was
// shut down concurrently and the caller must retry on a fresh one.
func (c *conn) addSubscriber(s *Subscriber) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}

	c.subscribers = append(c.subscribers, s)

	switch c.state {
	case connOpen:
		// Asynchronous on purpose: the caller must be able to finish wiring
		// its own state before the first callback fires.
		if s.handlers.OnOpen != nil {
			go s.handlers.OnOpen()
		}
	case connIdle:
		c.scheduleOpenLocked(0)
	}
	c.mu.Unlock()
	return true
}

// removeSubscriber detaches a subscriber; the last one out closes the
// socket and clears all timers.
func (c *conn) removeSubscriber(s *Subscriber) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	for i, cur := range c.subscribers {
		if cur == s {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			break
		}
	}

	if len(c.subscribers) > 0 {
		c.mu.Unlock()
		return
	}

	ws := c.teardownLocked()
	c.mu.Unlock()

	closeSocket(ws)
	c.hub.remove(c.name, c)
	c.logger.Debug("connection released, no subscribers left")
}

// shutdown force-closes the connection regardless of subscriber count.
func (c *conn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.subscribers = nil
	ws := c.teardownLocked()
	c.mu.Unlock()

	closeSocket(ws)
}

// teardownLocked marks the connection closed, stops timers and detaches the
// socket handle. Caller closes the returned socket outside the lock.
func (c *conn) teardownLocked() *websocket.Conn {
	c.closed = true
	c.state = connIdle
	c.gen++

	if c.openTimer != nil {
		c.openTimer.Stop()
		c.openTimer = nil
	}
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}

	ws := c.ws
	c.ws = nil
	return ws
}

// scheduleOpenLocked arms the open timer. The circuit breaker window
// stretches the delay; a pending timer is never doubled up.
func (c *conn) scheduleOpenLocked(delay time.Duration) {
	if c.closed || c.openTimer != nil || c.state != connIdle {
		return
	}

	if remaining := time.Until(c.breakerUntil); remaining > delay {
		c.logger.Warn("circuit breaker active, deferring connect",
			"cooldown_remaining", remaining.Round(time.Millisecond),
		)
		delay = remaining
	}

	c.openTimer = time.AfterFunc(delay, c.open)
}

// open performs one connection attempt.
func (c *conn) open() {
	c.mu.Lock()
	c.openTimer = nil
	if c.closed || c.state != connIdle {
		c.mu.Unlock()
		return
	}

	providers := make([]func() string, 0, len(c.subscribers))
	for _, s := range c.subscribers {
		if s.handlers.Token != nil {
			providers = append(providers, s.handlers.Token)
		}
	}

	c.state = connDialing
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	token := resolveToken(providers)
	if token == "" {
		c.logger.Warn("no token available, deferring connect")
		c.mu.Lock()
		if c.gen == gen {
			c.state = connIdle
			c.scheduleOpenLocked(c.hub.cfg.TokenRetryDelay)
		}
		c.mu.Unlock()
		return
	}

	dialURL, err := authURL(c.url, token)
	if err != nil {
		c.dialFailed(gen, err)
		return
	}

	c.logger.Debug("dialing", "url", redactToken(dialURL))

	dialer := websocket.Dialer{HandshakeTimeout: c.hub.cfg.DialTimeout}
	ws, _, err := dialer.Dial(dialURL, nil)
	if err != nil {
		c.dialFailed(gen, err)
		return
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		ws.Close()
		return
	}

	c.ws = ws
	c.state = connOpen
	c.reconnectDelay = c.hub.cfg.ReconnectBaseDelay
	c.earlyFailures = 0
	c.breakerUntil = time.Time{}
	stop := make(chan struct{})
	c.pingStop = stop
	subs := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("websocket connected", "url", redactToken(c.url))

	// Deliver OnOpen before the read pump starts so no message beats it.
	// This runs on the timer goroutine, never the Subscribe caller's stack.
	for _, s := range subs {
		if s.handlers.OnOpen != nil {
			s.handlers.OnOpen()
		}
	}

	go c.pingLoop(ws, stop)
	go c.readLoop(ws, gen)
}

// dialFailed handles a socket that closed before ever opening: it counts
// toward the early-failure breaker.
func (c *conn) dialFailed(gen int, err error) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}

	c.state = connIdle
	c.earlyFailures++
	if c.earlyFailures >= c.hub.cfg.BreakerThreshold {
		c.breakerUntil = time.Now().Add(c.hub.cfg.BreakerCooldown)
		c.earlyFailures = 0
		c.logger.Warn("circuit breaker tripped",
			"cooldown", c.hub.cfg.BreakerCooldown,
		)
	}

	delay := c.reconnectDelay
	c.reconnectDelay = nextBackoff(c.reconnectDelay, c.hub.cfg.ReconnectMaxDelay)
	c.scheduleOpenLocked(delay)
	subs := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Warn("dial failed", "error", err, "retry_in", delay)

	for _, s := range subs {
		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	}
}

// readLoop pumps inbound frames to subscribers in arrival order.
func (c *conn) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.socketClosed(gen, err)
			return
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		subs := c.snapshotLocked()
		c.mu.Unlock()

		for _, s := range subs {
			if s.handlers.OnMessage != nil {
				s.handlers.OnMessage(data)
			}
		}
	}
}

// socketClosed handles a socket that opened successfully and later closed.
// It does not count toward the early-failure breaker. Authentication closes
// are terminal and also reset backoff state so a fresh token starts clean.
func (c *conn) socketClosed(gen int, err error) {
	code, reason := closeInfo(err)

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}

	c.state = connIdle
	c.ws = nil
	c.gen++
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}

	auth := authTerminal(code, reason)
	if auth {
		c.reconnectDelay = c.hub.cfg.ReconnectBaseDelay
		c.earlyFailures = 0
		c.breakerUntil = time.Time{}
	} else {
		delay := c.reconnectDelay
		c.reconnectDelay = nextBackoff(c.reconnectDelay, c.hub.cfg.ReconnectMaxDelay)
		c.scheduleOpenLocked(delay)
	}
	subs := c.snapshotLocked()
	c.mu.Unlock()

	if auth {
		c.logger.Warn("authentication failure, reconnect suppressed",
			"code", code,
			"reason", reason,
		)
	} else {
		c.logger.Warn("socket closed", "code", code, "reason", reason, "error", err)
	}

	for _, s := range subs {
		if s.handlers.OnClose != nil {
			s.handlers.OnClose(code, reason)
		}
		if auth && s.handlers.OnError != nil {
			s.handlers.OnError(ErrAuthentication)
		}
	}
}

// pingLoop emits the application heartbeat while the socket stays open.
func (c *conn) pingLoop(ws *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.writeFrame(ws, pingFrame); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// send writes a text frame on behalf of a subscriber.
func (c *conn) send(data []byte) error {
	c.mu.Lock()
	ws := c.ws
	open := c.state == connOpen
	c.mu.Unlock()

	if !open || ws == nil {
		return ErrNotConnected
	}
	return c.writeFrame(ws, data)
}

func (c *conn) writeFrame(ws *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// counts returns (socket open, subscriber count).
func (c *conn) counts() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == connOpen, len(c.subscribers)
}

// snapshotLocked copies the subscriber list for callback delivery outside
// the lock.
func (c *conn) snapshotLocked() []*Subscriber {
	subs := make([]*Subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	return subs
}

// resolveToken returns the first non-empty token across providers, in
// registration order.
func resolveToken(providers []func() string) string {
	for _, p := range providers {
		if tok := p(); tok != "" {
			return tok
		}
	}
	return ""
}

// authURL appends the bearer token as a query parameter.
func authURL(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// nextBackoff doubles a reconnect delay up to the cap.
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

// closeInfo extracts the close code and reason from a read error.
func closeInfo(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	if err != nil {
		return 0, err.Error()
	}
	return 0, ""
}

func closeSocket(ws *websocket.Conn) {
	if ws == nil {
		return
	}
	ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	ws.Close()
}

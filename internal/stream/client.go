package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradevue/marketfeed/internal/hub"
	"github.com/tradevue/marketfeed/internal/instrument"
	"github.com/tradevue/marketfeed/internal/model"
	"github.com/tradevue/marketfeed/internal/telemetry"
)

// Client owns one market-data subscription on a shared hub connection.
type Client struct {
	cfg         Config
	logger      *slog.Logger
	hub         *hub.Hub
	instruments *instrument.Registry
	telemetry   *telemetry.Emitter
	handlers    Handlers

	mailbox   chan func()
	done      chan struct{}
	closeOnce sync.Once

	// Actor-owned state. Only the run goroutine touches these fields.
	started      bool
	status       model.ConnectionStatus
	hasStatus    bool
	symbol       string
	timeframe    string
	sub          *hub.Subscriber
	requested    *subscription
	confirmed    *subscription
	lastUnsub    []string
	attempt      int
	reconnTimer  *time.Timer
	hbStop       chan struct{}
	lastActivity time.Time
	warned       map[string]struct{}
	received     int64
	dropped      int64
}

// New creates a subscription client and starts its actor goroutine. The
// client is idle until Connect. Telemetry may be nil.
func New(cfg Config, h *hub.Hub, instruments *instrument.Registry, tel *telemetry.Emitter, handlers Handlers, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if instruments == nil {
		instruments = instrument.NewRegistry()
	}

	c := &Client{
		cfg:         cfg,
		logger:      logger.With("conn", cfg.ConnectionName, "symbol", cfg.Symbol),
		hub:         h,
		instruments: instruments,
		telemetry:   tel,
		handlers:    handlers,
		mailbox:     make(chan func(), cfg.MailboxSize),
		done:        make(chan struct{}),
		symbol:      cfg.Symbol,
		timeframe:   cfg.Timeframe,
		warned:      make(map[string]struct{}),
	}
	go c.run()
	return c
}

// Connect attaches to the hub connection and subscribes once it opens.
// Idempotent while a socket is live.
func (c *Client) Connect() {
	c.post(func() { c.doConnect(false) })
}

// Reconnect drops the current socket attachment and starts over. Also
// clears a Failed state left by a subscription rejection.
func (c *Client) Reconnect() {
	c.post(func() { c.doConnect(true) })
}

// Disconnect detaches from the connection and stops all timers. The
// client can be reconnected later.
func (c *Client) Disconnect() {
	c.post(c.doDisconnect)
}

// Update changes the symbol and/or timeframe and refreshes the
// subscription. Empty strings leave the current value in place.
func (c *Client) Update(symbol, timeframe string) {
	c.post(func() {
		if symbol != "" {
			c.symbol = symbol
		}
		if timeframe != "" {
			c.timeframe = timeframe
		}
		c.doRefresh()
	})
}

// Refresh re-evaluates the subscription against current parameters.
// No-op when the last request already covers them.
func (c *Client) Refresh() {
	c.post(c.doRefresh)
}

// Stats returns a snapshot of client state. Returns the zero value after
// Close.
func (c *Client) Stats() Stats {
	out := make(chan Stats, 1)
	c.post(func() {
		st := Stats{
			Status:            c.status,
			Symbol:            c.symbol,
			Timeframe:         c.timeframe,
			ReconnectAttempts: c.attempt,
			MessagesReceived:  c.received,
			EventsDropped:     c.dropped,
			LastActivityAt:    c.lastActivity,
		}
		if c.confirmed != nil {
			st.ConfirmedTopics = append([]string(nil), c.confirmed.Topics...)
		}
		out <- st
	})

	select {
	case st := <-out:
		return st
	case <-c.done:
		return Stats{}
	}
}

// Close disconnects and stops the actor. The client cannot be reused.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.post(func() {
			c.doDisconnect()
			close(c.done)
		})
	})
}

// post queues work for the actor goroutine.
func (c *Client) post(fn func()) {
	select {
	case <-c.done:
	case c.mailbox <- fn:
	}
}

func (c *Client) run() {
	for {
		select {
		case <-c.done:
			return
		case fn := <-c.mailbox:
			fn()
		}
	}
}

// ---------------------------------------------------------------------------
// Lifecycle (actor context)
// ---------------------------------------------------------------------------

func (c *Client) doConnect(force bool) {
	c.started = true
	if c.sub != nil {
		if !force {
			return
		}
		c.dropSocket()
	}
	c.cancelReconnect()
	c.attempt = 0
	c.openSocket()
}

func (c *Client) doDisconnect() {
	c.started = false
	c.cancelReconnect()
	c.stopHeartbeat()
	c.dropSocket()
}

func (c *Client) openSocket() {
	if !c.started || c.sub != nil {
		return
	}
	if c.attempt == 0 {
		c.setStatus(model.StatusConnecting)
	}
	c.requested = nil
	c.confirmed = nil

	c.sub = c.hub.Subscribe(c.cfg.ConnectionName, c.cfg.URL, hub.Handlers{
		OnOpen: func() { c.post(c.onOpen) },
		OnMessage: func(data []byte) {
			// The hub reuses its read buffer; copy before crossing goroutines.
			buf := make([]byte, len(data))
			copy(buf, data)
			c.post(func() { c.onMessage(buf) })
		},
		OnError: func(err error) { c.post(func() { c.onError(err) }) },
		OnClose: func(code int, reason string) { c.post(func() { c.onClose(code, reason) }) },
		Token:   c.cfg.Token,
	})
}

func (c *Client) onOpen() {
	if !c.started || c.sub == nil {
		return
	}
	c.attempt = 0
	c.lastActivity = time.Now()
	c.setStatus(model.StatusConnected)
	c.startHeartbeat()

	// Fresh socket: server-side subscription state is gone.
	c.requested = nil
	c.confirmed = nil

	c.telemetry.Emit(telemetry.EventConnectionOpen, map[string]any{
		"conn":   c.cfg.ConnectionName,
		"symbol": c.symbol,
	})
	c.logger.Info("stream connected")
	c.doRefresh()
}

func (c *Client) onClose(code int, reason string) {
	if c.sub == nil {
		return
	}
	c.stopHeartbeat()

	if hub.IsAuthClose(code, reason) {
		c.telemetry.Emit(telemetry.EventConnectionAuthFailed, map[string]any{
			"code":   code,
			"reason": reason,
		})
		c.fail(fmt.Sprintf("authentication failed (close %d)", code))
		return
	}

	c.setStatus(model.StatusReconnecting)
	c.requested = nil
	c.confirmed = nil
	c.telemetry.Emit(telemetry.EventConnectionClosed, map[string]any{
		"code":   code,
		"reason": reason,
	})
	// The hub owns transport-level reconnection; subscription state is
	// rebuilt in onOpen when the socket returns.
}

func (c *Client) onError(err error) {
	if errors.Is(err, hub.ErrAuthentication) {
		// Already handled by the close path.
		return
	}
	c.logger.Debug("transport error", "error", err)
}

// fail puts the client into the terminal Failed state. Only an explicit
// Reconnect restarts it.
func (c *Client) fail(reason string) {
	c.started = false
	c.stopHeartbeat()
	c.cancelReconnect()
	c.dropSocket()
	c.setStatus(model.StatusFailed)
	c.logger.Warn("stream failed", "reason", reason)
	if c.handlers.OnFailed != nil {
		c.handlers.OnFailed(reason)
	}
}

func (c *Client) dropSocket() {
	if c.sub != nil {
		c.sub.Dispose()
		c.sub = nil
	}
	c.requested = nil
	c.confirmed = nil
	c.lastUnsub = nil
}

func (c *Client) setStatus(s model.ConnectionStatus) {
	if c.hasStatus && c.status == s {
		return
	}
	c.status = s
	c.hasStatus = true
	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(s)
	}
}

// ---------------------------------------------------------------------------
// Subscription management (actor context)
// ---------------------------------------------------------------------------

func (c *Client) doRefresh() {
	if !c.started || c.sub == nil || !c.sub.IsOpen() {
		return
	}

	// At most one in-flight subscribe request per parameter set.
	if c.requested != nil && c.requested.Symbol == c.symbol && c.requested.Timeframe == c.timeframe {
		return
	}

	prev := c.requested
	if prev == nil {
		prev = c.confirmed
	}
	if prev != nil && len(prev.Topics) > 0 {
		c.sendUnsubscribe(prev)
	}

	topics := deriveTopics(c.symbol, c.instruments.DOMCapable(c.symbol))
	req := &subscription{
		Symbol:      c.symbol,
		Timeframe:   c.timeframe,
		Topics:      topics,
		RequestedAt: time.Now().UTC(),
	}

	frame, err := json.Marshal(subscribeFrame{
		Action:    "subscribe",
		Topics:    topics,
		Symbol:    c.symbol,
		Timeframe: c.timeframe,
	})
	if err != nil {
		c.logger.Error("marshal subscribe frame", "error", err)
		return
	}
	if err := c.sub.Send(frame); err != nil {
		c.logger.Warn("subscribe send failed", "error", err)
		return
	}

	c.requested = req
	c.telemetry.Emit(telemetry.EventSubscribeRequested, map[string]any{
		"symbol":    c.symbol,
		"timeframe": c.timeframe,
		"topics":    topics,
	})
	c.logger.Info("subscribe requested", "timeframe", c.timeframe, "topics", len(topics))
}

func (c *Client) sendUnsubscribe(prev *subscription) {
	frame, err := json.Marshal(subscribeFrame{
		Action:    "unsubscribe",
		Topics:    prev.Topics,
		Symbol:    prev.Symbol,
		Timeframe: prev.Timeframe,
	})
	if err != nil {
		return
	}
	if err := c.sub.Send(frame); err != nil {
		c.logger.Debug("unsubscribe send failed", "error", err)
		return
	}
	c.lastUnsub = prev.Topics
	c.logger.Debug("unsubscribe requested", "prev_symbol", prev.Symbol)
}

// ---------------------------------------------------------------------------
// Inbound frames (actor context)
// ---------------------------------------------------------------------------

func (c *Client) onMessage(data []byte) {
	c.lastActivity = time.Now()
	c.received++

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Debug("malformed frame dropped", "error", err)
		return
	}

	switch {
	case env.Type == "pong" || env.Action == "pong" || env.Event == "pong":
		// Heartbeat reply, activity already recorded.
	case env.Action == "subscribe":
		c.onSubscribeAck(&env)
	case env.Action == "unsubscribe":
		c.onUnsubscribeAck(&env)
	case env.topicName() != "":
		c.handleEvent(&env)
	default:
		c.logger.Debug("unhandled frame", "type", env.Type, "action", env.Action)
	}
}

func (c *Client) onSubscribeAck(env *envelope) {
	if msg := env.errText(); msg != "" {
		c.telemetry.Emit(telemetry.EventSubscribeRejected, map[string]any{
			"symbol": c.symbol,
			"reason": msg,
		})
		c.fail("subscription rejected: " + msg)
		return
	}

	symbol := env.Symbol
	timeframe := env.Timeframe
	topics := env.Topics
	if c.requested != nil {
		if symbol == "" {
			symbol = c.requested.Symbol
		}
		if timeframe == "" {
			timeframe = c.requested.Timeframe
		}
		if len(topics) == 0 {
			topics = c.requested.Topics
		}
	}
	if symbol == "" {
		symbol = c.symbol
	}
	if timeframe == "" {
		timeframe = c.timeframe
	}

	if c.requested != nil {
		latency := time.Since(c.requested.RequestedAt)
		c.telemetry.Emit(telemetry.EventSubscribeConfirmed, map[string]any{
			"symbol":     symbol,
			"timeframe":  timeframe,
			"latency_ms": latency.Milliseconds(),
		})
	}

	sub := &subscription{
		Symbol:    symbol,
		Timeframe: timeframe,
		Topics:    topics,
	}
	// Align requested with the acked parameters so a later Refresh with
	// the same inputs stays a no-op even when the server renamed them.
	c.confirmed = sub
	c.requested = sub
	c.symbol = symbol
	c.timeframe = timeframe

	if len(env.Capabilities) > 0 {
		c.instruments.CacheCapabilities(symbol, env.Capabilities)
	}

	c.logger.Info("subscription confirmed", "timeframe", timeframe, "topics", len(topics))
	if c.handlers.OnReady != nil {
		c.handlers.OnReady(model.SubscriptionInfo{
			Symbol:       symbol,
			Timeframe:    timeframe,
			Topics:       append([]string(nil), topics...),
			Capabilities: env.Capabilities,
		})
	}

	c.ingestAckSnapshot(env, symbol, timeframe)
}

func (c *Client) onUnsubscribeAck(env *envelope) {
	if msg := env.errText(); msg != "" {
		c.logger.Debug("unsubscribe rejected", "message", msg)
		return
	}
	// Ignore acks for topic sets we did not just unsubscribe; they belong
	// to an older socket generation.
	if len(env.Topics) > 0 && !topicSetsEqual(env.Topics, c.lastUnsub) {
		c.logger.Debug("stale unsubscribe ack ignored")
		return
	}
	if c.confirmed != nil && topicSetsEqual(c.confirmed.Topics, c.lastUnsub) {
		c.confirmed = nil
	}
	c.lastUnsub = nil
}

// ---------------------------------------------------------------------------
// Heartbeat and recycle (actor context)
// ---------------------------------------------------------------------------

func (c *Client) startHeartbeat() {
	c.stopHeartbeat()
	stop := make(chan struct{})
	c.hbStop = stop

	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.post(func() { c.checkHeartbeat(time.Now()) })
			}
		}
	}()
}

func (c *Client) stopHeartbeat() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// checkHeartbeat recycles the subscription when no inbound frame (data or
// pong) arrived within the timeout.
func (c *Client) checkHeartbeat(now time.Time) {
	if !c.started || c.sub == nil {
		return
	}
	elapsed := now.Sub(c.lastActivity)
	if elapsed < c.cfg.HeartbeatTimeout {
		return
	}

	c.logger.Warn("heartbeat timeout, recycling subscription",
		"elapsed", elapsed.Round(time.Millisecond),
	)
	c.telemetry.Emit(telemetry.EventHeartbeatStall, map[string]any{
		"symbol":     c.symbol,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.stopHeartbeat()
	c.dropSocket()

	c.attempt++
	delay := ReconnectDelay(c.attempt, c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay)
	c.setStatus(model.StatusReconnecting)
	c.cancelReconnect()
	c.reconnTimer = time.AfterFunc(delay, func() { c.post(c.openSocket) })

	c.telemetry.Emit(telemetry.EventConnectionReconnecting, map[string]any{
		"attempt":  c.attempt,
		"delay_ms": delay.Milliseconds(),
	})
	c.logger.Info("reconnect scheduled", "attempt", c.attempt, "delay", delay)
}

func (c *Client) cancelReconnect() {
	if c.reconnTimer != nil {
		c.reconnTimer.Stop()
		c.reconnTimer = nil
	}
}

// warnOnce delivers a warning a single time per key for the lifetime of
// the client.
func (c *Client) warnOnce(key, code, message string) {
	if _, seen := c.warned[key]; seen {
		return
	}
	c.warned[key] = struct{}{}
	c.logger.Warn(message)
	if c.handlers.OnWarning != nil {
		c.handlers.OnWarning(code, message)
	}
}

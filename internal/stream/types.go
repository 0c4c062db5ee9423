package stream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tradevue/marketfeed/internal/model"
)

// Topic base channels. The wire topic is "<base>-<SYMBOL>".
const (
	TopicDOM    = "market.dom"
	TopicDepth  = "market.depth"
	TopicTicker = "market.ticker"
	TopicBar    = "market.bar"
)

// Handlers carries consumer callbacks. All fields are optional. Callbacks
// fire on the client's actor goroutine and must not block.
type Handlers struct {
	// OnStatus fires on every lifecycle transition.
	OnStatus func(status model.ConnectionStatus)

	// OnReady fires after a subscribe ACK confirms the topic set.
	OnReady func(info model.SubscriptionInfo)

	// OnFailed fires when the subscription is terminally rejected or the
	// credentials are refused. The client stops until reconnected explicitly.
	OnFailed func(reason string)

	OnDepth  func(snap model.DepthSnapshot)
	OnTicker func(snap model.TickerSnapshot)
	OnBar    func(symbol string, bar model.Bar)
	OnKline  func(snap model.KlineSnapshot)

	// OnWarning fires at most once per distinct warning key, e.g. a
	// repeated symbol mismatch warns a single time.
	OnWarning func(code, message string)
}

// Config holds subscription client settings.
type Config struct {
	ConnectionName string        // Logical hub connection to attach to
	URL            string        // WebSocket endpoint
	Symbol         string        // Initial symbol
	Timeframe      string        // Initial bar timeframe, e.g. "1m"
	Token          func() string // Bearer token provider, may be nil

	HeartbeatTimeout       time.Duration // Max silence before the socket is recycled
	HeartbeatCheckInterval time.Duration // How often silence is measured
	ReconnectBaseDelay     time.Duration // First recycle delay
	ReconnectMaxDelay      time.Duration // Recycle backoff cap
	MailboxSize            int           // Actor mailbox depth
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeframe:              "1m",
		HeartbeatTimeout:       40 * time.Second,
		HeartbeatCheckInterval: 15 * time.Second,
		ReconnectBaseDelay:     5 * time.Second,
		ReconnectMaxDelay:      60 * time.Second,
		MailboxSize:            256,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Timeframe == "" {
		c.Timeframe = def.Timeframe
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.HeartbeatCheckInterval <= 0 {
		c.HeartbeatCheckInterval = def.HeartbeatCheckInterval
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = def.MailboxSize
	}
}

// Stats is a point-in-time view of client state.
type Stats struct {
	Status            model.ConnectionStatus
	Symbol            string
	Timeframe         string
	ConfirmedTopics   []string
	ReconnectAttempts int
	MessagesReceived  int64
	EventsDropped     int64
	LastActivityAt    time.Time
}

// subscription tracks one requested or confirmed topic set.
type subscription struct {
	Symbol      string
	Timeframe   string
	Topics      []string
	RequestedAt time.Time
}

// subscribeFrame is the outbound subscribe/unsubscribe request.
type subscribeFrame struct {
	Action    string   `json:"action"`
	Topics    []string `json:"topics"`
	Symbol    string   `json:"symbol,omitempty"`
	Timeframe string   `json:"timeframe,omitempty"`
}

// envelope is the superset of inbound frame shapes. Feeds disagree on
// field names, so everything is optional and resolved through accessors.
type envelope struct {
	Type         string          `json:"type"`
	Action       string          `json:"action"`
	Event        string          `json:"event"`
	Topic        string          `json:"topic"`
	Channel      string          `json:"channel"`
	Topics       []string        `json:"topics"`
	Symbol       string          `json:"symbol"`
	Timeframe    string          `json:"timeframe"`
	OK           *bool           `json:"ok"`
	Success      *bool           `json:"success"`
	Status       string          `json:"status"`
	Message      string          `json:"message"`
	Error        json.RawMessage `json:"error"`
	Capabilities map[string]bool `json:"capabilities"`
	Payload      json.RawMessage `json:"payload"`
	Data         json.RawMessage `json:"data"`
	Snapshot     json.RawMessage `json:"snapshot"`
	Snapshots    json.RawMessage `json:"snapshots"`
}

// topicName resolves the event topic across the topic/channel/event
// aliases.
func (e *envelope) topicName() string {
	if e.Topic != "" {
		return e.Topic
	}
	if e.Channel != "" {
		return e.Channel
	}
	return e.Event
}

// payloadMap decodes the event body, preferring payload over data.
func (e *envelope) payloadMap() map[string]any {
	if m := decodeMap(e.Payload); m != nil {
		return m
	}
	return decodeMap(e.Data)
}

// errText returns the rejection message for an ACK, or "" on success.
// A rejection is signaled by a non-empty error field, ok/success=false,
// or an error-ish status string.
func (e *envelope) errText() string {
	if msg := decodeErrorField(e.Error); msg != "" {
		return msg
	}
	rejected := (e.OK != nil && !*e.OK) || (e.Success != nil && !*e.Success)
	switch strings.ToLower(e.Status) {
	case "error", "rejected", "failed", "denied":
		rejected = true
	}
	if !rejected {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "subscription rejected"
}

// decodeErrorField accepts the error field as a string, a bool, or an
// object carrying code/message.
func decodeErrorField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var b bool
	if json.Unmarshal(raw, &b) == nil {
		if b {
			return "subscription rejected"
		}
		return ""
	}

	var obj struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		switch {
		case obj.Message != "" && obj.Code != nil:
			return fmt.Sprintf("%v: %s", obj.Code, obj.Message)
		case obj.Message != "":
			return obj.Message
		case obj.Code != nil:
			return fmt.Sprintf("error code %v", obj.Code)
		}
	}
	return ""
}

func decodeMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// decodeRecords accepts a single object or an array of objects.
func decodeRecords(raw json.RawMessage) []map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if m := decodeMap(raw); m != nil {
		return []map[string]any{m}
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := list[:0]
	for _, m := range list {
		if len(m) > 0 {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// anyRecords is decodeRecords for already-decoded values.
func anyRecords(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok && len(m) > 0 {
				out = append(out, m)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

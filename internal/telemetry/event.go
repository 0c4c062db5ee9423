package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Event is one observability record: lifecycle transitions, subscription
// acks, heartbeat stalls, symbol mismatches.
type Event struct {
	ID       uuid.UUID      `json:"id"`
	Instance string         `json:"instance"`
	Name     string         `json:"name"`
	At       time.Time      `json:"at"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Event names emitted by the streaming layer.
const (
	EventConnectionOpen         = "connection.open"
	EventConnectionClosed       = "connection.closed"
	EventConnectionAuthFailed   = "connection.auth_failed"
	EventConnectionReconnecting = "connection.reconnecting"
	EventSubscribeRequested     = "subscribe.requested"
	EventSubscribeConfirmed     = "subscribe.confirmed"
	EventSubscribeRejected      = "subscribe.rejected"
	EventHeartbeatStall         = "heartbeat.stall"
	EventSymbolMismatch         = "symbol.mismatch"
)

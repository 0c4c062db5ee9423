package hub

import (
	"errors"
	"regexp"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrDisposed         = errors.New("subscriber disposed")
	ErrAuthentication   = errors.New("authentication failed")
	ErrNoTokenAvailable = errors.New("no token available")
)

// Close codes the remote uses to signal authentication failure. Closes with
// these codes are terminal: no reconnect is scheduled.
const (
	ClosePolicyViolation = 1008
	CloseTokenExpired    = 4401
	CloseForbidden       = 4403
)

// authReason matches close reason texts that mean the credentials are bad.
var authReason = regexp.MustCompile(`(?i)token\s+(expired|invalid)|invalid\s+token|authentication\s+failed`)

// IsAuthClose reports whether a close code/reason pair signals an
// authentication failure. Such closes are terminal for the connection.
func IsAuthClose(code int, reason string) bool {
	return authTerminal(code, reason)
}

// authTerminal reports whether a close code/reason pair is an
// authentication failure that must suppress reconnection.
func authTerminal(code int, reason string) bool {
	switch code {
	case ClosePolicyViolation, CloseTokenExpired, CloseForbidden:
		return true
	}
	return authReason.MatchString(reason)
}

// tokenParam matches the bearer token query parameter for log redaction.
var tokenParam = regexp.MustCompile(`(?i)(token=)[^&\s]+`)

// redactToken masks the token query parameter in a URL before it is logged.
func redactToken(url string) string {
	return tokenParam.ReplaceAllString(url, "${1}REDACTED")
}

// Handlers carries a subscriber's callbacks. All fields are optional except
// that a subscriber without a Token provider cannot contribute credentials.
type Handlers struct {
	// OnOpen fires after the socket opens. Never fires synchronously within
	// the Subscribe caller's stack, so callers can wire state first.
	OnOpen func()

	// OnMessage fires for every inbound text frame, in arrival order.
	OnMessage func(data []byte)

	// OnError fires on dial and transport errors.
	OnError func(err error)

	// OnClose fires when an open socket closes, with the close code and
	// reason when the peer provided them.
	OnClose func(code int, reason string)

	// Token returns the current bearer token, or "" when unavailable.
	Token func() string
}

// Config holds Connection Hub settings.
type Config struct {
	DialTimeout        time.Duration // WebSocket handshake timeout
	WriteTimeout       time.Duration // Write deadline for sends
	PingInterval       time.Duration // {action:"ping"} cadence while open
	ReconnectBaseDelay time.Duration // First retry delay, doubled per failure
	ReconnectMaxDelay  time.Duration // Backoff cap
	BreakerThreshold   int           // Consecutive early failures before the breaker trips
	BreakerCooldown    time.Duration // How long the breaker suspends attempts
	TokenRetryDelay    time.Duration // Retry delay when no subscriber has a token
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:        10 * time.Second,
		WriteTimeout:       5 * time.Second,
		PingInterval:       30 * time.Second,
		ReconnectBaseDelay: 5 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		BreakerThreshold:   3,
		BreakerCooldown:    60 * time.Second,
		TokenRetryDelay:    5 * time.Second,
	}
}

// Stats provides a point-in-time view of hub state.
type Stats struct {
	Connections int // Logical connections currently registered
	Open        int // Connections with an open socket
	Subscribers int // Total subscribers across all connections
}

// pingFrame is the application-level heartbeat sent while the socket is open.
var pingFrame = []byte(`{"action":"ping"}`)

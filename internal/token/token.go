// Package token supplies bearer-token providers for the connection hub.
// A provider returns the current token or "" when none is available; the
// hub polls providers again on its retry schedule, so rotation needs no
// coordination beyond updating the source.
package token

import (
	"os"
	"strings"
	"sync"
)

// Provider returns the current bearer token, or "" when unavailable.
type Provider func() string

// Static wraps a fixed token.
func Static(tok string) Provider {
	tok = strings.TrimSpace(tok)
	return func() string { return tok }
}

// FromEnv reads the token from an environment variable on every call.
func FromEnv(name string) Provider {
	return func() string {
		return strings.TrimSpace(os.Getenv(name))
	}
}

// FromFile reads a token file on every call, so a rotated file takes
// effect on the next connection attempt. Read errors yield "".
func FromFile(path string) Provider {
	return func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

// Chain tries providers in order and returns the first non-empty token.
func Chain(providers ...Provider) Provider {
	return func() string {
		for _, p := range providers {
			if p == nil {
				continue
			}
			if tok := p(); tok != "" {
				return tok
			}
		}
		return ""
	}
}

// Rotatable is a thread-safe token holder for callers that receive
// refreshed tokens asynchronously.
type Rotatable struct {
	mu  sync.RWMutex
	tok string
}

// NewRotatable creates a holder with an initial token, possibly empty.
func NewRotatable(tok string) *Rotatable {
	return &Rotatable{tok: strings.TrimSpace(tok)}
}

// Set replaces the stored token.
func (r *Rotatable) Set(tok string) {
	r.mu.Lock()
	r.tok = strings.TrimSpace(tok)
	r.mu.Unlock()
}

// Provider returns a Provider reading the stored token.
func (r *Rotatable) Provider() Provider {
	return func() string {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.tok
	}
}

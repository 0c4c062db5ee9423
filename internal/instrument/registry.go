package instrument

import (
	"strings"
	"sync"

	"github.com/tradevue/marketfeed/internal/model"
	"github.com/tradevue/marketfeed/internal/norm"
)

// Security types that never carry a DOM stream.
var noDOMSecurityTypes = map[string]struct{}{
	"equity": {}, "stock": {}, "cfd": {}, "etf": {},
}

// Security types that always carry a DOM stream.
var domSecurityTypes = map[string]struct{}{
	"future": {}, "futures": {}, "option": {}, "forward": {}, "commodity": {},
}

// Exchange families known to serve depth-of-market data.
var domExchanges = map[string]struct{}{
	"CME": {}, "CBOT": {}, "NYMEX": {}, "COMEX": {}, "GLOBEX": {},
	"ICE": {}, "EUREX": {},
}

// Exchange families known to serve top-of-book only.
var noDOMExchanges = map[string]struct{}{
	"NASDAQ": {}, "NYSE": {}, "ARCA": {}, "AMEX": {}, "BATS": {},
}

// Registry caches symbol metadata and ACK-confirmed capabilities. Safe for
// concurrent use.
type Registry struct {
	mu           sync.RWMutex
	meta         map[string]model.SymbolMeta // keyed by root symbol
	capabilities map[string]bool             // root -> DOM capability from last ACK
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		meta:         make(map[string]model.SymbolMeta),
		capabilities: make(map[string]bool),
	}
}

// Upsert stores metadata for a symbol, keyed by its root.
func (r *Registry) Upsert(meta model.SymbolMeta) {
	root := meta.Root
	if root == "" {
		root = norm.RootSymbol(meta.Symbol)
		meta.Root = root
	}

	r.mu.Lock()
	r.meta[root] = meta
	r.mu.Unlock()
}

// Get returns metadata for a symbol (by root). The zero SymbolMeta means
// nothing is known.
func (r *Registry) Get(symbol string) model.SymbolMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meta[norm.RootSymbol(symbol)]
}

// TickSize returns the known tick size for a symbol, 0 when unknown.
func (r *Registry) TickSize(symbol string) float64 {
	return r.Get(symbol).TickSize
}

// CacheCapabilities records the capability map carried by a subscribe ACK.
// Only the DOM-related flags matter here.
func (r *Registry) CacheCapabilities(symbol string, caps map[string]bool) {
	if caps == nil {
		return
	}

	dom, ok := caps["dom"]
	if !ok {
		dom, ok = caps["depth"]
	}
	if !ok {
		return
	}

	r.mu.Lock()
	r.capabilities[norm.RootSymbol(symbol)] = dom
	r.mu.Unlock()
}

// DOMCapable resolves whether a symbol should be subscribed to DOM/depth
// topics. Resolution order: explicit metadata, security-type heuristic,
// exchange hint, cached ACK capability, optimistic default.
func (r *Registry) DOMCapable(symbol string) bool {
	root := norm.RootSymbol(symbol)

	r.mu.RLock()
	meta, hasMeta := r.meta[root]
	cached, hasCached := r.capabilities[root]
	r.mu.RUnlock()

	if hasMeta {
		if meta.DOMCapable != nil {
			return *meta.DOMCapable
		}

		secType := strings.ToLower(strings.TrimSpace(meta.SecurityType))
		if _, ok := noDOMSecurityTypes[secType]; ok {
			return false
		}
		if _, ok := domSecurityTypes[secType]; ok {
			return true
		}

		exchange := strings.ToUpper(strings.TrimSpace(meta.Exchange))
		if _, ok := domExchanges[exchange]; ok {
			return true
		}
		if _, ok := noDOMExchanges[exchange]; ok {
			return false
		}
	}

	if hasCached {
		return cached
	}

	// No metadata, no hint, no ACK yet: assume DOM-capable and let the
	// first ACK's capability map correct the guess.
	return true
}

package pipeline

import (
	"sync"

	"github.com/zhound420/sonicticker/internal/market"
)

// Registry owns the process-wide latest-metrics map. It is constructed once at
// startup and passed to every component that needs it; pipeline goroutines are
// the only writers, query handlers the only other readers.
type Registry struct {
	assets []market.Asset

	mu     sync.RWMutex
	latest map[string]market.Metrics
}

// NewRegistry builds a registry over the configured asset table.
func NewRegistry(assets []market.Asset) *Registry {
	owned := make([]market.Asset, len(assets))
	copy(owned, assets)
	return &Registry{
		assets: owned,
		latest: make(map[string]market.Metrics, len(assets)),
	}
}

// Assets returns the configured asset descriptors.
func (r *Registry) Assets() []market.Asset {
	out := make([]market.Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Lookup finds one configured asset by symbol.
func (r *Registry) Lookup(symbol string) (market.Asset, bool) {
	for _, a := range r.assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return market.Asset{}, false
}

// UpdateMetrics stores the newest snapshot for its symbol.
func (r *Registry) UpdateMetrics(m market.Metrics) {
	r.mu.Lock()
	r.latest[m.Symbol] = m
	r.mu.Unlock()
}

// LatestMetrics returns the newest snapshot for symbol, or false when the
// symbol is unconfigured or has not been observed yet.
func (r *Registry) LatestMetrics(symbol string) (market.Metrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.latest[symbol]
	return m, ok
}

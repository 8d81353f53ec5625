package market

import (
	"sort"
	"sync"
)

// Registry maps item identifiers to their Market in a thread-safe manner.
// The registry lock only guards the map; it is never held while a Market is
// matching, so items do not block each other.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]*Market // item -> market
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]*Market),
	}
}

// Get retrieves a market by item without creating it.
func (r *Registry) Get(item string) (*Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.markets[item]
	return m, exists
}

// GetOrCreate returns the item's market, creating it on first reference.
// Concurrent first calls for the same item all receive the same Market.
func (r *Registry) GetOrCreate(item string) (m *Market, created bool) {
	if m, ok := r.Get(item); ok {
		return m, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have won the race between the two locks
	if m, ok := r.markets[item]; ok {
		return m, false
	}
	m = New(item)
	r.markets[item] = m
	return m, true
}

// List returns all markets sorted by item.
func (r *Registry) List() []*Market {
	r.mu.RLock()
	markets := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		markets = append(markets, m)
	}
	r.mu.RUnlock()

	sort.Slice(markets, func(i, j int) bool { return markets[i].Item < markets[j].Item })
	return markets
}

// Count returns the total number of markets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

// Exists checks if a market is registered
func (r *Registry) Exists(item string) bool {
	_, ok := r.Get(item)
	return ok
}

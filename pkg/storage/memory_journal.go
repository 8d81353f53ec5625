package storage

import (
	"sort"
	"sync"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
)

// MemoryJournal keeps journalled trades in process memory.
type MemoryJournal struct {
	mu     sync.Mutex
	trades map[string][]ledger.Trade
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{trades: make(map[string][]ledger.Trade)}
}

func (j *MemoryJournal) Append(item string, trades []ledger.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades[item] = append(j.trades[item], trades...)
	return nil
}

func (j *MemoryJournal) Trades(item string) []ledger.Trade {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ledger.Trade, len(j.trades[item]))
	copy(out, j.trades[item])
	return out
}

// Items lists items with at least one trade, sorted.
func (j *MemoryJournal) Items() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.trades))
	for item := range j.trades {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func (j *MemoryJournal) Close() error { return nil }

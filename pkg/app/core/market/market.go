package market

import (
	"errors"
	"sync"
	"time"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
)

// MaxTerminal bounds how many left-the-book statuses a market remembers.
// The oldest are forgotten first; a forgotten id reads as never seen.
const MaxTerminal = 100_000

// ErrSelfMatch is returned when an order would trade against a resting order
// of the same trader and the caller asked for such orders to be rejected.
var ErrSelfMatch = errors.New("order would match a resting order of the same trader")

// Market is the lockable unit of one item: its order book, its ledger and the
// terminal statuses of orders that have left the book.
//
// Writers (Submit, Cancel) hold the write lock for the whole match so readers
// never observe a half-matched book.
type Market struct {
	Item string

	mu       sync.RWMutex
	book     *orderbook.OrderBook
	ledger   *ledger.Ledger
	terminal map[string]orderbook.Status
	// insertion order of terminal, oldest at head
	retired   []string
	head      int
	maxRetire int
}

func New(item string) *Market {
	return &Market{
		Item:     item,
		book:     orderbook.NewOrderBook(),
		ledger:   ledger.New(item),
		terminal:  make(map[string]orderbook.Status),
		maxRetire: MaxTerminal,
	}
}

// retire records id's terminal status, forgetting the oldest one once the
// market holds maxRetire of them. Caller holds the write lock.
func (m *Market) retire(id string, st orderbook.Status) {
	if _, ok := m.terminal[id]; !ok {
		if len(m.terminal) >= m.maxRetire {
			delete(m.terminal, m.retired[m.head])
			m.retired[m.head] = ""
			m.head++
		}
		m.retired = append(m.retired, id)
		if m.head > len(m.retired)/2 {
			m.retired = append([]string(nil), m.retired[m.head:]...)
			m.head = 0
		}
	}
	m.terminal[id] = st
}

type SubmitOptions struct {
	// Sequence stamps the order while the lock is held, so timestamps within
	// one item follow insertion order.
	Sequence        func() uint64
	Now             func() time.Time
	RejectSelfMatch bool
}

type Placement struct {
	Result orderbook.MatchResult
	Trades []ledger.Trade
}

// Submit matches o against the book and records the fills in the ledger.
func (m *Market) Submit(o *orderbook.Order, opts SubmitOptions) (Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.Sequence != nil {
		o.Timestamp = opts.Sequence()
	}

	if opts.RejectSelfMatch {
		for _, maker := range m.book.Crossing(*o) {
			if maker.Trader == o.Trader {
				return Placement{}, ErrSelfMatch
			}
		}
	}

	res := m.book.Submit(o)

	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}
	best := ledger.BestOf(m.book)
	var trades []ledger.Trade
	if len(res.Fills) > 0 {
		trades = m.ledger.Record(res.Fills, o.Timestamp, now, best)
	} else {
		m.ledger.SetBest(best)
	}

	for _, u := range res.Updated {
		if u.Remaining == 0 {
			m.retire(u.ID, orderbook.Filled)
		}
	}
	if res.Status == orderbook.Filled {
		m.retire(o.ID, orderbook.Filled)
	}

	return Placement{Result: res, Trades: trades}, nil
}

// Cancel removes a resting order. ok is false if id is not resting.
func (m *Market) Cancel(id string) (orderbook.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.book.Cancel(id)
	if !ok {
		return orderbook.Order{}, false
	}
	m.retire(id, orderbook.Cancelled)
	m.ledger.SetBest(ledger.BestOf(m.book))
	return o, true
}

func (m *Market) BestBid() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.BestBid()
}

func (m *Market) BestAsk() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.BestAsk()
}

// Trades returns the item's trade history and the cached best prices,
// read under one lock.
func (m *Market) Trades() ([]ledger.Trade, ledger.BestPrices) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.Query(), m.ledger.Best()
}

// OrderState is what is known about one order id.
type OrderState struct {
	Order  orderbook.Order // zero unless the order is resting
	Status orderbook.Status
}

// Status reports a resting order, or the terminal status of one that left
// the book. ok is false for ids this market never saw.
func (m *Market) Status(id string) (OrderState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if o, ok := m.book.Get(id); ok {
		return OrderState{Order: o, Status: o.Status()}, true
	}
	if st, ok := m.terminal[id]; ok {
		return OrderState{Status: st}, true
	}
	return OrderState{}, false
}

type Snapshot struct {
	Item      string
	Bids      []orderbook.Order
	Asks      []orderbook.Order
	BidLevels []orderbook.PriceLevel
	AskLevels []orderbook.PriceLevel
	Trades    []ledger.Trade
	Best      ledger.BestPrices
	LastPrice int64
}

// Snapshot copies the whole item state under one read lock.
func (m *Market) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Item:      m.Item,
		Bids:      m.book.Bids(),
		Asks:      m.book.Asks(),
		BidLevels: m.book.GetBidLevels(),
		AskLevels: m.book.GetAskLevels(),
		Trades:    m.ledger.Query(),
		Best:      m.ledger.Best(),
		LastPrice: m.book.LastPrice(),
	}
}

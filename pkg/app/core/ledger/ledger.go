// Package ledger keeps the append-only trade history of one item together
// with the best prices of its book as of the last mutation.
package ledger

import (
	"time"

	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
)

type Trade struct {
	TradeID     uint64
	Item        string
	BuyOrderID  string
	SellOrderID string
	Buyer       string
	Seller      string
	Price       int64 // ticks
	Quantity    int64
	Timestamp   uint64 // engine sequence of the taker that produced it
	ExecutedAt  time.Time
}

// BestPrices is the cached top of book. A zero price with ok=false means the
// side had no resting orders.
type BestPrices struct {
	Bid    int64
	HasBid bool
	Ask    int64
	HasAsk bool
}

// Ledger is not safe for concurrent use; market.Market guards it with the
// same lock as the item's order book.
type Ledger struct {
	item   string
	trades []Trade
	nextID uint64
	best   BestPrices
}

func New(item string) *Ledger {
	return &Ledger{
		item:   item,
		trades: make([]Trade, 0, 64),
		nextID: 1,
	}
}

// Record appends fills as trades with fresh ids and refreshes the best-price
// cache from a book snapshot taken at the same instant.
func (l *Ledger) Record(fills []orderbook.Fill, ts uint64, at time.Time, best BestPrices) []Trade {
	out := make([]Trade, 0, len(fills))
	for _, f := range fills {
		tr := Trade{
			TradeID:     l.nextID,
			Item:        l.item,
			BuyOrderID:  f.BuyID,
			SellOrderID: f.SellID,
			Buyer:       f.Buyer,
			Seller:      f.Seller,
			Price:       f.Price,
			Quantity:    f.Qty,
			Timestamp:   ts,
			ExecutedAt:  at,
		}
		l.nextID++
		l.trades = append(l.trades, tr)
		out = append(out, tr)
	}
	l.best = best
	return out
}

// SetBest refreshes the best-price cache without recording trades.
func (l *Ledger) SetBest(best BestPrices) { l.best = best }

func (l *Ledger) Best() BestPrices { return l.best }

// Query returns a copy of the full trade history, oldest first.
func (l *Ledger) Query() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) Len() int { return len(l.trades) }

// HasOrder reports whether any trade involved orderID.
func (l *Ledger) HasOrder(orderID string) bool {
	for i := len(l.trades) - 1; i >= 0; i-- {
		if l.trades[i].BuyOrderID == orderID || l.trades[i].SellOrderID == orderID {
			return true
		}
	}
	return false
}

// BestOf reads the current top of book.
func BestOf(ob *orderbook.OrderBook) BestPrices {
	var b BestPrices
	b.Bid, b.HasBid = ob.BestBid()
	b.Ask, b.HasAsk = ob.BestAsk()
	return b
}

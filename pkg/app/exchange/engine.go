// Package exchange is the market engine: it validates order requests, routes
// them to the per-item market and answers price, status and ledger queries.
package exchange

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/app/core/market"
	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketcore/pkg/util"
)

type SelfMatchPolicy int8

const (
	// SelfMatchReject refuses an order that would trade against a resting
	// order of the same trader. No state changes.
	SelfMatchReject SelfMatchPolicy = iota
	// SelfMatchAllow lets a trader match their own resting orders.
	SelfMatchAllow
)

type Options struct {
	SelfMatch SelfMatchPolicy
	Logger    *zap.SugaredLogger
	Clock     util.Clock
	NewID     func() string // order ids; defaults to UUID v4
}

type MarketEngine struct {
	registry  *market.Registry
	seq       atomic.Uint64
	selfMatch SelfMatchPolicy
	logger    *zap.SugaredLogger
	clock     util.Clock
	newID     func() string

	// OnTrades is called after trades are recorded, once the item lock is
	// released. Set before the engine is shared.
	OnTrades func(item string, trades []ledger.Trade)
	// OnBookChange is called after any order rests, fills or is cancelled.
	OnBookChange func(item string)
}

func NewMarketEngine(opts Options) *MarketEngine {
	e := &MarketEngine{
		registry:  market.NewRegistry(),
		selfMatch: opts.SelfMatch,
		logger:    opts.Logger,
		clock:     opts.Clock,
		newID:     opts.NewID,
	}
	if e.logger == nil {
		e.logger = zap.NewNop().Sugar()
	}
	if e.clock == nil {
		e.clock = util.RealClock{}
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.NewString() }
	}
	return e
}

// Placement describes what happened to one buy or sell request.
type Placement struct {
	Item    string
	Order   orderbook.Order // the incoming order after matching
	Status  orderbook.Status
	Trades  []ledger.Trade
	Updated []orderbook.Order // makers touched, post-fill
}

func (e *MarketEngine) Buy(req OrderRequest) (*Placement, error) {
	return e.place(orderbook.Buy, req)
}

func (e *MarketEngine) Sell(req OrderRequest) (*Placement, error) {
	return e.place(orderbook.Sell, req)
}

func (e *MarketEngine) place(side orderbook.Side, req OrderRequest) (*Placement, error) {
	v, err := validate(req)
	if err != nil {
		e.logger.Debugw("order_rejected", "side", side.String(), "item", req.Item, "err", err)
		return nil, err
	}

	m, created := e.registry.GetOrCreate(v.item)
	if created {
		e.logger.Infow("market_created", "item", v.item)
	}

	o := &orderbook.Order{
		ID:        e.newID(),
		Item:      v.item,
		Side:      side,
		Price:     v.price,
		Quantity:  v.qty,
		Remaining: v.qty,
		Trader:    v.trader,
	}
	p, err := m.Submit(o, market.SubmitOptions{
		Sequence:        func() uint64 { return e.seq.Add(1) },
		Now:             e.clock.Now,
		RejectSelfMatch: e.selfMatch == SelfMatchReject,
	})
	if err != nil {
		if errors.Is(err, market.ErrSelfMatch) {
			e.logger.Infow("self_match_rejected", "item", v.item, "trader", v.trader)
			return nil, &ValidationError{Field: "trader", Reason: err.Error(), Err: err}
		}
		return nil, err
	}

	e.logger.Debugw("order_placed",
		"item", v.item,
		"order_id", o.ID,
		"side", side.String(),
		"price", orderbook.FormatTicks(v.price),
		"qty", v.qty,
		"status", p.Result.Status.String(),
		"fills", len(p.Trades))

	if len(p.Trades) > 0 && e.OnTrades != nil {
		e.OnTrades(v.item, p.Trades)
	}
	if e.OnBookChange != nil {
		e.OnBookChange(v.item)
	}

	return &Placement{
		Item:    v.item,
		Order:   p.Result.Order,
		Status:  p.Result.Status,
		Trades:  p.Trades,
		Updated: p.Result.Updated,
	}, nil
}

// CancelOrder removes a resting order and returns it as it was at cancellation.
func (e *MarketEngine) CancelOrder(item, orderID string) (orderbook.Order, error) {
	m, ok := e.registry.Get(NormalizeItem(item))
	if !ok {
		return orderbook.Order{}, ErrNotFound
	}
	o, ok := m.Cancel(orderID)
	if !ok {
		return orderbook.Order{}, ErrNotFound
	}
	e.logger.Debugw("order_cancelled", "item", m.Item, "order_id", orderID, "remaining", o.Remaining)
	if e.OnBookChange != nil {
		e.OnBookChange(m.Item)
	}
	return o, nil
}

// BestBuyingPrice returns the highest resting bid. Unknown items have none.
func (e *MarketEngine) BestBuyingPrice(item string) (int64, bool) {
	m, ok := e.registry.Get(NormalizeItem(item))
	if !ok {
		return 0, false
	}
	return m.BestBid()
}

// BestSellingPrice returns the lowest resting ask. Unknown items have none.
func (e *MarketEngine) BestSellingPrice(item string) (int64, bool) {
	m, ok := e.registry.Get(NormalizeItem(item))
	if !ok {
		return 0, false
	}
	return m.BestAsk()
}

type LedgerView struct {
	Item   string
	Trades []ledger.Trade
	Best   ledger.BestPrices
}

// QueryLedger returns the item's trade history, oldest first. An unknown item
// yields an empty history.
func (e *MarketEngine) QueryLedger(item string) LedgerView {
	key := NormalizeItem(item)
	view := LedgerView{Item: key, Trades: []ledger.Trade{}}
	if m, ok := e.registry.Get(key); ok {
		view.Trades, view.Best = m.Trades()
	}
	return view
}

// OrderStatus reports a resting order or the terminal status of one that
// left the book.
func (e *MarketEngine) OrderStatus(item, orderID string) (market.OrderState, error) {
	m, ok := e.registry.Get(NormalizeItem(item))
	if !ok {
		return market.OrderState{}, ErrNotFound
	}
	st, ok := m.Status(orderID)
	if !ok {
		return market.OrderState{}, ErrNotFound
	}
	return st, nil
}

// Snapshot returns one item's full state, for depth views.
func (e *MarketEngine) Snapshot(item string) (market.Snapshot, bool) {
	m, ok := e.registry.Get(NormalizeItem(item))
	if !ok {
		return market.Snapshot{}, false
	}
	return m.Snapshot(), true
}

// Items lists known items in name order.
func (e *MarketEngine) Items() []string {
	markets := e.registry.List()
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.Item
	}
	return out
}

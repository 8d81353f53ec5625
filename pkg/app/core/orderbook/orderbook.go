package orderbook

import (
	"container/heap"
	"sort"
)

// OrderBook holds the resting orders of one item.
//
// An OrderBook is not safe for concurrent use; market.Market serializes
// access to it together with the item's ledger.
type OrderBook struct {
	// Heap-based best price tracking (O(1) peek)
	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// Price level queues (FIFO matching at each price)
	bids map[int64][]*Order
	asks map[int64][]*Order

	// Order index for O(1) cancellation
	orderIndex map[string]orderRef

	lastPrice int64 // most recent fill price
}

type orderRef struct {
	side  Side
	price int64
}

func NewOrderBook() *OrderBook {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		bidHeap:    bidHeap,
		askHeap:    askHeap,
		bids:       make(map[int64][]*Order),
		asks:       make(map[int64][]*Order),
		orderIndex: make(map[string]orderRef),
	}
}

func (ob *OrderBook) levels(side Side) map[int64][]*Order {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

// BestBid returns the highest bid price.
func (ob *OrderBook) BestBid() (int64, bool) {
	if ob.bidHeap.Len() == 0 {
		return 0, false
	}
	return ob.bidHeap.Peek(), true
}

// BestAsk returns the lowest ask price.
func (ob *OrderBook) BestAsk() (int64, bool) {
	if ob.askHeap.Len() == 0 {
		return 0, false
	}
	return ob.askHeap.Peek(), true
}

func (ob *OrderBook) best(side Side) (int64, bool) {
	if side == Buy {
		return ob.BestBid()
	}
	return ob.BestAsk()
}

// crosses reports whether an order on side at limit trades against a resting level at p.
func crosses(side Side, limit, p int64) bool {
	if side == Buy {
		return p <= limit
	}
	return p >= limit
}

// Submit matches o against the opposite side by price-time priority and
// rests whatever is left at the tail of its own price level. Every fill is
// priced at the maker's level. o is owned by the book afterwards if it rests.
func (ob *OrderBook) Submit(o *Order) MatchResult {
	var res MatchResult
	opp := o.Side.Opposite()

	for o.Remaining > 0 {
		p, ok := ob.best(opp)
		if !ok || !crosses(o.Side, o.Price, p) {
			break
		}
		maker := ob.levels(opp)[p][0]
		qty := min(o.Remaining, maker.Remaining)
		o.Remaining -= qty
		maker.Remaining -= qty

		res.Fills = append(res.Fills, newFill(o, maker, p, qty))
		res.Updated = append(res.Updated, *maker)
		ob.lastPrice = p

		if maker.Remaining == 0 {
			ob.popFront(opp, p)
		}
	}

	if o.Remaining > 0 {
		ob.add(o)
	}
	res.Order = *o
	res.Status = o.Status()
	return res
}

func newFill(taker, maker *Order, price, qty int64) Fill {
	f := Fill{TakerID: taker.ID, MakerID: maker.ID, Price: price, Qty: qty}
	buy, sell := taker, maker
	if taker.Side == Sell {
		buy, sell = maker, taker
	}
	f.BuyID, f.Buyer = buy.ID, buy.Trader
	f.SellID, f.Seller = sell.ID, sell.Trader
	return f
}

// add rests o on its own side, keeping the level ordered by timestamp.
func (ob *OrderBook) add(o *Order) {
	lv := ob.levels(o.Side)
	level, exists := lv[o.Price]
	if !exists {
		if o.Side == Buy {
			heap.Push(ob.bidHeap, o.Price)
		} else {
			heap.Push(ob.askHeap, o.Price)
		}
	}

	i := len(level)
	for i > 0 && level[i-1].Timestamp > o.Timestamp {
		i--
	}
	level = append(level, nil)
	copy(level[i+1:], level[i:])
	level[i] = o
	lv[o.Price] = level

	ob.orderIndex[o.ID] = orderRef{side: o.Side, price: o.Price}
}

func (ob *OrderBook) popFront(side Side, price int64) {
	lv := ob.levels(side)
	level := lv[price]
	delete(ob.orderIndex, level[0].ID)
	level[0] = nil
	level = level[1:]
	if len(level) == 0 {
		ob.dropLevel(side, price)
		return
	}
	lv[price] = level
}

func (ob *OrderBook) dropLevel(side Side, price int64) {
	delete(ob.levels(side), price)
	if side == Buy {
		if i := indexOf(ob.bidHeap, price); i >= 0 {
			heap.Remove(ob.bidHeap, i)
		}
		return
	}
	if i := indexOf(ob.askHeap, price); i >= 0 {
		heap.Remove(ob.askHeap, i)
	}
}

// Cancel removes a resting order. It returns false if id is not resting.
func (ob *OrderBook) Cancel(id string) (Order, bool) {
	ref, ok := ob.orderIndex[id]
	if !ok {
		return Order{}, false
	}

	lv := ob.levels(ref.side)
	level := lv[ref.price]
	for i, o := range level {
		if o.ID != id {
			continue
		}
		removed := *o
		level = append(level[:i], level[i+1:]...)
		if len(level) == 0 {
			ob.dropLevel(ref.side, ref.price)
		} else {
			lv[ref.price] = level
		}
		delete(ob.orderIndex, id)
		return removed, true
	}

	// index and levels disagree; treat as not resting
	delete(ob.orderIndex, id)
	return Order{}, false
}

// Get returns a copy of a resting order.
func (ob *OrderBook) Get(id string) (Order, bool) {
	ref, ok := ob.orderIndex[id]
	if !ok {
		return Order{}, false
	}
	for _, o := range ob.levels(ref.side)[ref.price] {
		if o.ID == id {
			return *o, true
		}
	}
	return Order{}, false
}

// Len returns the number of resting orders.
func (ob *OrderBook) Len() int { return len(ob.orderIndex) }

// LastPrice returns the price of the most recent fill, 0 if none.
func (ob *OrderBook) LastPrice() int64 { return ob.lastPrice }

// sortedPrices returns the prices of side best first.
func (ob *OrderBook) sortedPrices(side Side) []int64 {
	lv := ob.levels(side)
	prices := make([]int64, 0, len(lv))
	for p := range lv {
		prices = append(prices, p)
	}
	if side == Buy {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	}
	return prices
}

// Crossing returns, in matching order, the resting orders an incoming order
// would trade against, stopping once its quantity is covered.
func (ob *OrderBook) Crossing(o Order) []Order {
	opp := o.Side.Opposite()
	need := o.Remaining
	var out []Order
	for _, p := range ob.sortedPrices(opp) {
		if need <= 0 || !crosses(o.Side, o.Price, p) {
			break
		}
		for _, maker := range ob.levels(opp)[p] {
			if need <= 0 {
				break
			}
			out = append(out, *maker)
			need -= maker.Remaining
		}
	}
	return out
}

// Bids returns copies of the resting bids, best price first then oldest first.
func (ob *OrderBook) Bids() []Order { return ob.snapshot(Buy) }

// Asks returns copies of the resting asks, best price first then oldest first.
func (ob *OrderBook) Asks() []Order { return ob.snapshot(Sell) }

func (ob *OrderBook) snapshot(side Side) []Order {
	out := make([]Order, 0, len(ob.orderIndex))
	lv := ob.levels(side)
	for _, p := range ob.sortedPrices(side) {
		for _, o := range lv[p] {
			out = append(out, *o)
		}
	}
	return out
}

// GetBidLevels returns all bid price levels sorted high to low (best bid first).
func (ob *OrderBook) GetBidLevels() []PriceLevel { return ob.aggregate(Buy) }

// GetAskLevels returns all ask price levels sorted low to high (best ask first).
func (ob *OrderBook) GetAskLevels() []PriceLevel { return ob.aggregate(Sell) }

func (ob *OrderBook) aggregate(side Side) []PriceLevel {
	lv := ob.levels(side)
	prices := ob.sortedPrices(side)
	levels := make([]PriceLevel, 0, len(prices))
	for _, p := range prices {
		var total int64
		for _, o := range lv[p] {
			total += o.Remaining
		}
		levels = append(levels, PriceLevel{Price: p, Qty: total, Orders: len(lv[p])})
	}
	return levels
}

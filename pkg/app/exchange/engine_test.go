package exchange

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketcore/pkg/util"
)

func req(item, price string, qty int64, trader string) OrderRequest {
	return OrderRequest{Item: item, Price: decimal.RequireFromString(price), Quantity: qty, Trader: trader}
}

func ticks(price string) int64 {
	t, err := orderbook.TicksFromDecimal(decimal.RequireFromString(price))
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEngine(policy SelfMatchPolicy) *MarketEngine {
	return NewMarketEngine(Options{
		SelfMatch: policy,
		Clock:     util.NewFixedClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	})
}

func TestSellThenBuyFillsBoth(t *testing.T) {
	e := newTestEngine(SelfMatchReject)

	sell, err := e.Sell(req("X", "100", 10, "ALICE"))
	require.NoError(t, err)
	assert.Equal(t, orderbook.Resting, sell.Status)

	buy, err := e.Buy(req("X", "100", 10, "BOB"))
	require.NoError(t, err)
	assert.Equal(t, orderbook.Filled, buy.Status)
	require.Len(t, buy.Trades, 1)

	tr := buy.Trades[0]
	assert.Equal(t, int64(10), tr.Quantity)
	assert.Equal(t, ticks("100"), tr.Price)
	assert.Equal(t, sell.Order.ID, tr.SellOrderID)
	assert.Equal(t, buy.Order.ID, tr.BuyOrderID)
	assert.Equal(t, "ALICE", tr.Seller)
	assert.Equal(t, "BOB", tr.Buyer)

	for _, id := range []string{sell.Order.ID, buy.Order.ID} {
		st, err := e.OrderStatus("X", id)
		require.NoError(t, err)
		assert.Equal(t, orderbook.Filled, st.Status)
	}

	_, ok := e.BestBuyingPrice("X")
	assert.False(t, ok)
	_, ok = e.BestSellingPrice("X")
	assert.False(t, ok)

	view := e.QueryLedger("X")
	assert.Len(t, view.Trades, 1)
	assert.Equal(t, ledger.BestPrices{}, view.Best)
}

func TestBestBuyingPriceHigherWins(t *testing.T) {
	e := newTestEngine(SelfMatchReject)

	_, err := e.Buy(req("X", "90", 5, "ALICE"))
	require.NoError(t, err)
	_, err = e.Buy(req("X", "95", 5, "BOB"))
	require.NoError(t, err)

	p, ok := e.BestBuyingPrice("X")
	require.True(t, ok)
	assert.Equal(t, ticks("95"), p)

	snap, ok := e.Snapshot("X")
	require.True(t, ok)
	assert.Len(t, snap.Bids, 2)
	assert.Empty(t, snap.Asks)
}

func TestQueryLedgerUnknownItemIsEmpty(t *testing.T) {
	e := newTestEngine(SelfMatchReject)

	view := e.QueryLedger("nothing")
	assert.Equal(t, "NOTHING", view.Item)
	assert.NotNil(t, view.Trades)
	assert.Empty(t, view.Trades)

	// queries never create items
	_, ok := e.BestSellingPrice("nothing")
	assert.False(t, ok)
	assert.Empty(t, e.Items())
}

func TestItemsAreCaseInsensitive(t *testing.T) {
	e := newTestEngine(SelfMatchReject)

	_, err := e.Sell(req("corn", "12.5", 3, "ALICE"))
	require.NoError(t, err)
	buy, err := e.Buy(req(" CORN ", "13", 3, "BOB"))
	require.NoError(t, err)

	assert.Equal(t, "CORN", buy.Item)
	require.Len(t, buy.Trades, 1)
	assert.Equal(t, ticks("12.5"), buy.Trades[0].Price)
	assert.Equal(t, []string{"CORN"}, e.Items())
}

func TestCancelTwiceReportsNotFound(t *testing.T) {
	e := newTestEngine(SelfMatchReject)

	p, err := e.Buy(req("X", "10", 4, "ALICE"))
	require.NoError(t, err)

	o, err := e.CancelOrder("X", p.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.Remaining)

	before := e.Dump()
	_, err = e.CancelOrder("X", p.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before.StateHash, e.Dump().StateHash)

	st, err := e.OrderStatus("X", p.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderbook.Cancelled, st.Status)
}

func TestCancelUnknownIsUniform(t *testing.T) {
	e := newTestEngine(SelfMatchReject)
	_, err := e.Buy(req("X", "10", 4, "ALICE"))
	require.NoError(t, err)

	_, errItem := e.CancelOrder("Y", "abc")
	_, errID := e.CancelOrder("X", "abc")
	assert.ErrorIs(t, errItem, ErrNotFound)
	assert.ErrorIs(t, errID, ErrNotFound)
	assert.Equal(t, errItem.Error(), errID.Error())
}

func TestCancelFilledOrderNotFound(t *testing.T) {
	e := newTestEngine(SelfMatchReject)
	s, err := e.Sell(req("X", "10", 4, "ALICE"))
	require.NoError(t, err)
	_, err = e.Buy(req("X", "10", 4, "BOB"))
	require.NoError(t, err)

	_, err = e.CancelOrder("X", s.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationRejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name  string
		req   OrderRequest
		field string
	}{
		{"zero quantity", req("X", "10", 0, "BOB"), "quantity"},
		{"negative quantity", req("X", "10", -1, "BOB"), "quantity"},
		{"huge quantity", req("X", "10", MaxQuantity+1, "BOB"), "quantity"},
		{"zero price", req("X", "0", 1, "BOB"), "price"},
		{"negative price", req("X", "-5", 1, "BOB"), "price"},
		{"too precise", req("X", "1.00001", 1, "BOB"), "price"},
		{"empty item", req("  ", "10", 1, "BOB"), "item"},
		{"item with space", req("A B", "10", 1, "BOB"), "item"},
		{"empty trader", req("X", "10", 1, ""), "trader"},
		{"long trader", req("X", "10", 1, fmt.Sprintf("%065d", 0)), "trader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(SelfMatchReject)
			_, err := e.Buy(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, e.Items())
		})
	}
}

func TestSelfMatchPolicy(t *testing.T) {
	t.Run("reject", func(t *testing.T) {
		e := newTestEngine(SelfMatchReject)
		_, err := e.Sell(req("X", "10", 5, "BOB"))
		require.NoError(t, err)
		before := e.Dump()

		_, err = e.Buy(req("X", "11", 5, "BOB"))
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, ErrSelfMatch)
		assert.Equal(t, before.StateHash, e.Dump().StateHash)
		assert.Empty(t, e.QueryLedger("X").Trades)
	})

	t.Run("allow", func(t *testing.T) {
		e := newTestEngine(SelfMatchAllow)
		_, err := e.Sell(req("X", "10", 5, "BOB"))
		require.NoError(t, err)

		p, err := e.Buy(req("X", "11", 5, "BOB"))
		require.NoError(t, err)
		require.Len(t, p.Trades, 1)
		assert.Equal(t, ticks("10"), p.Trades[0].Price)
	})

	t.Run("non-crossing same trader rests", func(t *testing.T) {
		e := newTestEngine(SelfMatchReject)
		_, err := e.Sell(req("X", "10", 5, "BOB"))
		require.NoError(t, err)
		_, err = e.Buy(req("X", "9", 5, "BOB"))
		require.NoError(t, err)
	})
}

func TestPartialFillAcrossLevels(t *testing.T) {
	e := newTestEngine(SelfMatchReject)
	_, err := e.Sell(req("X", "10", 3, "A"))
	require.NoError(t, err)
	_, err = e.Sell(req("X", "11", 3, "B"))
	require.NoError(t, err)

	p, err := e.Buy(req("X", "11", 10, "C"))
	require.NoError(t, err)
	assert.Equal(t, orderbook.PartiallyFilled, p.Status)
	require.Len(t, p.Trades, 2)
	assert.Equal(t, ticks("10"), p.Trades[0].Price)
	assert.Equal(t, ticks("11"), p.Trades[1].Price)
	assert.Equal(t, uint64(1), p.Trades[0].TradeID)
	assert.Equal(t, uint64(2), p.Trades[1].TradeID)
	assert.Len(t, p.Updated, 2)
	assert.Equal(t, int64(4), p.Order.Remaining)

	bid, ok := e.BestBuyingPrice("X")
	require.True(t, ok)
	assert.Equal(t, ticks("11"), bid)

	st, err := e.OrderStatus("X", p.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderbook.PartiallyFilled, st.Status)
	assert.Equal(t, int64(4), st.Order.Remaining)
}

func TestHooksFireAfterMutation(t *testing.T) {
	e := newTestEngine(SelfMatchReject)
	var traded, changed []string
	e.OnTrades = func(item string, trades []ledger.Trade) {
		// the item lock is free again
		_, _ = e.BestBuyingPrice(item)
		traded = append(traded, fmt.Sprintf("%s:%d", item, len(trades)))
	}
	e.OnBookChange = func(item string) { changed = append(changed, item) }

	s, err := e.Sell(req("X", "10", 5, "A"))
	require.NoError(t, err)
	_, err = e.Buy(req("X", "10", 2, "B"))
	require.NoError(t, err)
	_, err = e.CancelOrder("X", s.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"X:1"}, traded)
	assert.Equal(t, []string{"X", "X", "X"}, changed)
}

func TestDumpIsDeterministic(t *testing.T) {
	build := func() *MarketEngine {
		e := newTestEngine(SelfMatchReject)
		for _, item := range []string{"B", "A"} {
			_, err := e.Sell(req(item, "5", 2, "S"))
			require.NoError(t, err)
			_, err = e.Buy(req(item, "4", 2, "T"))
			require.NoError(t, err)
		}
		return e
	}
	d1, d2 := build().Dump(), build().Dump()

	require.Len(t, d1.Items, 2)
	assert.Equal(t, "A", d1.Items[0].Item)
	assert.Equal(t, "B", d1.Items[1].Item)
	assert.Equal(t, d1.StateHash, d2.StateHash)
	assert.Len(t, d1.StateHash, 66)
	assert.NotEqual(t, StateHash(nil), d1.StateHash)
}

func TestConcurrentItemsAndTimestamps(t *testing.T) {
	e := newTestEngine(SelfMatchAllow)
	items := []string{"A", "B", "C", "D"}

	var wg sync.WaitGroup
	for _, item := range items {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(item string, w int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					var err error
					if (i+w)%2 == 0 {
						_, err = e.Buy(req(item, "10", 1, "T"))
					} else {
						_, err = e.Sell(req(item, "10", 1, "T"))
					}
					assert.NoError(t, err)
				}
			}(item, w)
		}
	}
	wg.Wait()

	assert.Equal(t, items, e.Items())
	for _, item := range items {
		snap, ok := e.Snapshot(item)
		require.True(t, ok)
		assert.False(t, len(snap.Bids) > 0 && len(snap.Asks) > 0, "book crossed for %s", item)

		// 400 unit orders: 200 buys and 200 sells at one price all pair off
		assert.Len(t, snap.Trades, 200)
		for i, tr := range snap.Trades {
			assert.Equal(t, uint64(i+1), tr.TradeID)
			if i > 0 {
				assert.Greater(t, tr.Timestamp, snap.Trades[i-1].Timestamp)
			}
		}
	}
}

func BenchmarkSubmit(b *testing.B) {
	e := NewMarketEngine(Options{SelfMatch: SelfMatchAllow})
	buy := req("BENCH", "100", 1, "B")
	sell := req("BENCH", "100", 1, "S")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			_, _ = e.Buy(buy)
		} else {
			_, _ = e.Sell(sell)
		}
	}
}

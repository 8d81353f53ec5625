package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
)

func TestRecordAssignsMonotonicIDs(t *testing.T) {
	l := New("CORN")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := l.Record([]orderbook.Fill{
		{BuyID: "b1", SellID: "s1", Buyer: "BOB", Seller: "CAROL", Price: 100, Qty: 3},
		{BuyID: "b1", SellID: "s2", Buyer: "BOB", Seller: "DAVE", Price: 101, Qty: 2},
	}, 7, at, BestPrices{Bid: 99, HasBid: true})
	second := l.Record([]orderbook.Fill{
		{BuyID: "b2", SellID: "s3", Buyer: "EVE", Seller: "CAROL", Price: 102, Qty: 1},
	}, 8, at, BestPrices{})

	require.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, uint64(1), first[0].TradeID)
	assert.Equal(t, uint64(2), first[1].TradeID)
	assert.Equal(t, uint64(3), second[0].TradeID)
	assert.Equal(t, "CORN", second[0].Item)
	assert.Equal(t, uint64(8), second[0].Timestamp)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, BestPrices{}, l.Best())
}

func TestQueryReturnsCopy(t *testing.T) {
	l := New("CORN")
	l.Record([]orderbook.Fill{{BuyID: "b1", SellID: "s1", Price: 100, Qty: 1}}, 1, time.Time{}, BestPrices{})

	got := l.Query()
	got[0].Quantity = 999

	assert.Equal(t, int64(1), l.Query()[0].Quantity)
}

func TestEmptyLedger(t *testing.T) {
	l := New("CORN")
	assert.Empty(t, l.Query())
	assert.NotNil(t, l.Query())
	assert.False(t, l.HasOrder("x"))
}

func TestBestOfTracksBook(t *testing.T) {
	ob := orderbook.NewOrderBook()
	assert.Equal(t, BestPrices{}, BestOf(ob))

	ob.Submit(&orderbook.Order{ID: "b1", Side: orderbook.Buy, Price: 95, Quantity: 1, Remaining: 1, Timestamp: 1})
	ob.Submit(&orderbook.Order{ID: "a1", Side: orderbook.Sell, Price: 105, Quantity: 1, Remaining: 1, Timestamp: 2})

	assert.Equal(t, BestPrices{Bid: 95, HasBid: true, Ask: 105, HasAsk: true}, BestOf(ob))
}

package orderbook

import (
	"fmt"
	"math/rand"
	"testing"
)

// prefill rests levels bids below 1000 and levels asks from 1100 upward,
// perLevel orders each.
func prefill(ob *OrderBook, levels, perLevel int, qty int64) {
	for i := 0; i < levels; i++ {
		for j := 0; j < perLevel; j++ {
			ob.Submit(newTestOrder(fmt.Sprintf("bid-%d-%d", i, j), Buy, int64(1000-i), qty))
			ob.Submit(newTestOrder(fmt.Sprintf("ask-%d-%d", i, j), Sell, int64(1100+i), qty))
		}
	}
}

// BenchmarkSubmitCrossing measures orders that fill against the top level.
func BenchmarkSubmitCrossing(b *testing.B) {
	ob := NewOrderBook()
	prefill(ob, 100, 1, 1<<40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side, price := Buy, int64(1100)
		if i%2 == 0 {
			side, price = Sell, 1000
		}
		ob.Submit(newTestOrder(fmt.Sprintf("bench-%d", i), side, price, 10))
	}
}

// BenchmarkCancel measures lookup plus removal from a level.
func BenchmarkCancel(b *testing.B) {
	ob := NewOrderBook()
	ids := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		ids[i] = fmt.Sprintf("order-%d", i)
		ob.Submit(newTestOrder(ids[i], Buy, int64(100+i%1000), 100))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ob.Cancel(ids[i])
	}
}

// BenchmarkBestPrice measures the heap peek on a deep book.
func BenchmarkBestPrice(b *testing.B) {
	ob := NewOrderBook()
	prefill(ob, 1000, 1, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ob.BestBid()
		_, _ = ob.BestAsk()
	}
}

// BenchmarkLevels measures depth aggregation, used by dumps and book updates.
func BenchmarkLevels(b *testing.B) {
	ob := NewOrderBook()
	prefill(ob, 500, 5, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ob.GetBidLevels()
		_ = ob.GetAskLevels()
	}
}

// BenchmarkMixedWorkload: 70% crossing orders, 20% resting orders, 10% cancels.
func BenchmarkMixedWorkload(b *testing.B) {
	ob := NewOrderBook()
	prefill(ob, 200, 1, 1<<40)

	rng := rand.New(rand.NewSource(12345))
	resting := make([]string, 0, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := rng.Float64()
		switch {
		case r < 0.7:
			side, price := Buy, int64(1100)
			if rng.Intn(2) == 0 {
				side, price = Sell, 1000
			}
			ob.Submit(newTestOrder(fmt.Sprintf("cross-%d", i), side, price, int64(10+rng.Intn(90))))
		case r < 0.9:
			side, price := Buy, int64(900-rng.Intn(100))
			if rng.Intn(2) == 0 {
				side, price = Sell, int64(1300+rng.Intn(100))
			}
			id := fmt.Sprintf("limit-%d", i)
			ob.Submit(newTestOrder(id, side, price, int64(10+rng.Intn(90))))
			resting = append(resting, id)
		default:
			if len(resting) > 0 {
				idx := rng.Intn(len(resting))
				ob.Cancel(resting[idx])
				resting[idx] = resting[len(resting)-1]
				resting = resting[:len(resting)-1]
			}
		}
	}
}

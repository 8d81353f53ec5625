// Package events fans engine output out to sinks: the trade journal, the
// Kafka publisher and the websocket hub.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/app/exchange"
	"github.com/uhyunpark/marketcore/pkg/storage"
)

type TradeHandler func(item string, trades []ledger.Trade)

type BookHandler func(item string)

// TradePublisher ships trades to an external system.
type TradePublisher interface {
	PublishTrades(ctx context.Context, item string, trades []ledger.Trade) error
}

// Bus dispatches engine hooks to every registered handler, in registration
// order, on the caller's goroutine. Register handlers before Attach.
type Bus struct {
	logger *zap.SugaredLogger
	trades []TradeHandler
	books  []BookHandler
}

func NewBus(logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bus{logger: logger}
}

func (b *Bus) OnTrades(h TradeHandler) { b.trades = append(b.trades, h) }

func (b *Bus) OnBookChange(h BookHandler) { b.books = append(b.books, h) }

// Journal appends every trade to j. Failures are logged; the trades are
// already in the ledger.
func (b *Bus) Journal(j storage.TradeJournal) {
	b.OnTrades(func(item string, trades []ledger.Trade) {
		if err := j.Append(item, trades); err != nil {
			b.logger.Errorw("journal_append_failed", "item", item, "trades", len(trades), "err", err)
		}
	})
}

// Publish forwards every trade to p.
func (b *Bus) Publish(p TradePublisher) {
	b.OnTrades(func(item string, trades []ledger.Trade) {
		if err := p.PublishTrades(context.Background(), item, trades); err != nil {
			b.logger.Warnw("trade_publish_failed", "item", item, "trades", len(trades), "err", err)
		}
	})
}

// Attach installs the bus as the engine's hooks.
func (b *Bus) Attach(e *exchange.MarketEngine) {
	e.OnTrades = b.dispatchTrades
	e.OnBookChange = b.dispatchBook
}

func (b *Bus) dispatchTrades(item string, trades []ledger.Trade) {
	for _, h := range b.trades {
		h(item, trades)
	}
}

func (b *Bus) dispatchBook(item string) {
	for _, h := range b.books {
		h(item)
	}
}

// Package storage holds the optional sinks that receive engine output: a
// trade journal and a request log. Nothing here is read back into the engine.
package storage

import (
	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
)

// TradeJournal receives every recorded trade, per item, in TradeID order.
type TradeJournal interface {
	Append(item string, trades []ledger.Trade) error
	Close() error
}

type NopJournal struct{}

func (NopJournal) Append(string, []ledger.Trade) error { return nil }
func (NopJournal) Close() error                        { return nil }

var (
	_ TradeJournal = NopJournal{}
	_ TradeJournal = (*PebbleJournal)(nil)
	_ TradeJournal = (*MemoryJournal)(nil)
)

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
)

// PebbleJournal writes trades to a Pebble database. It is write-only from
// the engine's point of view: nothing is replayed at startup.
type PebbleJournal struct {
	db *pebble.DB
}

func NewPebbleJournal(path string) (*PebbleJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	return &PebbleJournal{db: db}, nil
}

func (s *PebbleJournal) Close() error { return s.db.Close() }

// Append writes trades in one batch.
func (s *PebbleJournal) Append(item string, trades []ledger.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, tr := range trades {
		data, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("failed to marshal trade: %w", err)
		}
		if err := batch.Set(tradeKey(item, tr.TradeID), data, nil); err != nil {
			return fmt.Errorf("failed to stage trade: %w", err)
		}
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save trades: %w", err)
	}
	return nil
}

// Trades loads every journalled trade of an item in TradeID order.
func (s *PebbleJournal) Trades(item string) ([]ledger.Trade, error) {
	prefix := tradePrefix(item)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []ledger.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		var tr ledger.Trade
		if err := json.Unmarshal(iter.Value(), &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade %s: %w", iter.Key(), err)
		}
		trades = append(trades, tr)
	}
	return trades, iter.Error()
}

// RecentTrades loads the most recent limit trades of an item, newest first.
func (s *PebbleJournal) RecentTrades(item string, limit int) ([]ledger.Trade, error) {
	prefix := tradePrefix(item)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []ledger.Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var tr ledger.Trade
		if err := json.Unmarshal(iter.Value(), &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade %s: %w", iter.Key(), err)
		}
		trades = append(trades, tr)
	}
	return trades, iter.Error()
}

// LastTradeID returns the highest journalled TradeID of an item.
func (s *PebbleJournal) LastTradeID(item string) (uint64, bool, error) {
	recent, err := s.RecentTrades(item, 1)
	if err != nil {
		return 0, false, err
	}
	if len(recent) == 0 {
		return 0, false, nil
	}
	return recent[0].TradeID, true, nil
}

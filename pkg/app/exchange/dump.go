package exchange

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/marketcore/pkg/app/core/market"
)

// Dump is a diagnostic view of every item, in item order.
type Dump struct {
	Items     []market.Snapshot
	StateHash string // 0x-prefixed keccak256 over levels and trade ids
}

// Dump snapshots each item under its own read lock. Items are not frozen
// together, so the result is per-item consistent only.
func (e *MarketEngine) Dump() Dump {
	markets := e.registry.List()
	d := Dump{Items: make([]market.Snapshot, 0, len(markets))}
	for _, m := range markets {
		d.Items = append(d.Items, m.Snapshot())
	}
	d.StateHash = StateHash(d.Items)
	return d
}

// StateHash computes a deterministic digest of the given snapshots.
//
// Hashed per item, in slice order:
//   - item name
//   - bid levels (price, qty), best first
//   - ask levels (price, qty), best first
//   - trade count and the last trade id
func StateHash(items []market.Snapshot) string {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	for _, s := range items {
		h.Write([]byte(s.Item))
		put(uint64(len(s.BidLevels)))
		for _, lvl := range s.BidLevels {
			put(uint64(lvl.Price))
			put(uint64(lvl.Qty))
		}
		put(uint64(len(s.AskLevels)))
		for _, lvl := range s.AskLevels {
			put(uint64(lvl.Price))
			put(uint64(lvl.Qty))
		}
		put(uint64(len(s.Trades)))
		if n := len(s.Trades); n > 0 {
			put(s.Trades[n-1].TradeID)
		}
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

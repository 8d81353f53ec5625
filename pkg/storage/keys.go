package storage

import (
	"fmt"
)

// Journal key schema:
//
//	trade:<ITEM>:<tradeID> → Trade (JSON)
//
// tradeID is zero-padded to 20 digits so a prefix scan returns trades in
// ledger order.
const (
	prefixTrade = "trade:"
)

// tradeKey returns the key for a trade
// Format: "trade:{item}:{tradeID}"
func tradeKey(item string, tradeID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixTrade, item, tradeID))
}

// tradePrefix returns the prefix for all trades of an item
// Format: "trade:{item}:"
func tradePrefix(item string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, item))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

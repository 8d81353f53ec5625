package api

import (
	"github.com/uhyunpark/marketcore/pkg/wire"
)

// REST responses use the wire envelope ({"ok":...,"data"|"error":...}); the
// types here are the WebSocket messages and the few REST payloads that have
// no engine counterpart.

// WSMessage is the base structure for all WebSocket messages
type WSMessage struct {
	Type string `json:"type"` // "book", "trades"
	Data any    `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["book:CORN", "trades:CORN"]
}

// BookUpdate is broadcast after any order rests, fills or is cancelled
type BookUpdate struct {
	Type      string           `json:"type"` // "book"
	Item      string           `json:"item"`
	Bids      []wire.LevelView `json:"bids"` // best first
	Asks      []wire.LevelView `json:"asks"` // best first
	Timestamp int64            `json:"timestamp"`
}

// TradeUpdate is broadcast for every batch of trades one order produced
type TradeUpdate struct {
	Type      string           `json:"type"` // "trades"
	Item      string           `json:"item"`
	Trades    []wire.TradeView `json:"trades"`
	Timestamp int64            `json:"timestamp"`
}

// ItemsResponse lists the known items
type ItemsResponse struct {
	Items []string `json:"items"`
}

func bookChannel(item string) string  { return "book:" + item }
func tradeChannel(item string) string { return "trades:" + item }

package wire

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/app/core/market"
	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketcore/pkg/app/exchange"
)

const (
	CodeValidation    = "validation_error"
	CodeNotFound      = "not_found"
	CodeSerialization = "serialization_error"
	CodeInternal      = "internal_error"
)

type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func OK(data any) Response {
	return Response{OK: true, Data: data}
}

// Fail classifies err into an error response.
func Fail(err error) Response {
	body := &ErrorBody{Code: CodeInternal, Message: err.Error()}

	var ve *exchange.ValidationError
	switch {
	case errors.As(err, &ve):
		body.Code = CodeValidation
		body.Field = ve.Field
	case errors.Is(err, exchange.ErrNotFound):
		body.Code = CodeNotFound
	case errors.Is(err, ErrSerialization):
		body.Code = CodeSerialization
	}
	return Response{Error: body}
}

// Code returns the error code of r, or "" for a success.
func (r Response) Code() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// internalFailure is written when a response itself cannot be marshalled.
const internalFailure = `{"ok":false,"error":{"code":"internal_error","message":"response encoding failed"}}`

// Encode renders r as text. It never fails: an unencodable payload becomes
// an internal_error response.
func Encode(r Response) string {
	b, err := json.Marshal(r)
	if err != nil {
		return internalFailure
	}
	return string(b)
}

// DecodeResponse parses response text. Data is left as raw JSON for the
// caller to decode into the view it expects.
func DecodeResponse(text string) (RawResponse, error) {
	var r RawResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return RawResponse{}, &SerializationError{Msg: "invalid response", Err: err}
	}
	return r, nil
}

type RawResponse struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// price renders ticks as a decimal string.
func price(ticks int64) string { return orderbook.FormatTicks(ticks) }

func optPrice(ticks int64, ok bool) *string {
	if !ok {
		return nil
	}
	s := price(ticks)
	return &s
}

type OrderView struct {
	OrderID   string `json:"order_id"`
	Item      string `json:"item"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
	Remaining int64  `json:"remaining"`
	Filled    int64  `json:"filled"`
	Trader    string `json:"trader"`
	Timestamp uint64 `json:"timestamp"`
	Status    string `json:"status"`
}

func NewOrderView(o orderbook.Order) OrderView {
	return OrderView{
		OrderID:   o.ID,
		Item:      o.Item,
		Side:      o.Side.String(),
		Price:     price(o.Price),
		Quantity:  o.Quantity,
		Remaining: o.Remaining,
		Filled:    o.Filled(),
		Trader:    o.Trader,
		Timestamp: o.Timestamp,
		Status:    o.Status().String(),
	}
}

func newOrderViews(orders []orderbook.Order) []OrderView {
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = NewOrderView(o)
	}
	return out
}

type TradeView struct {
	TradeID     uint64    `json:"trade_id"`
	Item        string    `json:"item"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	Buyer       string    `json:"buyer"`
	Seller      string    `json:"seller"`
	Price       string    `json:"price"`
	Quantity    int64     `json:"quantity"`
	Timestamp   uint64    `json:"timestamp"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func NewTradeView(t ledger.Trade) TradeView {
	return TradeView{
		TradeID:     t.TradeID,
		Item:        t.Item,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Buyer:       t.Buyer,
		Seller:      t.Seller,
		Price:       price(t.Price),
		Quantity:    t.Quantity,
		Timestamp:   t.Timestamp,
		ExecutedAt:  t.ExecutedAt,
	}
}

func NewTradeViews(trades []ledger.Trade) []TradeView {
	out := make([]TradeView, len(trades))
	for i, t := range trades {
		out[i] = NewTradeView(t)
	}
	return out
}

// PlacementView answers buy and sell.
type PlacementView struct {
	Item    string      `json:"item"`
	Order   OrderView   `json:"order"`
	Status  string      `json:"status"`
	Trades  []TradeView `json:"trades"`
	Updated []OrderView `json:"updated"`
}

func NewPlacementView(p *exchange.Placement) PlacementView {
	return PlacementView{
		Item:    p.Item,
		Order:   NewOrderView(p.Order),
		Status:  p.Status.String(),
		Trades:  NewTradeViews(p.Trades),
		Updated: newOrderViews(p.Updated),
	}
}

type CancelView struct {
	Item      string    `json:"item"`
	OrderID   string    `json:"order_id"`
	Cancelled bool      `json:"cancelled"`
	Order     OrderView `json:"order"`
}

func NewCancelView(o orderbook.Order) CancelView {
	ov := NewOrderView(o)
	ov.Status = orderbook.Cancelled.String()
	return CancelView{Item: o.Item, OrderID: o.ID, Cancelled: true, Order: ov}
}

type StatusView struct {
	Item    string     `json:"item"`
	OrderID string     `json:"order_id"`
	Status  string     `json:"status"`
	Order   *OrderView `json:"order,omitempty"` // only while resting
}

func NewStatusView(item, orderID string, st market.OrderState) StatusView {
	v := StatusView{Item: exchange.NormalizeItem(item), OrderID: orderID, Status: st.Status.String()}
	if !st.Status.Terminal() {
		ov := NewOrderView(st.Order)
		v.Order = &ov
	}
	return v
}

type PriceView struct {
	Item  string  `json:"item"`
	Price *string `json:"price"`
}

func NewPriceView(item string, ticks int64, ok bool) PriceView {
	return PriceView{Item: exchange.NormalizeItem(item), Price: optPrice(ticks, ok)}
}

type LedgerView struct {
	Item    string      `json:"item"`
	Trades  []TradeView `json:"trades"`
	BestBid *string     `json:"best_bid"`
	BestAsk *string     `json:"best_ask"`
}

func NewLedgerView(v exchange.LedgerView) LedgerView {
	return LedgerView{
		Item:    v.Item,
		Trades:  NewTradeViews(v.Trades),
		BestBid: optPrice(v.Best.Bid, v.Best.HasBid),
		BestAsk: optPrice(v.Best.Ask, v.Best.HasAsk),
	}
}

type LevelView struct {
	Price  string `json:"price"`
	Qty    int64  `json:"qty"`
	Orders int    `json:"orders"`
}

func newLevelViews(levels []orderbook.PriceLevel) []LevelView {
	out := make([]LevelView, len(levels))
	for i, l := range levels {
		out[i] = LevelView{Price: price(l.Price), Qty: l.Qty, Orders: l.Orders}
	}
	return out
}

type ItemView struct {
	Item      string      `json:"item"`
	Bids      []OrderView `json:"bids"`
	Asks      []OrderView `json:"asks"`
	BidLevels []LevelView `json:"bid_levels"`
	AskLevels []LevelView `json:"ask_levels"`
	Trades    []TradeView `json:"trades"`
	BestBid   *string     `json:"best_bid"`
	BestAsk   *string     `json:"best_ask"`
	LastPrice *string     `json:"last_price"`
}

func NewItemView(s market.Snapshot) ItemView {
	return ItemView{
		Item:      s.Item,
		Bids:      newOrderViews(s.Bids),
		Asks:      newOrderViews(s.Asks),
		BidLevels: newLevelViews(s.BidLevels),
		AskLevels: newLevelViews(s.AskLevels),
		Trades:    NewTradeViews(s.Trades),
		BestBid:   optPrice(s.Best.Bid, s.Best.HasBid),
		BestAsk:   optPrice(s.Best.Ask, s.Best.HasAsk),
		LastPrice: optPrice(s.LastPrice, s.LastPrice > 0),
	}
}

type DumpView struct {
	Items     []ItemView `json:"items"`
	StateHash string     `json:"state_hash"`
}

func NewDumpView(d exchange.Dump) DumpView {
	v := DumpView{Items: make([]ItemView, len(d.Items)), StateHash: d.StateHash}
	for i, s := range d.Items {
		v.Items[i] = NewItemView(s)
	}
	return v
}

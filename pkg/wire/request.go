package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketcore/pkg/app/exchange"
)

// ErrSerialization matches every *SerializationError via errors.Is.
var ErrSerialization = errors.New("serialization error")

// SerializationError reports request text that could not be decoded. It is
// kept apart from exchange.ValidationError so callers can tell a corrupted
// request from one the engine refused.
type SerializationError struct {
	Msg string
	Err error
}

func (e *SerializationError) Error() string {
	if e.Err == nil {
		return "malformed request: " + e.Msg
	}
	return fmt.Sprintf("malformed request: %s: %v", e.Msg, e.Err)
}

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

func (e *SerializationError) Unwrap() error { return e.Err }

// OrderRequest is the wire form of a buy or sell request.
type OrderRequest struct {
	Item     string          `json:"item"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Trader   string          `json:"trader"`
}

// Engine converts the request for exchange.MarketEngine.Buy or Sell.
func (r OrderRequest) Engine() exchange.OrderRequest {
	return exchange.OrderRequest{
		Item:     r.Item,
		Price:    r.Price,
		Quantity: r.Quantity,
		Trader:   r.Trader,
	}
}

// Equal compares field for field; prices compare by value, so "12.50" and
// "12.5" are the same request.
func (r OrderRequest) Equal(o OrderRequest) bool {
	return r.Item == o.Item &&
		r.Price.Equal(o.Price) &&
		r.Quantity == o.Quantity &&
		r.Trader == o.Trader
}

// decodeStrict decodes exactly one JSON value into v, rejecting unknown
// fields and anything after it.
func decodeStrict(text string, v any) error {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return &SerializationError{Msg: "empty request"}
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &SerializationError{Msg: "invalid json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &SerializationError{Msg: "trailing data after request"}
	}
	return nil
}

// DecodeOrderRequest parses order request text. Only the shape is checked
// here; business rules are left to the engine. A price whose exponent is out
// of range is refused up front so nothing downstream rescales or re-encodes it.
func DecodeOrderRequest(text string) (OrderRequest, error) {
	var r OrderRequest
	if err := decodeStrict(text, &r); err != nil {
		return OrderRequest{}, err
	}
	if err := orderbook.CheckPriceExponent(r.Price); err != nil {
		return OrderRequest{}, &exchange.ValidationError{Field: "price", Reason: err.Error(), Err: err}
	}
	return r, nil
}

// EncodeOrderRequest renders the canonical text of r.
func EncodeOrderRequest(r OrderRequest) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode order request: %w", err)
	}
	return string(b), nil
}

// Op names a command.
type Op string

const (
	OpBuy               Op = "buy"
	OpSell              Op = "sell"
	OpCancelOrder       Op = "cancel_order"
	OpOrderStatus       Op = "order_status"
	OpBestBuyingPrice   Op = "get_best_buying_price"
	OpBestSellingPrice  Op = "get_best_selling_price"
	OpQueryLedger       Op = "query_ledger"
	OpDump              Op = "dump"
	OpTestSerialization Op = "test_serialization"
)

// Command is the tagged request variant. Which fields are set depends on Op.
type Command struct {
	Op      Op            `json:"op"`
	Order   *OrderRequest `json:"order,omitempty"`
	Item    string        `json:"item,omitempty"`
	OrderID string        `json:"order_id,omitempty"`
	Text    string        `json:"text,omitempty"`
}

// ParseCommand decodes a command envelope and checks that the fields its op
// needs are present.
func ParseCommand(text string) (Command, error) {
	var c Command
	if err := decodeStrict(text, &c); err != nil {
		return Command{}, err
	}
	if err := c.check(); err != nil {
		return Command{}, err
	}
	return c, nil
}

func (c Command) check() error {
	missing := func(field string) error {
		return &SerializationError{Msg: fmt.Sprintf("op %q requires %q", c.Op, field)}
	}
	switch c.Op {
	case OpBuy, OpSell:
		if c.Order == nil {
			return missing("order")
		}
	case OpCancelOrder, OpOrderStatus:
		if c.Item == "" {
			return missing("item")
		}
		if c.OrderID == "" {
			return missing("order_id")
		}
	case OpBestBuyingPrice, OpBestSellingPrice, OpQueryLedger:
		if c.Item == "" {
			return missing("item")
		}
	case OpTestSerialization:
		if c.Text == "" {
			return missing("text")
		}
	case OpDump:
	case "":
		return &SerializationError{Msg: "missing op"}
	default:
		return &SerializationError{Msg: fmt.Sprintf("unknown op %q", c.Op)}
	}
	return nil
}

// EncodeCommand renders c as text.
func EncodeCommand(c Command) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode command: %w", err)
	}
	return string(b), nil
}

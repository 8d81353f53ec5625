package exchange

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketcore/pkg/app/core/orderbook"
)

const (
	maxIdentLen = 64
	// MaxQuantity keeps quantities within the unsigned 32-bit range clients use.
	MaxQuantity = 1<<32 - 1
)

// OrderRequest is a typed, not yet validated buy or sell request. The side
// comes from the call (Buy or Sell), not from the request.
type OrderRequest struct {
	Item     string
	Price    decimal.Decimal
	Quantity int64
	Trader   string
}

// NormalizeItem maps an item identifier to its registry key. Items are case
// insensitive: " corn" and "CORN" name the same market.
func NormalizeItem(item string) string {
	return strings.ToUpper(strings.TrimSpace(item))
}

func checkIdent(field, v string) error {
	switch {
	case v == "":
		return invalid(field, "required")
	case utf8.RuneCountInString(v) > maxIdentLen:
		return invalid(field, "longer than 64 characters")
	}
	for _, r := range v {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return invalid(field, "must not contain whitespace or control characters")
		}
	}
	return nil
}

// validated is an OrderRequest that passed every check.
type validated struct {
	item   string
	trader string
	price  int64
	qty    int64
}

func validate(req OrderRequest) (validated, error) {
	v := validated{
		item:   NormalizeItem(req.Item),
		trader: strings.TrimSpace(req.Trader),
		qty:    req.Quantity,
	}
	if err := checkIdent("item", v.item); err != nil {
		return validated{}, err
	}
	if err := checkIdent("trader", v.trader); err != nil {
		return validated{}, err
	}
	if v.qty <= 0 {
		return validated{}, invalid("quantity", "must be positive")
	}
	if v.qty > MaxQuantity {
		return validated{}, invalid("quantity", "exceeds maximum")
	}
	price, err := orderbook.TicksFromDecimal(req.Price)
	if err != nil {
		return validated{}, &ValidationError{Field: "price", Reason: err.Error(), Err: err}
	}
	v.price = price
	return v, nil
}

package orderbook

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits a price tick carries.
// 1 tick = 0.0001.
const PriceScale = 4

// MaxPrice is the largest accepted price. In ticks it is 1e13, which fits
// int64 on its own; price*quantity does not and is never computed.
var MaxPrice = decimal.New(1, 9) // 1e9

// maxPriceExponent is the exponent of MaxPrice. Any positive decimal with a
// larger exponent exceeds it.
const maxPriceExponent = 9

var (
	ErrPriceNotPositive = errors.New("price must be positive")
	ErrPricePrecision   = errors.New("price has more than 4 decimal places")
	ErrPriceTooLarge    = errors.New("price exceeds maximum")
)

// TicksFromDecimal converts d to integer ticks. It never rounds: a price that
// is not an exact multiple of one tick is rejected.
func TicksFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrPriceNotPositive
	}
	if err := CheckPriceExponent(d); err != nil {
		return 0, err
	}
	if d.GreaterThan(MaxPrice) {
		return 0, ErrPriceTooLarge
	}
	scaled := d.Shift(PriceScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrPricePrecision
	}
	return scaled.IntPart(), nil
}

// CheckPriceExponent rejects a positive price whose exponent alone rules it
// out. It only inspects the exponent and the coefficient's bit length, so it
// stays cheap for inputs like "1e-50000000" that would otherwise rescale into
// enormous powers of ten.
func CheckPriceExponent(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp > maxPriceExponent {
		return ErrPriceTooLarge
	}
	if exp < -PriceScale {
		// coefficient*10^exp is a whole number of ticks only if the
		// coefficient is divisible by 10^(-exp-PriceScale), which needs at
		// least that many digits.
		maxDigits := int64(d.Coefficient().BitLen())*31/100 + 1
		if -exp-PriceScale > maxDigits {
			return ErrPricePrecision
		}
	}
	return nil
}

// DecimalFromTicks converts integer ticks back to a decimal price.
func DecimalFromTicks(ticks int64) decimal.Decimal {
	return decimal.New(ticks, -PriceScale)
}

// FormatTicks renders ticks in their shortest decimal form ("12.5", "100").
func FormatTicks(ticks int64) string {
	return DecimalFromTicks(ticks).String()
}

package exchange

import (
	"errors"
	"fmt"

	"github.com/uhyunpark/marketcore/pkg/app/core/market"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned for unknown items and for order ids that are
	// not resting. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("order not found")
	// ErrSelfMatch is wrapped in a *ValidationError when the self-match
	// policy rejects an order.
	ErrSelfMatch = market.ErrSelfMatch
)

// ValidationError reports a request that was rejected before any state changed.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

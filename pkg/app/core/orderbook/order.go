package orderbook

import "fmt"

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side { return -s }

// Status is the lifecycle state of an order.
type Status int8

const (
	Resting Status = iota + 1
	PartiallyFilled
	Filled
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Resting:
		return "RESTING"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == Filled || s == Cancelled }

type Order struct {
	ID        string
	Item      string
	Side      Side
	Price     int64 // fixed-point ticks, see PriceScale
	Quantity  int64 // original quantity
	Remaining int64 // unfilled
	Trader    string
	Timestamp uint64 // engine sequence, tie-break within a level
}

// Filled returns the quantity executed so far.
func (o *Order) Filled() int64 { return o.Quantity - o.Remaining }

// Status derives the live status of an order that has not been cancelled.
func (o *Order) Status() Status {
	switch {
	case o.Remaining == 0:
		return Filled
	case o.Remaining < o.Quantity:
		return PartiallyFilled
	default:
		return Resting
	}
}

// Fill is one execution between a taker and a resting maker, priced at the maker.
type Fill struct {
	TakerID string
	MakerID string
	Buyer   string // trader on the buy side
	Seller  string
	BuyID   string
	SellID  string
	Price   int64
	Qty     int64
}

type PriceLevel struct {
	Price  int64
	Qty    int64 // total remaining qty at this price level
	Orders int
}

// MatchResult is what Submit produced for one incoming order.
type MatchResult struct {
	Fills   []Fill
	Status  Status  // Resting, PartiallyFilled (and resting) or Filled
	Order   Order   // incoming order after matching
	Updated []Order // makers touched, post-fill
}

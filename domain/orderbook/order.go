package orderbook

import "github.com/shopspring/decimal"

type Side byte

const (
	Buy  Side = 'B'
	Sell Side = 'S'
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// PriceScale is the number of implied decimal digits in feed prices.
const PriceScale = 4

// Order is a resting order as last seen on the feed.
type Order struct {
	Ref    uint64
	Side   Side
	Shares uint32
	Stock  string
	Price  uint32 // 4 implied decimals
}

// PriceDecimal returns the price with its implied decimals applied.
func (o Order) PriceDecimal() decimal.Decimal {
	return decimal.New(int64(o.Price), -PriceScale)
}

package vwap

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Line is the aggregate of one instrument in a report.
type Line struct {
	Stock    string
	Shares   uint64
	Notional decimal.Decimal // sum of shares*price, price still carrying 4 implied decimals
	VWAP     decimal.Decimal
}

// Text renders the line as "<symbol>: <vwap>".
func (l Line) Text() string {
	return l.Stock + ": " + l.VWAP.String()
}

// Report is the output of one hour roll.
type Report struct {
	Hour      uint64
	Timestamp uint64 // feed time of the message that triggered the roll
	Boundary  uint64 // session start + Hour hours
	Mode      Mode
	Lines     []Line
}

// Header renders the section title of the report.
func (r Report) Header() string {
	return "TRADING HOUR: " + strconv.FormatUint(r.Hour, 10)
}

// Find returns the line for stock.
func (r Report) Find(stock string) (Line, bool) {
	for _, l := range r.Lines {
		if l.Stock == stock {
			return l, true
		}
	}
	return Line{}, false
}

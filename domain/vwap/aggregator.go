// Package vwap aggregates booked executions into per-instrument volume
// weighted average prices, one report per elapsed trading hour.
package vwap

import (
	"fmt"

	"github.com/shopspring/decimal"

	"itchvwap/domain/execution"
	"itchvwap/domain/orderbook"
	"itchvwap/domain/session"
)

type Mode string

const (
	// Cumulative reports cover every execution booked so far.
	Cumulative Mode = "cumulative"
	// Windowed reports cover only executions first seen since the previous report.
	Windowed Mode = "window"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Cumulative:
		return Cumulative, nil
	case Windowed:
		return Windowed, nil
	default:
		return "", fmt.Errorf("unknown vwap mode %q", s)
	}
}

const DefaultPrecision int32 = 8

type Option func(*Aggregator)

func WithMode(m Mode) Option {
	return func(a *Aggregator) { a.mode = m }
}

// WithPrecision sets the number of decimal places VWAP values are rounded to.
func WithPrecision(p int32) Option {
	return func(a *Aggregator) {
		if p >= 0 {
			a.precision = p
		}
	}
}

type Aggregator struct {
	window    *session.Window
	tracker   *execution.Tracker
	mode      Mode
	precision int32

	hour uint64
	mark int // tracker position covered by the previous windowed report
}

func NewAggregator(window *session.Window, tracker *execution.Tracker, opts ...Option) *Aggregator {
	a := &Aggregator{
		window:    window,
		tracker:   tracker,
		mode:      Cumulative,
		precision: DefaultPrecision,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Mode() Mode   { return a.mode }
func (a *Aggregator) Hour() uint64 { return a.hour }

// SessionStarted opens the session at ts and restarts hour numbering.
func (a *Aggregator) SessionStarted(ts uint64) {
	a.window.Start = ts
	a.hour = 0
	a.mark = a.tracker.Len()
}

func (a *Aggregator) SessionEnded(ts uint64) {
	a.window.End = ts
}

// Roll emits one report for every hour boundary ts has moved past. A gap in
// the feed spanning several hours yields several reports, the later ones
// empty in windowed mode.
func (a *Aggregator) Roll(ts uint64) []Report {
	if !a.window.Started() {
		return nil
	}
	var out []Report
	for ts > a.window.HourBoundary(a.hour+1) {
		a.hour++
		out = append(out, a.Report(ts))
		a.mark = a.tracker.Len()
	}
	return out
}

// Report aggregates the tracker for the current hour index. It does not
// advance the windowed-mode position, so it is safe for ad hoc snapshots.
func (a *Aggregator) Report(ts uint64) Report {
	from := 0
	if a.mode == Windowed {
		from = a.mark
	}

	var lines []Line
	index := make(map[string]int)
	a.tracker.Range(from, func(e execution.Execution) {
		if e.Broken {
			return
		}
		i, ok := index[e.Stock]
		if !ok {
			i = len(lines)
			index[e.Stock] = i
			lines = append(lines, Line{Stock: e.Stock, Notional: decimal.Zero})
		}
		l := &lines[i]
		l.Shares += uint64(e.Shares)
		l.Notional = l.Notional.Add(decimal.NewFromInt(int64(e.Shares)).Mul(decimal.NewFromInt(int64(e.Price))))
	})
	for i := range lines {
		lines[i].VWAP = a.price(lines[i])
	}
	return Report{
		Hour:      a.hour,
		Timestamp: ts,
		Boundary:  a.window.HourBoundary(a.hour),
		Mode:      a.mode,
		Lines:     lines,
	}
}

func (a *Aggregator) price(l Line) decimal.Decimal {
	if l.Shares == 0 {
		return decimal.Zero
	}
	// notional / (shares * 10^4)
	return l.Notional.DivRound(decimal.New(int64(l.Shares), orderbook.PriceScale), a.precision)
}

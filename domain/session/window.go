// Package session tracks the trading-session bounds announced by system
// events. Timestamps are nanoseconds since midnight; zero means unset.
package session

import (
	"fmt"
	"time"
)

// Window is the [Start, End) session range.
type Window struct {
	Start uint64
	End   uint64
}

// Contains reports whether ts lies inside the session. An unset End does
// not bound the range, so every ts >= Start qualifies until it arrives.
func (w *Window) Contains(ts uint64) bool {
	if ts < w.Start {
		return false
	}
	return w.End == 0 || ts < w.End
}

// Started reports whether the start marker has been seen.
func (w *Window) Started() bool {
	return w.Start != 0
}

// Ended reports whether ts is at or past a known session end.
func (w *Window) Ended(ts uint64) bool {
	return w.End != 0 && ts >= w.End
}

// HourBoundary returns Start + n hours.
func (w *Window) HourBoundary(n uint64) uint64 {
	return w.Start + n*uint64(time.Hour)
}

// Clock renders ts as a wall-clock offset (e.g. 09:30:00.000000000).
func Clock(ts uint64) string {
	d := time.Duration(ts)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	ns := d % time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%09d", int64(h), int64(m), int64(sec), int64(ns))
}

package vwap

import (
	"testing"
	"time"

	"itchvwap/domain/execution"
	"itchvwap/domain/orderbook"
	"itchvwap/domain/session"
)

const hour = uint64(time.Hour)

func newAggregator(opts ...Option) (*session.Window, *execution.Tracker, *Aggregator) {
	w := &session.Window{}
	tr := execution.NewTracker(orderbook.NewOrderBook(w), w)
	return w, tr, NewAggregator(w, tr, opts...)
}

func TestReport_VWAP(t *testing.T) {
	_, tr, agg := newAggregator()
	tr.ApplyTrade(0, 100, "ABC", 25000, 1, 0)
	tr.ApplyTrade(0, 200, "ABC", 30000, 2, 0)

	r := agg.Report(0)
	l, ok := r.Find("ABC")
	if !ok {
		t.Fatal("expected line for ABC")
	}
	if l.Shares != 300 {
		t.Fatalf("expected 300 shares, got %d", l.Shares)
	}
	if got := l.VWAP.String(); got != "2.83333333" {
		t.Fatalf("expected 2.83333333, got %s", got)
	}
	if got := l.Text(); got != "ABC: 2.83333333" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestReport_Precision(t *testing.T) {
	_, tr, agg := newAggregator(WithPrecision(2))
	tr.ApplyTrade(0, 100, "ABC", 25000, 1, 0)
	tr.ApplyTrade(0, 200, "ABC", 30000, 2, 0)

	l, _ := agg.Report(0).Find("ABC")
	if got := l.VWAP.String(); got != "2.83" {
		t.Fatalf("expected 2.83, got %s", got)
	}
}

func TestReport_ZeroVolume(t *testing.T) {
	_, tr, agg := newAggregator()
	tr.ApplyTrade(0, 0, "ZZZ", 25000, 1, 0)

	l, _ := agg.Report(0).Find("ZZZ")
	if got := l.Text(); got != "ZZZ: 0" {
		t.Fatalf("expected zero vwap, got %q", got)
	}
}

func TestReport_FirstSeenOrderAndBrokenSkipped(t *testing.T) {
	_, tr, agg := newAggregator()
	tr.ApplyTrade(0, 10, "ZZZ", 10000, 1, 0)
	tr.ApplyTrade(0, 10, "AAA", 20000, 2, 0)
	tr.ApplyTrade(0, 10, "ZZZ", 30000, 3, 0)
	tr.ApplyBrokenTrade(3, 0)

	r := agg.Report(0)
	if len(r.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", r.Lines)
	}
	if r.Lines[0].Stock != "ZZZ" || r.Lines[1].Stock != "AAA" {
		t.Fatalf("expected first-seen order, got %s, %s", r.Lines[0].Stock, r.Lines[1].Stock)
	}
	if got := r.Lines[0].VWAP.String(); got != "1" {
		t.Fatalf("broken trade must not contribute, got %s", got)
	}
}

func TestRoll_NotStarted(t *testing.T) {
	_, _, agg := newAggregator()
	if got := agg.Roll(10 * hour); got != nil {
		t.Fatalf("expected no reports before session start, got %d", len(got))
	}
}

func TestRoll_HourBoundaries(t *testing.T) {
	start := 9*hour + 30*uint64(time.Minute)
	_, tr, agg := newAggregator()
	agg.SessionStarted(start)

	tr.ApplyTrade(0, 1, "ABC", 10000, 1, start+1)
	if got := agg.Roll(start + hour); len(got) != 0 {
		t.Fatal("boundary itself must not roll")
	}

	got := agg.Roll(start + hour + 1)
	if len(got) != 1 || got[0].Hour != 1 {
		t.Fatalf("expected one report for hour 1, got %+v", got)
	}
	if got[0].Boundary != start+hour {
		t.Fatalf("unexpected boundary %d", got[0].Boundary)
	}
	if got[0].Header() != "TRADING HOUR: 1" {
		t.Fatalf("unexpected header %q", got[0].Header())
	}
}

func TestRoll_CatchUp(t *testing.T) {
	start := hour
	_, _, agg := newAggregator()
	agg.SessionStarted(start)

	got := agg.Roll(start + 3*hour + 5)
	if len(got) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(got))
	}
	for i, r := range got {
		if r.Hour != uint64(i+1) {
			t.Fatalf("report %d has hour %d", i, r.Hour)
		}
	}
	if agg.Hour() != 3 {
		t.Fatalf("expected hour 3, got %d", agg.Hour())
	}
}

func TestRoll_CumulativeVsWindowed(t *testing.T) {
	for _, tc := range []struct {
		mode   Mode
		shares uint64
	}{
		{Cumulative, 30},
		{Windowed, 20},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			start := hour
			_, tr, agg := newAggregator(WithMode(tc.mode))
			agg.SessionStarted(start)

			tr.ApplyTrade(0, 10, "ABC", 10000, 1, start+1)
			agg.Roll(start + hour + 1)

			tr.ApplyTrade(0, 20, "ABC", 10000, 2, start+hour+2)
			got := agg.Roll(start + 2*hour + 1)
			if len(got) != 1 {
				t.Fatalf("expected 1 report, got %d", len(got))
			}
			l, _ := got[0].Find("ABC")
			if l.Shares != tc.shares {
				t.Fatalf("expected %d shares, got %d", tc.shares, l.Shares)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != Cumulative {
		t.Fatalf("empty mode must default to cumulative, got %q %v", m, err)
	}
	if m, err := ParseMode("window"); err != nil || m != Windowed {
		t.Fatalf("expected windowed, got %q %v", m, err)
	}
	if _, err := ParseMode("hourly"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

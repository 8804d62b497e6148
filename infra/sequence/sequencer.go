// Package sequence hands out the outbox sequence numbers for reports.
package sequence

import "sync/atomic"

// Sequencer issues strictly increasing ids. Safe for concurrent use.
type Sequencer struct {
	last atomic.Uint64
}

// New returns a sequencer whose first id is last+1. Pass 0 on a fresh
// outbox and the highest stored id when resuming.
func New(last uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(last)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last id handed out.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Resume moves the sequencer forward to v. It never moves backwards.
func (s *Sequencer) Resume(v uint64) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}

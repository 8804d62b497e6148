// Package execution records trades keyed by match number, resolving
// stock and price against the order book where the feed omits them.
package execution

import (
	"itchvwap/domain/itch"
	"itchvwap/domain/orderbook"
	"itchvwap/domain/session"
)

// Execution is a booked trade. Broken entries are zeroed sentinels left in
// place of a trade the exchange has busted.
type Execution struct {
	Ref    uint64
	Shares uint32
	Match  uint64
	Stock  string
	Price  uint32
	Broken bool
}

// Tracker is single-writer. Entries keep the position of their first
// appearance, so iteration is in first-seen match order.
type Tracker struct {
	book   *orderbook.OrderBook
	window *session.Window

	index map[uint64]int // match -> position in entries
	entry []Execution
}

func NewTracker(book *orderbook.OrderBook, window *session.Window) *Tracker {
	if window == nil {
		window = &session.Window{}
	}
	return &Tracker{
		book:   book,
		window: window,
		index:  make(map[uint64]int, 1<<16),
	}
}

// ApplyExecution books an order-executed message at the order's resting price.
func (t *Tracker) ApplyExecution(ref uint64, shares uint32, match uint64, ts uint64) (bool, error) {
	if !t.window.Contains(ts) {
		return false, nil
	}
	o, ok := t.book.Lookup(ref)
	if !ok {
		return false, &orderbook.UnresolvedReferenceError{Ref: ref, Tag: itch.TagOrderExecuted}
	}
	t.put(Execution{Ref: ref, Shares: shares, Match: match, Stock: o.Stock, Price: o.Price})
	return true, nil
}

// ApplyExecutionWithPrice books at the message price, and only when the
// execution is printable. Non-printable executions are dropped.
func (t *Tracker) ApplyExecutionWithPrice(ref uint64, shares uint32, match uint64, printable byte, price uint32, ts uint64) (bool, error) {
	if !t.window.Contains(ts) || printable != itch.Printable {
		return false, nil
	}
	o, ok := t.book.Lookup(ref)
	if !ok {
		return false, &orderbook.UnresolvedReferenceError{Ref: ref, Tag: itch.TagOrderExecutedPrice}
	}
	t.put(Execution{Ref: ref, Shares: shares, Match: match, Stock: o.Stock, Price: price})
	return true, nil
}

// ApplyTrade books a non-cross trade from its inline fields.
//
// NOTE: unlike every other message this one is not gated by the session
// window, so pre- and post-market non-cross trades are booked too.
func (t *Tracker) ApplyTrade(ref uint64, shares uint32, stock string, price uint32, match uint64, _ uint64) {
	t.put(Execution{Ref: ref, Shares: shares, Match: match, Stock: stock, Price: price})
}

// ApplyBrokenTrade replaces match with a zeroed sentinel. The key is kept.
func (t *Tracker) ApplyBrokenTrade(match uint64, _ uint64) {
	t.put(Execution{Match: match, Broken: true})
}

func (t *Tracker) put(e Execution) {
	if i, ok := t.index[e.Match]; ok {
		t.entry[i] = e
		return
	}
	t.index[e.Match] = len(t.entry)
	t.entry = append(t.entry, e)
}

// Get returns the entry booked under match.
func (t *Tracker) Get(match uint64) (Execution, bool) {
	i, ok := t.index[match]
	if !ok {
		return Execution{}, false
	}
	return t.entry[i], true
}

// Len is the number of distinct match numbers seen.
func (t *Tracker) Len() int {
	return len(t.entry)
}

// Range calls fn for every entry from position from onwards, in first-seen order.
func (t *Tracker) Range(from int, fn func(Execution)) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(t.entry); i++ {
		fn(t.entry[i])
	}
}

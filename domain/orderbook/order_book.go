package orderbook

import "itchvwap/domain/session"

// OrderBook maps order references to their attributes.
// It is single-writer; orders are never removed for the life of a run,
// Delete and Cancel messages leave it untouched.
type OrderBook struct {
	window *session.Window
	orders map[uint64]Order
}

func NewOrderBook(window *session.Window) *OrderBook {
	if window == nil {
		window = &session.Window{}
	}
	return &OrderBook{
		window: window,
		orders: make(map[uint64]Order, 1<<16),
	}
}

// ApplyAdd stores the order when ts lies in the session window.
// It reports whether the order was stored.
func (b *OrderBook) ApplyAdd(ref uint64, side Side, shares uint32, stock string, price uint32, ts uint64) bool {
	if !b.window.Contains(ts) {
		return false
	}
	b.orders[ref] = Order{
		Ref:    ref,
		Side:   side,
		Shares: shares,
		Stock:  stock,
		Price:  price,
	}
	return true
}

// ApplyReplace stores newRef with the side and stock of oldRef and the new
// shares and price. oldRef stays resolvable.
func (b *OrderBook) ApplyReplace(oldRef, newRef uint64, shares, price uint32, ts uint64) (bool, error) {
	if !b.window.Contains(ts) {
		return false, nil
	}
	old, ok := b.orders[oldRef]
	if !ok {
		return false, &UnresolvedReferenceError{Ref: oldRef, Tag: 'U'}
	}
	b.orders[newRef] = Order{
		Ref:    newRef,
		Side:   old.Side,
		Shares: shares,
		Stock:  old.Stock,
		Price:  price,
	}
	return true, nil
}

// Lookup returns the order stored under ref.
func (b *OrderBook) Lookup(ref uint64) (Order, bool) {
	o, ok := b.orders[ref]
	return o, ok
}

// Resolve is Lookup that fails with UnresolvedReferenceError.
func (b *OrderBook) Resolve(ref uint64) (Order, error) {
	o, ok := b.orders[ref]
	if !ok {
		return Order{}, &UnresolvedReferenceError{Ref: ref}
	}
	return o, nil
}

func (b *OrderBook) Len() int {
	return len(b.orders)
}

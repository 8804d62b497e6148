package orderbook

import "fmt"

// UnresolvedReferenceError is returned when a message names an order
// reference the book has never stored.
type UnresolvedReferenceError struct {
	Ref uint64
	Tag byte
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("orderbook: %q references unknown order %d", e.Tag, e.Ref)
	}
	return fmt.Sprintf("orderbook: unknown order reference %d", e.Ref)
}

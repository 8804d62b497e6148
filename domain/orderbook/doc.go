// Package orderbook keeps the order attributes later executions resolve
// against: side, shares, stock and resting price per order reference.
package orderbook

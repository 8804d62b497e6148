// Package service drives a feed through the trackers: the order book,
// the execution tracker and the VWAP aggregator, in that order.
//
// It owns the session window and is the only writer of tracker state.
// Reports leave through a Sink, which keeps transports out of the core.
package service

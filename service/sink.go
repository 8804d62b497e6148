package service

import (
	"context"

	"itchvwap/domain/vwap"
)

// Sink receives every report the aggregator emits, in order.
type Sink interface {
	Publish(ctx context.Context, r vwap.Report) error
	Close() error
}

// SessionSink is a Sink that also wants the session boundaries.
type SessionSink interface {
	Sink
	SessionStarted(ctx context.Context, ts uint64) error
	SessionEnded(ctx context.Context, ts uint64) error
}

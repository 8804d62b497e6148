package sink

import (
	"context"

	"go.uber.org/zap"

	"itchvwap/domain/vwap"
)

// BestEffort wraps an optional transport. Publish and session failures are
// logged and swallowed so a broker outage never aborts feed processing;
// only the report file is load-bearing.
type BestEffort struct {
	name   string
	sink   Sink
	logger *zap.Logger
	failed uint64
}

func NewBestEffort(name string, s Sink, logger *zap.Logger) *BestEffort {
	return &BestEffort{name: name, sink: s, logger: logger.Named("sink").With(zap.String("sink", name))}
}

// Failures returns how many calls failed so far.
func (b *BestEffort) Failures() uint64 { return b.failed }

func (b *BestEffort) Publish(ctx context.Context, r vwap.Report) error {
	if err := b.sink.Publish(ctx, r); err != nil {
		b.failed++
		b.logger.Warn("publish failed", zap.Uint64("hour", r.Hour), zap.Error(err))
	}
	return nil
}

func (b *BestEffort) SessionStarted(ctx context.Context, ts uint64) error {
	if sa, ok := b.sink.(sessionAware); ok {
		if err := sa.SessionStarted(ctx, ts); err != nil {
			b.failed++
			b.logger.Warn("session start failed", zap.Uint64("ts", ts), zap.Error(err))
		}
	}
	return nil
}

func (b *BestEffort) SessionEnded(ctx context.Context, ts uint64) error {
	if sa, ok := b.sink.(sessionAware); ok {
		if err := sa.SessionEnded(ctx, ts); err != nil {
			b.failed++
			b.logger.Warn("session end failed", zap.Uint64("ts", ts), zap.Error(err))
		}
	}
	return nil
}

func (b *BestEffort) Close() error {
	return b.sink.Close()
}

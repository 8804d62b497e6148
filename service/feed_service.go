package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"itchvwap/domain/execution"
	"itchvwap/domain/itch"
	"itchvwap/domain/orderbook"
	"itchvwap/domain/session"
	"itchvwap/domain/vwap"
)

/*
FeedService is the ONLY writer of tracker state.

Every decoded message passes through Apply:
- orders and executions mutate the trackers
- system events move the session window
- the aggregator rolls and reports go to the sink

Single-threaded. Nothing else may touch the trackers while a run is active.
*/

type FeedService struct {
	window  *session.Window
	book    *orderbook.OrderBook
	tracker *execution.Tracker
	agg     *vwap.Aggregator
	sink    Sink
	logger  *zap.Logger

	stats counters
}

// NewFeedService wires a fresh session. Trackers share one window.
func NewFeedService(sink Sink, logger *zap.Logger, opts ...vwap.Option) *FeedService {
	window := &session.Window{}
	book := orderbook.NewOrderBook(window)
	tracker := execution.NewTracker(book, window)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &FeedService{
		window:  window,
		book:    book,
		tracker: tracker,
		agg:     vwap.NewAggregator(window, tracker, opts...),
		sink:    sink,
		logger:  logger,
	}
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Run decodes and applies messages until the feed ends, the session end is
// reached, ctx is cancelled or a message fails.
func (s *FeedService) Run(ctx context.Context, dec *itch.Decoder) error {
	s.logger.Info("feed started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			s.logger.Info("feed exhausted", zap.Uint64("messages", s.stats.messages))
			return nil
		}
		if err != nil {
			return fmt.Errorf("message %d: %w", dec.Count()+1, err)
		}

		stop, err := s.Apply(ctx, msg)
		if err != nil {
			return fmt.Errorf("message %d (%q): %w", dec.Count(), msg.Type(), err)
		}
		if stop {
			s.logger.Info("session ended",
				zap.Uint64("messages", s.stats.messages),
				zap.String("at", session.Clock(msg.Time())),
			)
			return nil
		}
	}
}

// Apply mutates state for one message and reports whether the run must stop.
func (s *FeedService) Apply(ctx context.Context, msg itch.Message) (bool, error) {
	s.stats.observe(msg)
	ts := msg.Time()

	if err := s.dispatch(ctx, msg); err != nil {
		return false, err
	}

	for _, r := range s.agg.Roll(ts) {
		s.stats.reports++
		s.logger.Debug("hour rolled",
			zap.Uint64("hour", r.Hour),
			zap.Int("instruments", len(r.Lines)),
		)
		if err := s.sink.Publish(ctx, r); err != nil {
			return false, fmt.Errorf("publish hour %d: %w", r.Hour, err)
		}
	}

	if s.window.Ended(ts) {
		s.stats.stopped = true
		return true, nil
	}
	return false, nil
}

func (s *FeedService) dispatch(ctx context.Context, msg itch.Message) error {
	switch m := msg.(type) {
	case *itch.SystemEvent:
		return s.systemEvent(ctx, m)

	case *itch.AddOrder:
		s.book.ApplyAdd(m.Ref, orderbook.Side(m.Side), m.Shares, m.Stock, m.Price, m.Timestamp)

	case *itch.OrderReplace:
		_, err := s.book.ApplyReplace(m.OldRef, m.NewRef, m.Shares, m.Price, m.Timestamp)
		return err

	case *itch.OrderExecuted:
		_, err := s.tracker.ApplyExecution(m.Ref, m.Shares, m.Match, m.Timestamp)
		return err

	case *itch.OrderExecutedWithPrice:
		_, err := s.tracker.ApplyExecutionWithPrice(m.Ref, m.Shares, m.Match, m.Printable, m.Price, m.Timestamp)
		return err

	case *itch.Trade:
		s.tracker.ApplyTrade(m.Ref, m.Shares, m.Stock, m.Price, m.Match, m.Timestamp)

	case *itch.BrokenTrade:
		s.tracker.ApplyBrokenTrade(m.Match, m.Timestamp)

	case *itch.OrderCancel, *itch.OrderDelete:
		// Orders never leave the book. Only executed orders matter for VWAP.

	case *itch.Informational:
	}
	return nil
}

func (s *FeedService) systemEvent(ctx context.Context, m *itch.SystemEvent) error {
	switch m.EventCode {
	case itch.EventStartOfMarketHours:
		s.agg.SessionStarted(m.Timestamp)
		s.logger.Info("start of trading hours",
			zap.Uint64("timestamp", m.Timestamp),
			zap.String("clock", session.Clock(m.Timestamp)),
		)
		if ss, ok := s.sink.(SessionSink); ok {
			if err := ss.SessionStarted(ctx, m.Timestamp); err != nil {
				return fmt.Errorf("session start: %w", err)
			}
		}

	case itch.EventEndOfMarketHours:
		s.agg.SessionEnded(m.Timestamp)
		s.logger.Info("end of trading hours",
			zap.Uint64("timestamp", m.Timestamp),
			zap.String("clock", session.Clock(m.Timestamp)),
		)
		if ss, ok := s.sink.(SessionSink); ok {
			if err := ss.SessionEnded(ctx, m.Timestamp); err != nil {
				return fmt.Errorf("session end: %w", err)
			}
		}
	}
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *FeedService) Stats() Stats {
	return Stats{
		Messages:   s.stats.messages,
		ByTag:      s.stats.tags(),
		Orders:     s.book.Len(),
		Executions: s.tracker.Len(),
		Reports:    s.stats.reports,
		Hour:       s.agg.Hour(),
		LastTime:   s.stats.last,
		Stopped:    s.stats.stopped,
	}
}

func (s *FeedService) Window() session.Window {
	return *s.window
}

// Order returns the book entry for ref.
func (s *FeedService) Order(ref uint64) (orderbook.Order, bool) {
	return s.book.Lookup(ref)
}

// Execution returns the tracker entry for match.
func (s *FeedService) Execution(match uint64) (execution.Execution, bool) {
	return s.tracker.Get(match)
}

// Snapshot aggregates the current tracker contents without rolling the hour.
func (s *FeedService) Snapshot() vwap.Report {
	return s.agg.Report(s.stats.last)
}

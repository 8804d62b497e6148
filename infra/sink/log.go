package sink

import (
	"context"

	"go.uber.org/zap"

	"itchvwap/domain/session"
	"itchvwap/domain/vwap"
)

// Log echoes the report to the console through zap.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("report")}
}

func (s *Log) SessionStarted(_ context.Context, ts uint64) error {
	s.logger.Info(StartLine(ts), zap.String("clock", session.Clock(ts)))
	return nil
}

func (s *Log) SessionEnded(_ context.Context, ts uint64) error {
	s.logger.Info(EndLine(ts), zap.String("clock", session.Clock(ts)))
	return nil
}

func (s *Log) Publish(_ context.Context, r vwap.Report) error {
	lines := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, l.Text())
	}
	s.logger.Info(r.Header(),
		zap.Uint64("hour", r.Hour),
		zap.String("clock", session.Clock(r.Timestamp)),
		zap.Strings("vwap", lines),
	)
	return nil
}

func (s *Log) Close() error {
	_ = s.logger.Sync()
	return nil
}

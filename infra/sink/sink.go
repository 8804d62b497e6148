// Package sink holds the report sinks that live in-process: the report
// file, the console echo and the fan-out that combines sinks.
package sink

import (
	"context"
	"errors"

	"itchvwap/domain/vwap"
)

type Sink interface {
	Publish(ctx context.Context, r vwap.Report) error
	Close() error
}

type sessionAware interface {
	SessionStarted(ctx context.Context, ts uint64) error
	SessionEnded(ctx context.Context, ts uint64) error
}

// Multi forwards to every sink in order. The first failure stops the fan-out.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Add(s Sink) {
	if s != nil {
		m.sinks = append(m.sinks, s)
	}
}

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Publish(ctx context.Context, r vwap.Report) error {
	for _, s := range m.sinks {
		if err := s.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) SessionStarted(ctx context.Context, ts uint64) error {
	for _, s := range m.sinks {
		if sa, ok := s.(sessionAware); ok {
			if err := sa.SessionStarted(ctx, ts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Multi) SessionEnded(ctx context.Context, ts uint64) error {
	for _, s := range m.sinks {
		if sa, ok := s.(sessionAware); ok {
			if err := sa.SessionEnded(ctx, ts); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink, including those after a failing one.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

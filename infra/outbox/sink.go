package outbox

import (
	"context"
	"fmt"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
	"itchvwap/infra/sequence"
)

// Sink appends every report to the outbox as a NEW record.
// Delivery is the broadcaster's job.
type Sink struct {
	outbox *Outbox
	seq    *sequence.Sequencer
	codec  codec.Codec
	runID  string
}

func NewSink(o *Outbox, seq *sequence.Sequencer, c codec.Codec, runID string) *Sink {
	return &Sink{outbox: o, seq: seq, codec: c, runID: runID}
}

func (s *Sink) Publish(_ context.Context, r vwap.Report) error {
	id := s.seq.Next()
	payload, err := s.codec.Encode(codec.FromReport(s.runID, id, r))
	if err != nil {
		return fmt.Errorf("encode hour %d: %w", r.Hour, err)
	}
	if err := s.outbox.Append(id, payload); err != nil {
		return fmt.Errorf("outbox append %d: %w", id, err)
	}
	return nil
}

// Close is a no-op; the outbox outlives the sink for the final drain.
func (s *Sink) Close() error {
	return nil
}

package service

import (
	"fmt"

	"go.uber.org/zap"

	"itchvwap/infra/outbox"
	"itchvwap/infra/sequence"
)

/*
ResumeFromOutbox positions the sequencer after the last stored report.

IMPORTANT:
- This MUST run before the first report is appended
- Tracker state is NOT restored; every run rebuilds it from the feed
- Records left in SENT by a crash are pending; the broadcaster redelivers them
*/

func ResumeFromOutbox(ob *outbox.Outbox, seqGen *sequence.Sequencer, logger *zap.Logger) error {
	lastSeq, err := ob.LastSeq()
	if err != nil {
		return fmt.Errorf("outbox resume: %w", err)
	}
	seqGen.Resume(lastSeq)

	counts, err := ob.Counts()
	if err != nil {
		return fmt.Errorf("outbox resume: %w", err)
	}
	logger.Info("outbox resumed",
		zap.Uint64("last_seq", lastSeq),
		zap.Int("pending", counts[outbox.StateNew]+counts[outbox.StateFailed]+counts[outbox.StateSent]),
		zap.Int("interrupted", counts[outbox.StateSent]),
		zap.Int("acked", counts[outbox.StateAcked]),
	)
	return nil
}

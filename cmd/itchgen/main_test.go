package main

import (
	"bytes"
	"context"
	"testing"

	"go.uber.org/zap"

	"itchvwap/domain/itch"
	"itchvwap/domain/vwap"
	"itchvwap/service"
)

type collectSink struct {
	reports []vwap.Report
}

func (c *collectSink) Publish(_ context.Context, r vwap.Report) error {
	c.reports = append(c.reports, r)
	return nil
}

func (c *collectSink) Close() error { return nil }

func TestGenerate_ProcessesEndToEnd(t *testing.T) {
	for _, cancelLen := range []int{18, 22} {
		var buf bytes.Buffer
		opt := options{symbols: []string{"abc", "xyz"}, events: 2000, seed: 42, cancelLen: cancelLen}

		n, err := generate(&buf, opt)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		sink := &collectSink{}
		svc := service.NewFeedService(sink, zap.NewNop())
		dec := itch.NewDecoder(&buf, itch.WithPayloadLength(itch.TagOrderCancel, cancelLen))
		if err := svc.Run(context.Background(), dec); err != nil {
			t.Fatalf("cancel len %d: run: %v", cancelLen, err)
		}

		st := svc.Stats()
		if !st.Stopped {
			t.Fatal("expected the run to stop at the session end")
		}
		if st.Messages >= uint64(n) {
			t.Fatalf("post-market messages must not be processed: %d of %d", st.Messages, n)
		}
		// 09:30 to 16:00 crosses six full hour boundaries.
		if len(sink.reports) != 6 {
			t.Fatalf("expected 6 hourly reports, got %d", len(sink.reports))
		}
		last := sink.reports[len(sink.reports)-1]
		if len(last.Lines) == 0 {
			t.Fatal("expected instruments in the last report")
		}
	}
}

func TestGenerate_RejectsShortCancelLength(t *testing.T) {
	var buf bytes.Buffer
	opt := options{symbols: []string{"abc"}, events: 10, seed: 1, cancelLen: 10}
	if _, err := generate(&buf, opt); err == nil {
		t.Fatal("expected a cancel length below 18 to be rejected")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %d bytes", buf.Len())
	}
}

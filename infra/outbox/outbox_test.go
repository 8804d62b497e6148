package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
	"itchvwap/infra/sequence"
)

func openTemp(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestOutbox_AppendAndGet(t *testing.T) {
	o := openTemp(t)

	if err := o.Append(1, []byte("payload")); err != nil {
		t.Fatalf("append: %v", err)
	}
	rec, err := o.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateNew || string(rec.Payload) != "payload" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestOutbox_UpdateStateKeepsPayload(t *testing.T) {
	o := openTemp(t)
	_ = o.Append(1, []byte("payload"))

	if err := o.UpdateState(1, StateFailed, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _ := o.Get(1)
	if rec.State != StateFailed || rec.Retries != 3 || rec.LastAttempt == 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if string(rec.Payload) != "payload" {
		t.Fatalf("payload lost: %q", rec.Payload)
	}
}

func TestOutbox_ScanByStateInOrder(t *testing.T) {
	o := openTemp(t)
	for _, seq := range []uint64{3, 1, 10, 2} {
		_ = o.Append(seq, []byte{byte(seq)})
	}
	_ = o.UpdateState(2, StateAcked, 0)

	var got []uint64
	err := o.ScanByState(StateNew, func(seq uint64, _ Record) error {
		got = append(got, seq)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []uint64{1, 3, 10}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	counts, err := o.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[StateNew] != 3 || counts[StateAcked] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestOutbox_LastSeqAndDelete(t *testing.T) {
	o := openTemp(t)
	if seq, err := o.LastSeq(); err != nil || seq != 0 {
		t.Fatalf("empty outbox: seq=%d err=%v", seq, err)
	}

	_ = o.Append(4, nil)
	_ = o.Append(12, nil)
	if seq, _ := o.LastSeq(); seq != 12 {
		t.Fatalf("expected 12, got %d", seq)
	}

	if err := o.Delete(12); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Get(12); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecodeRecord_Short(t *testing.T) {
	if _, err := decodeRecord([]byte{1, 2}); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestSink_AppendsEncodedReports(t *testing.T) {
	o := openTemp(t)
	s := NewSink(o, sequence.New(0), codec.JSON{}, "run-1")

	r := vwap.Report{Hour: 1, Lines: []vwap.Line{{Stock: "ABC", Shares: 1, VWAP: decimal.NewFromInt(1)}}}
	for i := 0; i < 2; i++ {
		if err := s.Publish(context.Background(), r); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	rec, err := o.Get(2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	env, err := codec.JSON{}.Decode(rec.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if env.Seq != 2 || env.RunID != "run-1" || env.Lines[0].Stock != "ABC" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

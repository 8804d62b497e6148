// Package codec serializes VWAP reports for the outbound transports.
package codec

import (
	"fmt"

	"itchvwap/domain/session"
	"itchvwap/domain/vwap"
)

// Codec turns envelopes into wire bytes and back.
type Codec interface {
	Name() string
	ContentType() string
	Encode(Envelope) ([]byte, error)
	Decode([]byte) (Envelope, error)
}

// Envelope is the transport form of a report.
type Envelope struct {
	V         int    `json:"v"`
	RunID     string `json:"run_id"`
	Seq       uint64 `json:"seq"`
	Hour      uint64 `json:"hour"`
	Timestamp uint64 `json:"timestamp"`
	Clock     string `json:"clock"`
	Mode      string `json:"mode"`
	Lines     []Line `json:"lines"`
}

type Line struct {
	Stock  string `json:"stock"`
	Shares uint64 `json:"shares"`
	VWAP   string `json:"vwap"`
}

const version = 1

func FromReport(runID string, seq uint64, r vwap.Report) Envelope {
	env := Envelope{
		V:         version,
		RunID:     runID,
		Seq:       seq,
		Hour:      r.Hour,
		Timestamp: r.Timestamp,
		Clock:     session.Clock(r.Timestamp),
		Mode:      string(r.Mode),
		Lines:     make([]Line, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		env.Lines = append(env.Lines, Line{Stock: l.Stock, Shares: l.Shares, VWAP: l.VWAP.String()})
	}
	return env
}

// New returns the codec registered under name.
func New(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "proto", "protobuf":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto carries envelopes as a google.protobuf.Struct.
type Proto struct{}

var ErrMalformedEnvelope = errors.New("malformed report envelope")

func (Proto) Name() string        { return "proto" }
func (Proto) ContentType() string { return "application/x-protobuf" }

func (Proto) Encode(e Envelope) ([]byte, error) {
	lines := make([]any, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, map[string]any{
			"stock":  l.Stock,
			"shares": l.Shares,
			"vwap":   l.VWAP,
		})
	}

	s, err := structpb.NewStruct(map[string]any{
		"v":         e.V,
		"run_id":    e.RunID,
		"seq":       e.Seq,
		"hour":      e.Hour,
		"timestamp": e.Timestamp,
		"clock":     e.Clock,
		"mode":      e.Mode,
		"lines":     lines,
	})
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(s)
}

func (Proto) Decode(b []byte) (Envelope, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Envelope{}, err
	}
	f := s.GetFields()

	e := Envelope{
		V:         int(f["v"].GetNumberValue()),
		RunID:     f["run_id"].GetStringValue(),
		Seq:       uint64(f["seq"].GetNumberValue()),
		Hour:      uint64(f["hour"].GetNumberValue()),
		Timestamp: uint64(f["timestamp"].GetNumberValue()),
		Clock:     f["clock"].GetStringValue(),
		Mode:      f["mode"].GetStringValue(),
	}

	for _, v := range f["lines"].GetListValue().GetValues() {
		lf := v.GetStructValue().GetFields()
		if lf == nil {
			return Envelope{}, ErrMalformedEnvelope
		}
		e.Lines = append(e.Lines, Line{
			Stock:  lf["stock"].GetStringValue(),
			Shares: uint64(lf["shares"].GetNumberValue()),
			VWAP:   lf["vwap"].GetStringValue(),
		})
	}
	return e, nil
}

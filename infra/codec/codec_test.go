package codec

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"itchvwap/domain/vwap"
)

func sampleReport() vwap.Report {
	return vwap.Report{
		Hour:      2,
		Timestamp: 34200000000000,
		Mode:      vwap.Cumulative,
		Lines: []vwap.Line{
			{Stock: "ABC", Shares: 300, VWAP: decimal.RequireFromString("2.83333333")},
			{Stock: "ZZZ", Shares: 0, VWAP: decimal.Zero},
		},
	}
}

func TestFromReport(t *testing.T) {
	env := FromReport("run-1", 7, sampleReport())

	if env.Clock != "09:30:00.000000000" {
		t.Fatalf("unexpected clock %q", env.Clock)
	}
	if env.Lines[0].VWAP != "2.83333333" || env.Lines[1].VWAP != "0" {
		t.Fatalf("unexpected lines %+v", env.Lines)
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	want := FromReport("run-1", 7, sampleReport())

	for _, name := range []string{"json", "proto"} {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			b, err := c.Encode(want)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := c.Decode(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New("xml"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

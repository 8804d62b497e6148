package itch

import "strings"

// Header offsets shared by every message payload (tag excluded).
const (
	offLocate    = 0
	offTracking  = 2
	offTimestamp = 4
	offBody      = 10
)

// ReadTimestamp returns the 48-bit nanoseconds-since-midnight field.
// The caller guarantees the payload holds the common header.
func ReadTimestamp(payload []byte) uint64 {
	b := payload[offTimestamp:offBody]
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// ReadUint reads a big-endian unsigned integer from payload[start:end].
// The width is implied by the range and must be 1..8 bytes.
func ReadUint(payload []byte, start, end int) (uint64, error) {
	if start < 0 || end > len(payload) || end <= start || end-start > 8 {
		return 0, &DecodeError{Start: start, End: end, Len: len(payload)}
	}
	var v uint64
	for _, b := range payload[start:end] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// ReadAlpha reads a fixed-width ASCII field. Bytes outside the ASCII range
// are dropped and padding spaces are trimmed; content never fails.
func ReadAlpha(payload []byte, start, end int) (string, error) {
	if start < 0 || end > len(payload) || end < start {
		return "", &DecodeError{Start: start, End: end, Len: len(payload)}
	}
	var sb strings.Builder
	sb.Grow(end - start)
	for _, b := range payload[start:end] {
		if b < 0x80 {
			sb.WriteByte(b)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// fieldReader collects the first range error so message decoders read
// straight through their layout and check once.
type fieldReader struct {
	p   []byte
	err error
}

func (r *fieldReader) num(start, end int) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := ReadUint(r.p, start, end)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *fieldReader) alpha(start, end int) string {
	if r.err != nil {
		return ""
	}
	s, err := ReadAlpha(r.p, start, end)
	if err != nil {
		r.err = err
	}
	return s
}

func (r *fieldReader) char(at int) byte {
	return byte(r.num(at, at+1))
}

func (r *fieldReader) header() Header {
	h := Header{
		StockLocate:    uint16(r.num(offLocate, offTracking)),
		TrackingNumber: uint16(r.num(offTracking, offTimestamp)),
	}
	if r.err == nil && len(r.p) >= offBody {
		h.Timestamp = ReadTimestamp(r.p)
	} else if r.err == nil {
		r.err = &DecodeError{Start: offTimestamp, End: offBody, Len: len(r.p)}
	}
	return h
}

package itch

import (
	"errors"
	"fmt"
	"io"
)

const markerSize = 2

type decodeFunc func(Header, *fieldReader) Message

type spec struct {
	length int // payload bytes following the tag
	decode decodeFunc
}

// DefaultLengths maps every recognized tag to its payload length.
// 'X' is 18 here; NASDAQ ITCH 5.0 files carry 22 (see WithPayloadLength).
func DefaultLengths() map[byte]int {
	return map[byte]int{
		TagSystemEvent:         11,
		TagAddOrder:            35,
		TagAddOrderMPID:        39,
		TagOrderExecuted:       30,
		TagOrderExecutedPrice:  35,
		TagBrokenTrade:         18,
		TagOrderReplace:        34,
		TagTrade:               43,
		TagStockDirectory:      38,
		TagTradingAction:       24,
		TagParticipantPosition: 25,
		TagMWCBDecline:         34,
		TagIPOQuotingPeriod:    27,
		TagLULDAuctionCollar:   34,
		TagOperationalHalt:     20,
		TagRegSHO:              19,
		TagMWCBStatus:          11,
		TagOrderDelete:         18,
		TagCrossTrade:          39,
		TagNOII:                49,
		TagOrderCancel:         18,
	}
}

var decoders = map[byte]decodeFunc{
	TagSystemEvent:        decodeSystemEvent,
	TagAddOrder:           decodeAddOrder,
	TagAddOrderMPID:       decodeAddOrder,
	TagOrderExecuted:      decodeOrderExecuted,
	TagOrderExecutedPrice: decodeOrderExecutedWithPrice,
	TagBrokenTrade:        decodeBrokenTrade,
	TagOrderReplace:       decodeOrderReplace,
	TagTrade:              decodeTrade,
	TagOrderCancel:        decodeOrderCancel,
	TagOrderDelete:        decodeOrderDelete,
}

// Option adjusts a Decoder.
type Option func(*Decoder)

// WithPayloadLength overrides the payload length consumed for a known tag.
func WithPayloadLength(tag byte, n int) Option {
	return func(d *Decoder) {
		if s := d.table[tag]; s != nil && n > 0 {
			s.length = n
		}
	}
}

// Decoder reads frames sequentially from a byte source.
// It is not safe for concurrent use.
type Decoder struct {
	r     io.Reader
	table [256]*spec
	hdr   [markerSize + 1]byte
	buf   []byte
	count uint64
}

func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{r: r}
	maxLen := 0
	for tag, n := range DefaultLengths() {
		fn := decoders[tag]
		if fn == nil {
			fn = decodeInformational
		}
		d.table[tag] = &spec{length: n, decode: fn}
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, s := range d.table {
		if s != nil && s.length > maxLen {
			maxLen = s.length
		}
	}
	d.buf = make([]byte, maxLen)
	return d
}

// Count returns the number of frames decoded so far.
func (d *Decoder) Count() uint64 {
	return d.count
}

// PayloadLength reports the payload length consumed for tag.
func (d *Decoder) PayloadLength(tag byte) (int, bool) {
	s := d.table[tag]
	if s == nil {
		return 0, false
	}
	return s.length, true
}

// Next decodes the next frame. It returns io.EOF when the source ends
// cleanly at a frame boundary.
func (d *Decoder) Next() (Message, error) {
	// Frame: [len:2][tag:1][payload]
	n, err := io.ReadFull(d.r, d.hdr[:markerSize])
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Start: 0, End: markerSize, Len: n}
		}
		return nil, fmt.Errorf("itch: read marker: %w", err)
	}
	if _, err := io.ReadFull(d.r, d.hdr[markerSize:]); err != nil {
		if err == io.EOF {
			return nil, &DecodeError{Start: markerSize, End: markerSize + 1, Len: markerSize}
		}
		return nil, fmt.Errorf("itch: read tag: %w", err)
	}
	tag := d.hdr[markerSize]

	s := d.table[tag]
	if s == nil {
		return nil, &UnknownMessageTypeError{Tag: tag}
	}

	payload := d.buf[:s.length]
	if n, err := io.ReadFull(d.r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Tag: tag, Start: 0, End: s.length, Len: n}
		}
		return nil, fmt.Errorf("itch: read %q payload: %w", tag, err)
	}
	d.count++

	return decodePayload(tag, payload, s.decode)
}

// Decode parses a single payload (tag excluded) without framing.
func Decode(tag byte, payload []byte) (Message, error) {
	fn, ok := decoders[tag]
	if !ok {
		if _, known := DefaultLengths()[tag]; !known {
			return nil, &UnknownMessageTypeError{Tag: tag}
		}
		fn = decodeInformational
	}
	return decodePayload(tag, payload, fn)
}

func decodePayload(tag byte, payload []byte, fn decodeFunc) (Message, error) {
	r := &fieldReader{p: payload}
	h := r.header()
	h.Tag = tag
	msg := fn(h, r)
	if r.err != nil {
		var de *DecodeError
		if errors.As(r.err, &de) {
			de.Tag = tag
		}
		return nil, r.err
	}
	return msg, nil
}

package itch

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes messages using the same framing the Decoder reads.
type Encoder struct {
	w       io.Writer
	lengths map[byte]int
	buf     []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, lengths: DefaultLengths(), buf: make([]byte, 0, 64)}
}

// layoutLengths holds the smallest payload each encoded layout fits in.
// Tags absent here are encoded as a bare header.
var layoutLengths = map[byte]int{
	TagSystemEvent:        11,
	TagAddOrder:           35,
	TagAddOrderMPID:       39,
	TagOrderExecuted:      30,
	TagOrderExecutedPrice: 35,
	TagBrokenTrade:        18,
	TagOrderReplace:       34,
	TagTrade:              43,
	TagOrderCancel:        18,
	TagOrderDelete:        18,
}

const headerSize = 10

func minPayloadLength(tag byte) int {
	if n, ok := layoutLengths[tag]; ok {
		return n
	}
	return headerSize
}

// SetPayloadLength mirrors WithPayloadLength on the decoding side. It rejects
// unknown tags and lengths shorter than the tag's field layout.
func (e *Encoder) SetPayloadLength(tag byte, n int) error {
	if _, ok := e.lengths[tag]; !ok {
		return &UnknownMessageTypeError{Tag: tag}
	}
	if want := minPayloadLength(tag); n < want {
		return fmt.Errorf("itch: payload length %d for %q is shorter than its %d-byte layout", n, tag, want)
	}
	e.lengths[tag] = n
	return nil
}

// Encode writes one frame for msg.
func (e *Encoder) Encode(msg Message) error {
	tag := msg.Type()
	n, ok := e.lengths[tag]
	if !ok {
		return &UnknownMessageTypeError{Tag: tag}
	}
	if want := minPayloadLength(tag); n < want {
		return &DecodeError{Tag: tag, Start: 0, End: want, Len: n}
	}

	frame := e.buf[:0]
	frame = binary.BigEndian.AppendUint16(frame, uint16(n+1))
	frame = append(frame, tag)
	start := len(frame)
	frame = append(frame, make([]byte, n)...)
	p := frame[start:]

	h := headerOf(msg)
	binary.BigEndian.PutUint16(p[offLocate:], h.StockLocate)
	binary.BigEndian.PutUint16(p[offTracking:], h.TrackingNumber)
	putUint48(p[offTimestamp:], h.Timestamp)

	switch m := msg.(type) {
	case *SystemEvent:
		p[10] = m.EventCode
	case *AddOrder:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
		p[18] = m.Side
		binary.BigEndian.PutUint32(p[19:], m.Shares)
		putAlpha(p[23:31], m.Stock)
		binary.BigEndian.PutUint32(p[31:], m.Price)
		if tag == TagAddOrderMPID {
			putAlpha(p[35:39], m.Attribution)
		}
	case *OrderExecuted:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
		binary.BigEndian.PutUint32(p[18:], m.Shares)
		binary.BigEndian.PutUint64(p[22:], m.Match)
	case *OrderExecutedWithPrice:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
		binary.BigEndian.PutUint32(p[18:], m.Shares)
		binary.BigEndian.PutUint64(p[22:], m.Match)
		p[30] = m.Printable
		binary.BigEndian.PutUint32(p[31:], m.Price)
	case *BrokenTrade:
		binary.BigEndian.PutUint64(p[10:], m.Match)
	case *OrderReplace:
		binary.BigEndian.PutUint64(p[10:], m.OldRef)
		binary.BigEndian.PutUint64(p[18:], m.NewRef)
		binary.BigEndian.PutUint32(p[26:], m.Shares)
		binary.BigEndian.PutUint32(p[30:], m.Price)
	case *Trade:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
		p[18] = m.Side
		binary.BigEndian.PutUint32(p[19:], m.Shares)
		putAlpha(p[23:31], m.Stock)
		binary.BigEndian.PutUint32(p[31:], m.Price)
		binary.BigEndian.PutUint64(p[35:], m.Match)
	case *OrderCancel:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
		if n >= 22 {
			binary.BigEndian.PutUint32(p[18:], m.CancelledShares)
		}
	case *OrderDelete:
		binary.BigEndian.PutUint64(p[10:], m.Ref)
	case *Informational:
	default:
		return fmt.Errorf("itch: cannot encode %T", msg)
	}

	e.buf = frame
	_, err := e.w.Write(frame)
	return err
}

func headerOf(msg Message) Header {
	switch m := msg.(type) {
	case *SystemEvent:
		return m.Header
	case *AddOrder:
		return m.Header
	case *OrderExecuted:
		return m.Header
	case *OrderExecutedWithPrice:
		return m.Header
	case *BrokenTrade:
		return m.Header
	case *OrderReplace:
		return m.Header
	case *Trade:
		return m.Header
	case *OrderCancel:
		return m.Header
	case *OrderDelete:
		return m.Header
	case *Informational:
		return m.Header
	}
	return Header{Tag: msg.Type(), Timestamp: msg.Time()}
}

func putUint48(b []byte, v uint64) {
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

// putAlpha left-aligns s and pads with spaces.
func putAlpha(b []byte, s string) {
	n := copy(b, s)
	for i := n; i < len(b); i++ {
		b[i] = ' '
	}
}

package itch

import "fmt"

// DecodeError reports a byte range that does not fit the available payload.
type DecodeError struct {
	Tag   byte
	Start int
	End   int
	Len   int
}

func (e *DecodeError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("itch: decode %q: range [%d,%d) exceeds payload of %d bytes", e.Tag, e.Start, e.End, e.Len)
	}
	return fmt.Sprintf("itch: decode: range [%d,%d) exceeds payload of %d bytes", e.Start, e.End, e.Len)
}

// UnknownMessageTypeError is returned for a tag missing from the dispatch table.
// The frame length cannot be inferred, so the stream is no longer aligned.
type UnknownMessageTypeError struct {
	Tag byte
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("itch: unknown message type %q (0x%02x)", e.Tag, e.Tag)
}

package itch

// Message tags.
const (
	TagSystemEvent         byte = 'S'
	TagAddOrder            byte = 'A'
	TagAddOrderMPID        byte = 'F'
	TagOrderExecuted       byte = 'E'
	TagOrderExecutedPrice  byte = 'C'
	TagBrokenTrade         byte = 'B'
	TagOrderReplace        byte = 'U'
	TagTrade               byte = 'P'
	TagStockDirectory      byte = 'R'
	TagTradingAction       byte = 'H'
	TagParticipantPosition byte = 'L'
	TagMWCBDecline         byte = 'V'
	TagIPOQuotingPeriod    byte = 'K'
	TagLULDAuctionCollar   byte = 'J'
	TagOperationalHalt     byte = 'h'
	TagRegSHO              byte = 'Y'
	TagMWCBStatus          byte = 'W'
	TagOrderCancel         byte = 'X'
	TagOrderDelete         byte = 'D'
	TagCrossTrade          byte = 'Q'
	TagNOII                byte = 'I'
)

// System event codes carried by 'S' messages.
const (
	EventStartOfMessages    byte = 'O'
	EventStartOfSystemHours byte = 'S'
	EventStartOfMarketHours byte = 'Q'
	EventEndOfMarketHours   byte = 'M'
	EventEndOfSystemHours   byte = 'E'
	EventEndOfMessages      byte = 'C'
)

// Printable is the "yes" indicator of an executed-with-price message.
const Printable byte = 'Y'

// Message is a decoded frame.
type Message interface {
	Type() byte
	Time() uint64
}

// Header is common to every message.
type Header struct {
	Tag            byte
	StockLocate    uint16
	TrackingNumber uint16
	Timestamp      uint64 // nanoseconds since midnight
}

func (h Header) Type() byte   { return h.Tag }
func (h Header) Time() uint64 { return h.Timestamp }

type SystemEvent struct {
	Header
	EventCode byte
}

// AddOrder covers 'A' and 'F'; Attribution is empty for 'A'.
type AddOrder struct {
	Header
	Ref         uint64
	Side        byte
	Shares      uint32
	Stock       string
	Price       uint32
	Attribution string
}

type OrderExecuted struct {
	Header
	Ref    uint64
	Shares uint32
	Match  uint64
}

type OrderExecutedWithPrice struct {
	Header
	Ref       uint64
	Shares    uint32
	Match     uint64
	Printable byte
	Price     uint32
}

type BrokenTrade struct {
	Header
	Match uint64
}

type OrderReplace struct {
	Header
	OldRef uint64
	NewRef uint64
	Shares uint32
	Price  uint32
}

// Trade is a non-cross trade message.
type Trade struct {
	Header
	Ref    uint64
	Side   byte
	Shares uint32
	Stock  string
	Price  uint32
	Match  uint64
}

// OrderCancel carries CancelledShares only when the payload is long enough.
type OrderCancel struct {
	Header
	Ref             uint64
	CancelledShares uint32
}

type OrderDelete struct {
	Header
	Ref uint64
}

// Informational is a recognized message decoded only for its header.
type Informational struct {
	Header
}

func decodeSystemEvent(h Header, r *fieldReader) Message {
	return &SystemEvent{Header: h, EventCode: r.char(10)}
}

func decodeAddOrder(h Header, r *fieldReader) Message {
	m := &AddOrder{
		Header: h,
		Ref:    r.num(10, 18),
		Side:   r.char(18),
		Shares: uint32(r.num(19, 23)),
		Stock:  r.alpha(23, 31),
		Price:  uint32(r.num(31, 35)),
	}
	if h.Tag == TagAddOrderMPID {
		m.Attribution = r.alpha(35, 39)
	}
	return m
}

func decodeOrderExecuted(h Header, r *fieldReader) Message {
	return &OrderExecuted{
		Header: h,
		Ref:    r.num(10, 18),
		Shares: uint32(r.num(18, 22)),
		Match:  r.num(22, 30),
	}
}

func decodeOrderExecutedWithPrice(h Header, r *fieldReader) Message {
	return &OrderExecutedWithPrice{
		Header:    h,
		Ref:       r.num(10, 18),
		Shares:    uint32(r.num(18, 22)),
		Match:     r.num(22, 30),
		Printable: r.char(30),
		Price:     uint32(r.num(31, 35)),
	}
}

func decodeBrokenTrade(h Header, r *fieldReader) Message {
	return &BrokenTrade{Header: h, Match: r.num(10, 18)}
}

func decodeOrderReplace(h Header, r *fieldReader) Message {
	return &OrderReplace{
		Header: h,
		OldRef: r.num(10, 18),
		NewRef: r.num(18, 26),
		Shares: uint32(r.num(26, 30)),
		Price:  uint32(r.num(30, 34)),
	}
}

func decodeTrade(h Header, r *fieldReader) Message {
	return &Trade{
		Header: h,
		Ref:    r.num(10, 18),
		Side:   r.char(18),
		Shares: uint32(r.num(19, 23)),
		Stock:  r.alpha(23, 31),
		Price:  uint32(r.num(31, 35)),
		Match:  r.num(35, 43),
	}
}

func decodeOrderCancel(h Header, r *fieldReader) Message {
	m := &OrderCancel{Header: h, Ref: r.num(10, 18)}
	if len(r.p) >= 22 {
		m.CancelledShares = uint32(r.num(18, 22))
	}
	return m
}

func decodeOrderDelete(h Header, r *fieldReader) Message {
	return &OrderDelete{Header: h, Ref: r.num(10, 18)}
}

func decodeInformational(h Header, _ *fieldReader) Message {
	return &Informational{Header: h}
}

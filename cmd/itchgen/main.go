// Command itchgen writes a synthetic ITCH capture covering one trading
// session, for demos and end-to-end runs of the vwap processor.
package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"itchvwap/domain/itch"
)

type options struct {
	out       string
	symbols   []string
	events    int
	seed      uint64
	compress  bool
	cancelLen int
}

func main() {
	var opt options
	pflag.StringVarP(&opt.out, "out", "o", "synthetic.itch", "output file")
	pflag.StringSliceVar(&opt.symbols, "symbols", []string{"AAPL", "MSFT", "QQQ", "SPY"}, "instruments")
	pflag.IntVarP(&opt.events, "events", "n", 10000, "in-session events")
	pflag.Uint64Var(&opt.seed, "seed", 1, "random seed")
	pflag.BoolVar(&opt.compress, "gzip", false, "gzip the output")
	pflag.IntVar(&opt.cancelLen, "cancel-len", 18, "order cancel payload length")
	pflag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	n, err := write(opt)
	if err != nil {
		logger.Fatal("generate failed", zap.Error(err))
	}
	logger.Info("feed written",
		zap.String("out", opt.out),
		zap.Int("messages", n),
		zap.Bool("gzip", opt.compress),
	)
}

func write(opt options) (int, error) {
	f, err := os.Create(opt.out)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	var w io.Writer = bw
	var zw *gzip.Writer
	if opt.compress {
		zw = gzip.NewWriter(bw)
		w = zw
	}

	n, err := generate(w, opt)
	if err != nil {
		return n, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, f.Close()
}

type resting struct {
	ref    uint64
	stock  string
	shares uint32
	price  uint32
}

type generator struct {
	enc   *itch.Encoder
	rnd   *rand.Rand
	opt   options
	count int

	nextRef   uint64
	nextMatch uint64
	live      []resting
	matches   []uint64
	base      map[string]uint32
}

func generate(w io.Writer, opt options) (int, error) {
	if len(opt.symbols) == 0 {
		return 0, fmt.Errorf("no symbols")
	}
	g := &generator{
		enc:       itch.NewEncoder(w),
		rnd:       rand.New(rand.NewPCG(opt.seed, opt.seed^0x9e3779b97f4a7c15)),
		opt:       opt,
		nextRef:   1,
		nextMatch: 1,
		base:      make(map[string]uint32),
	}
	if err := g.enc.SetPayloadLength(itch.TagOrderCancel, opt.cancelLen); err != nil {
		return 0, err
	}
	for i, s := range opt.symbols {
		opt.symbols[i] = strings.ToUpper(s)
		g.base[opt.symbols[i]] = uint32(100+i*37) * 10000
	}

	open := uint64(9*time.Hour + 30*time.Minute)
	closing := uint64(16 * time.Hour)

	if err := g.event(itch.EventStartOfMessages, uint64(4*time.Hour)); err != nil {
		return g.count, err
	}
	for i := range opt.symbols {
		err := g.emit(&itch.Informational{Header: g.header(itch.TagStockDirectory, uint64(7*time.Hour)+uint64(i))})
		if err != nil {
			return g.count, err
		}
	}
	if err := g.event(itch.EventStartOfMarketHours, open); err != nil {
		return g.count, err
	}

	step := (closing - open) / uint64(opt.events+1)
	for i := 1; i <= opt.events; i++ {
		if err := g.step(open + uint64(i)*step); err != nil {
			return g.count, err
		}
	}

	if err := g.event(itch.EventEndOfMarketHours, closing); err != nil {
		return g.count, err
	}
	// Post-market traffic the processor must never reach.
	if err := g.add(closing+1, opt.symbols[0]); err != nil {
		return g.count, err
	}
	return g.count, g.event(itch.EventEndOfMessages, uint64(20*time.Hour))
}

func (g *generator) step(ts uint64) error {
	if len(g.live) == 0 {
		return g.add(ts, g.symbol())
	}

	switch r := g.rnd.IntN(100); {
	case r < 40:
		return g.add(ts, g.symbol())
	case r < 65:
		return g.execute(ts, false)
	case r < 75:
		return g.execute(ts, true)
	case r < 83:
		return g.replace(ts)
	case r < 90:
		return g.trade(ts)
	case r < 95:
		return g.cancel(ts)
	case r < 98 && len(g.matches) > 0:
		m := g.matches[g.rnd.IntN(len(g.matches))]
		return g.emit(&itch.BrokenTrade{Header: g.header(itch.TagBrokenTrade, ts), Match: m})
	default:
		return g.emit(&itch.Informational{Header: g.header(itch.TagNOII, ts)})
	}
}

func (g *generator) add(ts uint64, stock string) error {
	o := resting{
		ref:    g.nextRef,
		stock:  stock,
		shares: uint32(1+g.rnd.IntN(10)) * 100,
		price:  g.price(stock),
	}
	g.nextRef++
	g.live = append(g.live, o)

	side := byte('B')
	if g.rnd.IntN(2) == 1 {
		side = 'S'
	}
	return g.emit(&itch.AddOrder{
		Header: g.header(itch.TagAddOrder, ts),
		Ref:    o.ref,
		Side:   side,
		Shares: o.shares,
		Stock:  o.stock,
		Price:  o.price,
	})
}

func (g *generator) execute(ts uint64, withPrice bool) error {
	o := g.live[g.rnd.IntN(len(g.live))]
	shares := uint32(1 + g.rnd.IntN(int(o.shares)))
	match := g.match()

	if !withPrice {
		return g.emit(&itch.OrderExecuted{Header: g.header(itch.TagOrderExecuted, ts), Ref: o.ref, Shares: shares, Match: match})
	}
	printable := itch.Printable
	if g.rnd.IntN(5) == 0 {
		printable = 'N'
	}
	return g.emit(&itch.OrderExecutedWithPrice{
		Header:    g.header(itch.TagOrderExecutedPrice, ts),
		Ref:       o.ref,
		Shares:    shares,
		Match:     match,
		Printable: printable,
		Price:     g.price(o.stock),
	})
}

func (g *generator) replace(ts uint64) error {
	i := g.rnd.IntN(len(g.live))
	old := g.live[i]
	next := resting{ref: g.nextRef, stock: old.stock, shares: old.shares, price: g.price(old.stock)}
	g.nextRef++
	g.live[i] = next

	return g.emit(&itch.OrderReplace{
		Header: g.header(itch.TagOrderReplace, ts),
		OldRef: old.ref,
		NewRef: next.ref,
		Shares: next.shares,
		Price:  next.price,
	})
}

func (g *generator) trade(ts uint64) error {
	stock := g.symbol()
	return g.emit(&itch.Trade{
		Header: g.header(itch.TagTrade, ts),
		Side:   'B',
		Shares: uint32(1+g.rnd.IntN(5)) * 100,
		Stock:  stock,
		Price:  g.price(stock),
		Match:  g.match(),
	})
}

// cancel removes an order from the generator's view only. The processor
// keeps every order it has seen.
func (g *generator) cancel(ts uint64) error {
	i := g.rnd.IntN(len(g.live))
	o := g.live[i]
	g.live = append(g.live[:i], g.live[i+1:]...)

	if g.rnd.IntN(2) == 0 {
		return g.emit(&itch.OrderDelete{Header: g.header(itch.TagOrderDelete, ts), Ref: o.ref})
	}
	return g.emit(&itch.OrderCancel{Header: g.header(itch.TagOrderCancel, ts), Ref: o.ref, CancelledShares: o.shares})
}

func (g *generator) event(code byte, ts uint64) error {
	return g.emit(&itch.SystemEvent{Header: g.header(itch.TagSystemEvent, ts), EventCode: code})
}

func (g *generator) emit(m itch.Message) error {
	g.count++
	return g.enc.Encode(m)
}

func (g *generator) header(tag byte, ts uint64) itch.Header {
	return itch.Header{Tag: tag, TrackingNumber: uint16(g.count), Timestamp: ts}
}

func (g *generator) symbol() string {
	return g.opt.symbols[g.rnd.IntN(len(g.opt.symbols))]
}

func (g *generator) match() uint64 {
	m := g.nextMatch
	g.nextMatch++
	g.matches = append(g.matches, m)
	return m
}

// price walks within 2% of the instrument's base price.
func (g *generator) price(stock string) uint32 {
	base := g.base[stock]
	spread := int(base / 50)
	return uint32(int(base) - spread + g.rnd.IntN(2*spread+1))
}

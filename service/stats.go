package service

import "itchvwap/domain/itch"

// Stats is a point-in-time view of a run.
type Stats struct {
	Messages   uint64
	ByTag      map[byte]uint64
	Orders     int
	Executions int
	Reports    uint64
	Hour       uint64
	LastTime   uint64
	Stopped    bool
}

type counters struct {
	messages uint64
	byTag    [256]uint64
	reports  uint64
	last     uint64
	stopped  bool
}

func (c *counters) observe(msg itch.Message) {
	c.messages++
	c.byTag[msg.Type()]++
	c.last = msg.Time()
}

func (c *counters) tags() map[byte]uint64 {
	out := make(map[byte]uint64)
	for tag, n := range c.byTag {
		if n > 0 {
			out[byte(tag)] = n
		}
	}
	return out
}

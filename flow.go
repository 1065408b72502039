package streamfab

// Copy, Sink, Gate, StreamInit and StreamNull are grounded on
// original_source/streams/stream.py's Sink/StreamInit/StreamNull, kept in
// the same explicit-register FSM shape but driven through Netlist's
// Step/commit tick instead of Amaranth's m.d.sync/m.d.comb domains.

const (
	bufEmpty uint8 = iota
	bufFull
)

// Copy is a single-beat registered buffer: it accepts one input beat,
// holds it until the consumer takes it, then re-opens for the next one.
// It re-asserts Ready only on the tick after its held beat drains, so it
// passes at most one transfer every three cycles.
type Copy struct {
	I, O   *Stream
	layout Layout
	state  uint8
}

// NewCopy builds a Copy buffering beats of layout between a fresh input
// and output Stream.
func NewCopy(n *Netlist, layout Layout, name string) *Copy {
	c := &Copy{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
	}
	n.Add(c)
	return c
}

func (c *Copy) latch() {
	c.O.SetValid(true)
	c.O.SetFirst(c.I.First)
	c.O.SetLast(c.I.Last)
	for _, f := range c.layout {
		c.O.SetField(f.Name, c.I.Field(f.Name))
	}
}

func (c *Copy) Step() {
	switch c.state {
	case bufEmpty:
		c.I.SetReady(true)
		if c.I.Valid && c.I.Ready {
			c.latch()
			c.I.SetReady(false)
			c.state = bufFull
		}
	case bufFull:
		c.I.SetReady(false)
		if c.O.Valid && c.O.Ready {
			c.O.SetValid(false)
			c.state = bufEmpty
		}
	}
}

// Reset clears Copy's held beat.
func (c *Copy) Reset() { c.state = bufEmpty }

// Sink always becomes ready the cycle after it accepts a transfer, and
// discards every beat it sees.
type Sink struct {
	I *Stream
}

// NewSink builds a Sink draining a fresh input Stream of layout.
func NewSink(n *Netlist, layout Layout, name string) *Sink {
	s := newSink(n, layout, name)
	n.Add(s)
	return s
}

// newSink builds a Sink without registering it as a Netlist Component --
// used by Router, which drives its optional embedded Sink's Step
// explicitly as part of its own Step.
func newSink(n *Netlist, layout Layout, name string) *Sink {
	return &Sink{I: n.NewStream(layout, name+".i")}
}

func (s *Sink) Step() {
	switch {
	case s.I.Valid && s.I.Ready:
		s.I.SetReady(false)
	case !s.I.Ready:
		s.I.SetReady(true)
	}
}

// Gate is a Copy that only admits input while an externally driven
// enable is asserted.
type Gate struct {
	I, O   *Stream
	layout Layout
	state  uint8
	en     bool
}

// NewGate builds a Gate buffering beats of layout, initially disabled;
// call SetEnable(true) to admit input.
func NewGate(n *Netlist, layout Layout, name string) *Gate {
	g := &Gate{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
	}
	n.Add(g)
	return g
}

// SetEnable drives the Gate's external enable signal for the next tick.
func (g *Gate) SetEnable(en bool) { g.en = en }

func (g *Gate) latch() {
	g.O.SetValid(true)
	g.O.SetFirst(g.I.First)
	g.O.SetLast(g.I.Last)
	for _, f := range g.layout {
		g.O.SetField(f.Name, g.I.Field(f.Name))
	}
}

func (g *Gate) Step() {
	switch g.state {
	case bufEmpty:
		g.I.SetReady(g.en)
		if g.en && g.I.Valid && g.I.Ready {
			g.latch()
			g.I.SetReady(false)
			g.state = bufFull
		}
	case bufFull:
		g.I.SetReady(false)
		if g.O.Valid && g.O.Ready {
			g.O.SetValid(false)
			g.state = bufEmpty
		}
	}
}

// Reset clears Gate's held beat.
func (g *Gate) Reset() { g.state = bufEmpty }

// StreamInit emits a configured sequence of initial transfers out of O
// before transparently forwarding I -> O. A Clear pulse reverts to the
// initial sequence. Grounded on stream.py's StreamInit.
type StreamInit struct {
	I, O   *Stream
	layout Layout

	data []uint64 // precomputed cat_dict vectors (with flags) per init beat
	idx  int
	done bool
	wait bool
	sVal bool
	clr  bool
}

// NewStreamInit builds a StreamInit that replays beats (each a sparse
// field->value map, "first"/"last" keys set where appropriate) before
// forwarding I -> O. Panics if beats is empty, matching the source's
// `assert len(data)`.
func NewStreamInit(n *Netlist, layout Layout, beats []map[string]uint64, name string) *StreamInit {
	if len(beats) == 0 {
		panic(ErrInvalidArgument)
	}
	data := make([]uint64, len(beats))
	for i, b := range beats {
		data[i] = LayoutCatDict(layout, b, true)
	}
	si := &StreamInit{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
		data:   data,
		wait:   true,
	}
	n.Add(si)
	return si
}

// Clear reverts StreamInit to replaying its initial sequence from the
// start, on the next Step.
func (si *StreamInit) Clear() { si.clr = true }

func (si *StreamInit) Step() {
	if si.clr {
		si.clr = false
		si.idx, si.done, si.wait, si.sVal = 0, false, true, false
		return
	}

	if si.done {
		si.O.SetValid(si.I.Valid)
		si.O.SetFirst(si.I.First)
		si.O.SetLast(si.I.Last)
		for _, f := range si.layout {
			si.O.SetField(f.Name, si.I.Field(f.Name))
		}
		si.I.SetReady(si.O.Ready)
		return
	}

	si.O.SetValid(si.sVal)
	si.I.SetReady(false)
	si.O.PayloadEq(si.data[si.idx], true)

	if !si.O.Valid {
		si.sVal = true
	}
	if si.O.Valid && si.O.Ready {
		si.sVal = false
		si.idx++
		if si.idx == len(si.data) {
			si.wait = false
		}
	}
	if !si.wait {
		si.done = true
	}
}

// Reset replays the initial sequence from the start.
func (si *StreamInit) Reset() {
	si.idx, si.done, si.wait, si.sVal, si.clr = 0, false, true, false, false
}

// StreamNull drops the first n transfers seen on I, then transparently
// forwards. Grounded on stream.py's StreamNull.
type StreamNull struct {
	I, O   *Stream
	layout Layout
	n      int
	count  int
	done   bool
}

// NewStreamNull builds a StreamNull dropping the first n transfers.
func NewStreamNull(n *Netlist, m int, layout Layout, name string) *StreamNull {
	sn := &StreamNull{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
		n:      m,
	}
	n.Add(sn)
	return sn
}

func (sn *StreamNull) Step() {
	if sn.done {
		sn.O.SetValid(sn.I.Valid)
		sn.O.SetFirst(sn.I.First)
		sn.O.SetLast(sn.I.Last)
		for _, f := range sn.layout {
			sn.O.SetField(f.Name, sn.I.Field(f.Name))
		}
		sn.I.SetReady(sn.O.Ready)
		return
	}

	sn.O.SetValid(false)
	switch {
	case !sn.I.Ready:
		if sn.count == sn.n {
			sn.done = true
			sn.I.SetReady(false)
		} else {
			sn.I.SetReady(true)
		}
	case sn.I.Valid && sn.I.Ready:
		sn.I.SetReady(false)
		sn.count++
	}
}

// Reset restarts StreamNull's drop count.
func (sn *StreamNull) Reset() { sn.count, sn.done = 0, false }

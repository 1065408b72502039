package streamfab

// Packetiser, StreamSync, Head, Event, Sequencer are grounded on
// original_source/streams/route.py's components of the same name.
// GatePacket has no surviving source file (spec.md section 4.3); it is
// built in the same admit/hold gating shape as the others.

const (
	fsmIdle uint8 = iota
	fsmCopy
	fsmStop
	fsmRead
	fsmAcc
	fsmWrite
)

// Packetiser frames an unframed input stream into packets of up to
// maxSize beats, asserting first on the first beat of each group and
// last on the final one.
type Packetiser struct {
	I, O    *Stream
	layout  Layout
	maxSize int
	state   uint8
	count   int
}

// NewPacketiser builds a Packetiser grouping beats into packets of at
// most maxSize elements.
func NewPacketiser(n *Netlist, layout Layout, maxSize int, name string) *Packetiser {
	p := &Packetiser{
		I:       n.NewStream(layout, name+".i"),
		O:       n.NewStream(layout, name+".o"),
		layout:  layout,
		maxSize: maxSize,
	}
	n.Add(p)
	return p
}

func (p *Packetiser) copyFields() {
	for _, f := range p.layout {
		p.O.SetField(f.Name, p.I.Field(f.Name))
	}
}

func (p *Packetiser) Step() {
	switch p.state {
	case fsmIdle:
		p.O.SetValid(false)
		if p.I.Valid && p.O.Ready {
			p.I.SetReady(true)
			p.count = 0
			p.state = fsmCopy
		}
	case fsmCopy:
		if p.I.Valid && p.I.Ready {
			p.I.SetReady(false)
			p.O.SetValid(true)
			p.copyFields()
			p.O.SetFirst(p.count == 0)
			last := p.count == p.maxSize-1
			p.O.SetLast(last)
			p.count++
		}
		if p.O.Valid && p.O.Ready {
			p.O.SetValid(false)
			if p.O.Last {
				p.state = fsmIdle
			} else if p.O.Ready && !p.I.Ready {
				p.I.SetReady(true)
			}
		}
	}
}

// Reset returns Packetiser to IDLE.
func (p *Packetiser) Reset() { p.state, p.count = fsmIdle, 0 }

// StreamSync is an elastic buffer that never begins forwarding a packet
// until its consumer is ready for the first beat, then passes the
// remainder at line rate.
type StreamSync struct {
	I, O   *Stream
	layout Layout
	state  uint8
}

// NewStreamSync builds a StreamSync over layout.
func NewStreamSync(n *Netlist, layout Layout, name string) *StreamSync {
	s := &StreamSync{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
	}
	n.Add(s)
	return s
}

func (s *StreamSync) Step() {
	switch s.state {
	case fsmIdle:
		s.O.SetValid(false)
		if s.I.Valid && s.O.Ready {
			s.I.SetReady(true)
			s.state = fsmCopy
		}
	case fsmCopy:
		if s.I.Valid && s.I.Ready {
			s.I.SetReady(false)
			s.O.SetValid(true)
			s.O.SetFirst(s.I.First)
			s.O.SetLast(s.I.Last)
			for _, f := range s.layout {
				s.O.SetField(f.Name, s.I.Field(f.Name))
			}
		}
		if s.O.Valid && s.O.Ready {
			s.O.SetValid(false)
			if s.I.Last {
				s.state = fsmIdle
			} else if s.O.Ready && !s.I.Ready {
				s.I.SetReady(true)
			}
		}
	}
}

// Reset returns StreamSync to IDLE.
func (s *StreamSync) Reset() { s.state = fsmIdle }

// Head strips the first n elements of each packet into an addressable
// table, then forwards the remainder with first re-asserted on the first
// forwarded beat.
type Head struct {
	I, O      *Stream
	layout    Layout
	dataField string
	n         int

	head     []uint64
	valid    bool
	copied   bool
	idx      int
	first    bool
}

// NewHead builds a Head capturing n beats' dataField values before
// forwarding the remainder of each packet.
func NewHead(n *Netlist, layout Layout, dataField string, count int, name string) *Head {
	h := newHead(n, layout, dataField, count, name)
	n.Add(h)
	return h
}

// newHead builds a Head without registering it as a Netlist Component --
// used by Router, which drives its embedded Head's Step explicitly as
// part of its own Step instead of letting the Netlist call it a second
// time.
func newHead(n *Netlist, layout Layout, dataField string, count int, name string) *Head {
	if _, _, ok := layout.Find(dataField); !ok {
		panic(ErrUnknownField)
	}
	return &Head{
		I:         n.NewStream(layout, name+".i"),
		O:         n.NewStream(layout, name+".o"),
		layout:    layout,
		dataField: dataField,
		n:         count,
		head:      make([]uint64, count),
	}
}

// Valid reports whether all n head values have been captured.
func (h *Head) Valid() bool { return h.valid }

// More reports whether Head still has remaining beats to forward to O.
func (h *Head) More() bool { return h.copied }

// Captured returns the i-th captured dataField value.
func (h *Head) Captured(i int) uint64 { return h.head[i] }

func (h *Head) Step() {
	if h.O.Valid && h.O.Ready {
		h.O.SetValid(false)
	}
	if !h.I.Ready && !h.O.Valid {
		h.I.SetReady(true)
	}
	if h.O.Valid && h.O.Last {
		h.copied = false
	}

	if h.I.Ready && h.I.Valid {
		h.I.SetReady(false)

		if h.valid && h.I.First {
			h.valid = false
		}

		if !h.copied {
			oldIdx := h.idx
			h.head[oldIdx] = h.I.Field(h.dataField)
			h.idx++

			if h.I.First {
				h.idx = 1
				h.head[0] = h.I.Field(h.dataField)
			}
			if h.I.Last {
				h.idx = 0
				h.valid = oldIdx == h.n-1
			}
			if oldIdx == h.n-1 {
				if !h.I.Last {
					h.copied = true
					h.first = true
					h.valid = true
				}
			}
		} else {
			h.O.SetValid(true)
			h.O.SetFirst(h.first)
			h.O.SetLast(h.I.Last)
			for _, f := range h.layout {
				h.O.SetField(f.Name, h.I.Field(f.Name))
			}
			if h.I.Last {
				h.idx = 0
			}
			h.first = false
		}
	}
}

// Reset clears Head's captured table and forwarding state.
func (h *Head) Reset() {
	h.valid, h.copied, h.idx, h.first = false, false, 0, false
	for i := range h.head {
		h.head[i] = 0
	}
}

// Event is a passive, read-only tap on another Stream: it never drives
// that Stream's Ready, and emits zero-payload pulses on the requested
// subset of {"first", "last", "data"} event outputs whenever the tapped
// stream transfers a matching beat.
type Event struct {
	tap                    *Stream
	oFirst, oLast, oData   *Stream
}

// NewEvent builds an Event tapping tap and exposing pulse outputs for
// the requested event names ("first", "last", "data"). Panics if events
// is empty or names an unrecognized event, matching the source's
// `assert events` / `assert ev in [...]`.
func NewEvent(n *Netlist, tap *Stream, events []string, name string) *Event {
	if len(events) == 0 {
		panic(ErrInvalidArgument)
	}
	e := &Event{tap: tap}
	for _, ev := range events {
		switch ev {
		case "first":
			e.oFirst = n.NewStream(Layout{}, name+".o_first")
		case "last":
			e.oLast = n.NewStream(Layout{}, name+".o_last")
		case "data":
			e.oData = n.NewStream(Layout{}, name+".o_data")
		default:
			panic(ErrInvalidArgument)
		}
	}
	n.Add(e)
	return e
}

// OFirst, OLast, OData return the configured event output Streams, or
// nil if that event was not requested.
func (e *Event) OFirst() *Stream { return e.oFirst }
func (e *Event) OLast() *Stream  { return e.oLast }
func (e *Event) OData() *Stream  { return e.oData }

func pulse(s *Stream, fire bool) {
	if s == nil {
		return
	}
	if s.Valid && s.Ready {
		s.SetValid(false)
	}
	if fire {
		s.SetValid(true)
	}
}

func (e *Event) Step() {
	ev := e.tap.Valid && e.tap.Ready
	pulse(e.oData, ev)
	pulse(e.oFirst, ev && e.tap.First)
	pulse(e.oLast, ev && e.tap.Last)
}

// Sequencer generates a packet of count values starting at base,
// stepping by incr.
type Sequencer struct {
	O     *Stream
	width int

	base, count, incr uint64
	data, offset       uint64
	enable             bool
	prevEn             bool
	state              uint8
}

// NewSequencer builds a Sequencer emitting width-bit values on O.
func NewSequencer(n *Netlist, width int, name string) *Sequencer {
	s := &Sequencer{
		O:     n.NewStream(Layout{{Name: "data", Width: width}}, name+".o"),
		width: width,
	}
	n.Add(s)
	return s
}

// Configure sets the sequence parameters; call before SetEnable(true).
func (s *Sequencer) Configure(base, count, incr uint64) {
	s.base, s.count, s.incr = mask(base, s.width), count, mask(incr, s.width)
}

// SetEnable starts the sequence (rising edge) when idle.
func (s *Sequencer) SetEnable(en bool) { s.enable = en }

// Busy reports whether Sequencer is running or draining its last beat.
func (s *Sequencer) Busy() bool { return s.state != fsmIdle }

func (s *Sequencer) Step() {
	rise := s.enable && !s.prevEn
	s.prevEn = s.enable
	switch s.state {
	case fsmIdle:
		if rise {
			s.data = s.base
			s.offset = 0
			s.state = fsmCopy
		}
	case fsmCopy:
		if s.O.Valid && s.O.Ready {
			s.O.SetValid(false)
		}
		if !s.O.Valid {
			s.O.SetValid(true)
			s.O.SetField("data", s.data)
			s.O.SetFirst(s.offset == 0)
			s.O.SetLast(s.offset+1 == s.count)
			s.data = mask(s.data+s.incr, s.width)
			s.offset++
		}
		if s.count == s.offset {
			s.state = fsmStop
		}
	case fsmStop:
		if !s.O.Valid {
			s.state = fsmIdle
		}
		if s.O.Valid && s.O.Ready {
			s.O.SetValid(false)
			s.state = fsmIdle
		}
	}
}

// Reset returns Sequencer to IDLE.
func (s *Sequencer) Reset() { s.state = fsmIdle }

// GatePacket forwards whole packets only: a packet in flight is never
// re-gated mid-stream, only at its first beat.
type GatePacket struct {
	I, O     *Stream
	layout   Layout
	en       bool
	admitted bool
}

// NewGatePacket builds a GatePacket over layout, initially disabled.
func NewGatePacket(n *Netlist, layout Layout, name string) *GatePacket {
	g := &GatePacket{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
	}
	n.Add(g)
	return g
}

// SetEnable drives GatePacket's external admit signal for the next tick.
func (g *GatePacket) SetEnable(en bool) { g.en = en }

func (g *GatePacket) Step() {
	if !g.admitted && g.I.Valid && g.I.First && g.en {
		g.admitted = true
	}

	if g.admitted {
		g.O.SetValid(g.I.Valid)
		g.O.SetFirst(g.I.First)
		g.O.SetLast(g.I.Last)
		for _, f := range g.layout {
			g.O.SetField(f.Name, g.I.Field(f.Name))
		}
		g.I.SetReady(g.O.Ready)
		if g.I.Valid && g.I.Ready && g.I.Last {
			g.admitted = false
		}
	} else {
		g.O.SetValid(false)
		g.I.SetReady(false)
	}
}

// Reset un-admits any packet in flight.
func (g *GatePacket) Reset() { g.admitted = false }

package streamfab

import "math/bits"

// UnaryOp and its Abs specialization follow ops.py's BinaryOp shape
// narrowed to a single operand. Delta, BitToN, Decimate, Enumerate,
// BitState and ConstSource have no surviving source file (spec.md
// section 4.8); they are built in the same single-beat or per-packet
// register shape as the grounded components in packet.go/flow.go, except
// BitState which reuses Sequencer's idle/copy/stop beat-emission shape
// (packet.go) since it fans one input beat out into a packet of several.
// BitState and BitToN are grounded on
// original_source/tests/test_ops.py's sim_bit_change/sim_bit_to_n and
// their make_packet/data tables, which pin the exact per-bit beat
// sequence and the highest-set-bit reduction no surviving ops.py class
// documents directly.

// UnaryOp reads one beat with field data (iwidth bits) and produces one
// output beat with field data (owidth bits), applying a fixed per-beat
// transform. first/last propagate unchanged.
type UnaryOp struct {
	I, O           *Stream
	iwidth, owidth int
	op             func(v uint64) uint64
}

func newUnaryOp(n *Netlist, iwidth, owidth int, op func(uint64) uint64, name string) *UnaryOp {
	u := &UnaryOp{
		I:      n.NewStream(Layout{{Name: "data", Width: iwidth}}, name+".i"),
		O:      n.NewStream(Layout{{Name: "data", Width: owidth}}, name+".o"),
		iwidth: iwidth,
		owidth: owidth,
		op:     op,
	}
	n.Add(u)
	return u
}

// NewAbs builds a UnaryOp computing the absolute value of a signed
// iwidth-bit input.
func NewAbs(n *Netlist, iwidth, owidth int, name string) *UnaryOp {
	return newUnaryOp(n, iwidth, owidth, func(v uint64) uint64 {
		sv := SignExtend(v, iwidth)
		if sv < 0 {
			sv = -sv
		}
		return uint64(sv)
	}, name)
}

func (u *UnaryOp) Step() {
	if u.I.Valid && u.I.Ready {
		u.I.SetReady(false)
		u.O.SetField("data", mask(u.op(u.I.Field("data")), u.owidth))
		u.O.SetFirst(u.I.First)
		u.O.SetLast(u.I.Last)
		u.O.SetValid(true)
	}
	if u.O.Valid && u.O.Ready {
		u.O.SetValid(false)
	}
	if !u.I.Ready && !u.O.Valid {
		u.I.SetReady(true)
	}
}

// Reset is a no-op; UnaryOp holds no state beyond its output latch.
func (u *UnaryOp) Reset() {}

// Delta emits the signed difference between the current and previous
// data value within a packet; first emits 0 and seeds the register.
type Delta struct {
	I, O   *Stream
	width  int
	prev   uint64
}

// NewDelta builds a Delta over width-bit signed values.
func NewDelta(n *Netlist, width int, name string) *Delta {
	d := &Delta{
		I:     n.NewStream(Layout{{Name: "data", Width: width}}, name+".i"),
		O:     n.NewStream(Layout{{Name: "data", Width: width}}, name+".o"),
		width: width,
	}
	n.Add(d)
	return d
}

func (d *Delta) Step() {
	if d.I.Valid && d.I.Ready {
		d.I.SetReady(false)
		cur := d.I.Field("data")
		var out uint64
		if d.I.First {
			out = 0
		} else {
			out = mask(uint64(SignExtend(cur, d.width)-SignExtend(d.prev, d.width)), d.width)
		}
		d.prev = cur
		d.O.SetField("data", out)
		d.O.SetFirst(d.I.First)
		d.O.SetLast(d.I.Last)
		d.O.SetValid(true)
	}
	if d.O.Valid && d.O.Ready {
		d.O.SetValid(false)
	}
	if !d.I.Ready && !d.O.Valid {
		d.I.SetReady(true)
	}
}

// Reset clears Delta's previous-value register.
func (d *Delta) Reset() { d.prev = 0 }

// BitState explodes one input beat into a packet of W = bitLen(field's
// width) output beats: beat i carries the bit index i in field and that
// bit's value (of the latched input beat's field value) in stateField;
// every other field of layout is copied unchanged onto every output
// beat. Grounded on sim_bit_change's make_packet(n), which checks bits
// 0..W-1 of n for a 16-bit "data" field (W = bitLen(16) = 4).
type BitState struct {
	I, O       *Stream
	layout     Layout
	field      string
	stateField string
	w          int
	state      uint8

	value  uint64
	copied map[string]uint64
	idx    int
}

// NewBitState builds a BitState over layout, exploding field's value
// into a packet of bitLen(field's width) (index, bit) beats, with the
// bit's value carried in a new 1-bit stateField. Panics if field is
// absent from layout or stateField collides with an existing name.
func NewBitState(n *Netlist, layout Layout, field, stateField string, name string) *BitState {
	f, _, ok := layout.Find(field)
	if !ok {
		panic(ErrUnknownField)
	}
	if _, _, ok := layout.Find(stateField); ok {
		panic(ErrDuplicateField)
	}
	out := append(append(Layout(nil), layout...), Field{Name: stateField, Width: 1})
	b := &BitState{
		I:          n.NewStream(layout, name+".i"),
		O:          n.NewStream(out, name+".o"),
		layout:     layout,
		field:      field,
		stateField: stateField,
		w:          bitLen(f.Width),
		copied:     make(map[string]uint64, len(layout)),
	}
	n.Add(b)
	return b
}

func (b *BitState) Step() {
	switch b.state {
	case fsmIdle:
		b.O.SetValid(false)
		b.I.SetReady(true)
		if b.I.Valid && b.I.Ready {
			b.I.SetReady(false)
			b.value = b.I.Field(b.field)
			for _, f := range b.layout {
				if f.Name != b.field {
					b.copied[f.Name] = b.I.Field(f.Name)
				}
			}
			b.idx = 0
			b.state = fsmCopy
		}
	case fsmCopy:
		if b.O.Valid && b.O.Ready {
			b.O.SetValid(false)
		}
		if !b.O.Valid {
			for name, v := range b.copied {
				b.O.SetField(name, v)
			}
			b.O.SetField(b.field, uint64(b.idx))
			b.O.SetField(b.stateField, (b.value>>uint(b.idx))&1)
			b.O.SetFirst(b.idx == 0)
			b.O.SetLast(b.idx+1 == b.w)
			b.O.SetValid(true)
			b.idx++
		}
		if b.idx == b.w {
			b.state = fsmStop
		}
	case fsmStop:
		if b.O.Valid && b.O.Ready {
			b.O.SetValid(false)
			b.state = fsmIdle
		} else if !b.O.Valid {
			b.state = fsmIdle
		}
	}
}

// Reset returns BitState to IDLE, ready for a fresh input beat.
func (b *BitState) Reset() { b.state = fsmIdle }

// BitToN reduces a states-bit mask to the index of its highest set bit,
// emitting a beat only when the mask is non-zero (a zero mask is
// silently dropped). Grounded on sim_bit_to_n's data/expect tables
// (e.g. 3 -> 1, 7 -> 2, 0 -> dropped).
type BitToN struct {
	I, O   *Stream
	states int
}

// NewBitToN builds a BitToN reducing a states-bit mask to a
// bitLen(states)-bit index.
func NewBitToN(n *Netlist, states int, name string) *BitToN {
	if states < 1 {
		states = 1
	}
	b := &BitToN{
		I:      n.NewStream(Layout{{Name: "state", Width: states}}, name+".i"),
		O:      n.NewStream(Layout{{Name: "bit", Width: bitLen(states)}}, name+".o"),
		states: states,
	}
	n.Add(b)
	return b
}

func (b *BitToN) Step() {
	if b.I.Valid && b.I.Ready {
		b.I.SetReady(false)
		state := b.I.Field("state")
		if state != 0 {
			idx := uint64(bits.Len64(state) - 1)
			b.O.SetField("bit", idx)
			b.O.SetFirst(b.I.First)
			b.O.SetLast(b.I.Last)
			b.O.SetValid(true)
		}
	}
	if b.O.Valid && b.O.Ready {
		b.O.SetValid(false)
	}
	if !b.I.Ready && !b.O.Valid {
		b.I.SetReady(true)
	}
}

// Reset is a no-op; BitToN holds no state beyond its output latch.
func (b *BitToN) Reset() {}

// Decimate forwards one beat out of every factor seen, counted per
// packet and reset on first.
type Decimate struct {
	I, O   *Stream
	layout Layout
	factor int
	count  int
}

// NewDecimate builds a Decimate keeping one beat of every factor over
// layout (factor >= 1).
func NewDecimate(n *Netlist, layout Layout, factor int, name string) *Decimate {
	if factor < 1 {
		factor = 1
	}
	d := &Decimate{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
		factor: factor,
	}
	n.Add(d)
	return d
}

func (d *Decimate) Step() {
	if d.O.Valid && d.O.Ready {
		d.O.SetValid(false)
	}
	keep := d.count == 0
	if !d.I.Ready && !(keep && d.O.Valid) {
		d.I.SetReady(true)
	}
	if d.I.Valid && d.I.Ready {
		d.I.SetReady(false)
		if d.I.First {
			d.count = 0
			keep = true
		}
		if keep {
			d.O.SetValid(true)
			d.O.SetFirst(d.I.First)
			d.O.SetLast(d.I.Last)
			for _, f := range d.layout {
				d.O.SetField(f.Name, d.I.Field(f.Name))
			}
		}
		d.count++
		if d.count == d.factor || d.I.Last {
			d.count = 0
		}
	}
}

// Reset restarts Decimate's per-packet counter.
func (d *Decimate) Reset() { d.count = 0 }

// Enumerate appends a width-bit running index (reset to 0 on first,
// incrementing each beat) alongside the forwarded payload.
type Enumerate struct {
	I, O   *Stream
	layout Layout
	width  int
	idx    uint64
}

// NewEnumerate builds an Enumerate adding a width-bit "index" field to
// layout.
func NewEnumerate(n *Netlist, layout Layout, width int, name string) *Enumerate {
	out := append(append(Layout(nil), layout...), Field{Name: "index", Width: width})
	e := &Enumerate{
		I:      n.NewStream(layout, name+".i"),
		O:      n.NewStream(out, name+".o"),
		layout: layout,
		width:  width,
	}
	n.Add(e)
	return e
}

func (e *Enumerate) Step() {
	if e.I.Valid && e.I.Ready {
		e.I.SetReady(false)
		if e.I.First {
			e.idx = 0
		}
		e.O.SetFirst(e.I.First)
		e.O.SetLast(e.I.Last)
		for _, f := range e.layout {
			e.O.SetField(f.Name, e.I.Field(f.Name))
		}
		e.O.SetField("index", e.idx)
		e.idx = mask(e.idx+1, e.width)
		e.O.SetValid(true)
	}
	if e.O.Valid && e.O.Ready {
		e.O.SetValid(false)
	}
	if !e.I.Ready && !e.O.Valid {
		e.I.SetReady(true)
	}
}

// Reset restarts Enumerate's running index.
func (e *Enumerate) Reset() { e.idx = 0 }

// ConstSource continuously offers single-beat packets (first = last =
// true) carrying a fixed set of field values, re-presenting the same
// beat immediately after each transfer.
type ConstSource struct {
	O      *Stream
	layout Layout
	values map[string]uint64
}

// NewConstSource builds a ConstSource over layout, holding values (a
// sparse field->value map; absent fields default to zero).
func NewConstSource(n *Netlist, layout Layout, values map[string]uint64, name string) *ConstSource {
	c := &ConstSource{
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
		values: values,
	}
	n.Add(c)
	return c
}

func (c *ConstSource) Step() {
	c.O.SetValid(true)
	c.O.SetFirst(true)
	c.O.SetLast(true)
	for _, f := range c.layout {
		c.O.SetField(f.Name, c.values[f.Name])
	}
}

// Reset is a no-op; ConstSource continuously re-asserts the same beat.
func (c *ConstSource) Reset() {}

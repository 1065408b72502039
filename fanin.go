package streamfab

import (
	"strconv"

	"github.com/pkg/errors"
)

// Select and Collator are grounded directly on
// original_source/streams/route.py's components of the same name. Join
// has no surviving source file; it is built in the same "wait for every
// input, emit one combined beat" shape Collator uses for its per-input
// wait loop, but fully combinational (no holding register) since all
// inputs must already be valid simultaneously. Arbiter is grounded on
// spec.md section 4.4's documented IDLE -> START -> COPY -> STOP -> IDLE
// FSM; its round-robin selection is a direct index scan rather than the
// source's precomputed per-mask lookup table, an optimization detail
// that does not change the documented fairness order.

const fsmStart uint8 = 10

// Join waits until every input Stream presents a valid beat, then emits
// one output beat concatenating all of their payloads in input order.
// first/last are taken from the input at firstIdx.
type Join struct {
	Ins      []*Stream
	O        *Stream
	firstIdx int
}

// NewJoin builds a Join over the given per-input layouts (field names
// must be unique across all of them), taking first/last from the input
// at firstIdx.
func NewJoin(n *Netlist, layouts []Layout, firstIdx int, name string) (*Join, error) {
	if len(layouts) == 0 {
		return nil, errors.Wrap(ErrNoInputs, "Join")
	}
	if firstIdx < 0 || firstIdx >= len(layouts) {
		return nil, errors.Wrapf(ErrInvalidArgument, "Join: firstIdx %d out of range", firstIdx)
	}

	seen := map[string]bool{}
	var out Layout
	for i, l := range layouts {
		for _, f := range l {
			if seen[f.Name] {
				return nil, errors.Wrapf(ErrDuplicateField, "Join: input %d field %q collides", i, f.Name)
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}

	j := &Join{O: n.NewStream(out, name+".o"), firstIdx: firstIdx}
	for i, l := range layouts {
		j.Ins = append(j.Ins, n.NewStream(l, name+".i"+strconv.Itoa(i)))
	}
	n.Add(j)
	return j, nil
}

func (j *Join) Step() {
	allValid := true
	for _, s := range j.Ins {
		if !s.Valid {
			allValid = false
			break
		}
	}
	j.O.SetValid(allValid)
	if allValid {
		for _, s := range j.Ins {
			for _, f := range s.Layout {
				j.O.SetField(f.Name, s.Field(f.Name))
			}
		}
		j.O.SetFirst(j.Ins[j.firstIdx].First)
		j.O.SetLast(j.Ins[j.firstIdx].Last)
	}
	fire := allValid && j.O.Ready
	for _, s := range j.Ins {
		s.SetReady(fire)
	}
}

// Arbiter round-robins n input streams at packet granularity: once a
// packet begins copying from a selected input, selection is frozen until
// that packet's last beat.
type Arbiter struct {
	Ins    []*Stream
	O      *Stream
	layout Layout
	n      int
	state  uint8
	rr     int
	sel    int
}

// NewArbiter builds an Arbiter over count inputs of layout.
func NewArbiter(n *Netlist, layout Layout, count int, name string) *Arbiter {
	if count <= 0 {
		panic(ErrNoInputs)
	}
	a := &Arbiter{
		O:      n.NewStream(layout, name+".o"),
		layout: layout,
		n:      count,
	}
	for i := 0; i < count; i++ {
		a.Ins = append(a.Ins, n.NewStream(layout, name+".i"+strconv.Itoa(i)))
	}
	n.Add(a)
	return a
}

func (a *Arbiter) copyFields(s *Stream) {
	for _, f := range a.layout {
		a.O.SetField(f.Name, s.Field(f.Name))
	}
}

func (a *Arbiter) Step() {
	switch a.state {
	case fsmIdle:
		for i := 0; i < a.n; i++ {
			idx := (a.rr + i) % a.n
			if a.Ins[idx].Valid && a.Ins[idx].First {
				a.sel = idx
				a.state = fsmStart
				break
			}
		}
	case fsmStart:
		a.Ins[a.sel].SetReady(true)
		a.state = fsmCopy
	case fsmCopy:
		sel := a.Ins[a.sel]
		if sel.Valid && sel.Ready {
			sel.SetReady(false)
			a.O.SetValid(true)
			a.O.SetFirst(sel.First)
			a.O.SetLast(sel.Last)
			a.copyFields(sel)
		}
		if a.O.Valid && a.O.Ready {
			a.O.SetValid(false)
			if a.O.Last {
				a.state = fsmStop
			} else if a.O.Ready && !sel.Ready {
				sel.SetReady(true)
			}
		}
	case fsmStop:
		a.rr = (a.sel + 1) % a.n
		a.state = fsmIdle
	}
}

// Reset returns Arbiter to IDLE with its round-robin pointer unchanged.
func (a *Arbiter) Reset() { a.state = fsmIdle }

// Select is a programmable mux: SetSelect names the active input, whose
// beats flow to O; other inputs are held un-ready (or, if constructed
// with sink=true, drained) unless wait_last defers the switch until a
// packet in flight on the previously active input completes.
type Select struct {
	Ins      []*Stream
	O        *Stream
	layout   Layout
	n        int
	sink     bool
	waitLast bool

	sel, active int
	copying     []bool
}

// NewSelect builds a Select over count inputs of layout.
func NewSelect(n *Netlist, layout Layout, count int, sink, waitLast bool, name string) *Select {
	s := &Select{
		O:        n.NewStream(layout, name+".o"),
		layout:   layout,
		n:        count,
		sink:     sink,
		waitLast: waitLast,
		copying:  make([]bool, count),
	}
	for i := 0; i < count; i++ {
		s.Ins = append(s.Ins, n.NewStream(layout, name+".i"+strconv.Itoa(i)))
	}
	n.Add(s)
	return s
}

// SetSelect names the input Select should route from O.
func (s *Select) SetSelect(i int) { s.sel = i }

func (s *Select) anyCopying() bool {
	for _, c := range s.copying {
		if c {
			return true
		}
	}
	return false
}

func (s *Select) Step() {
	if s.O.Valid && s.O.Ready {
		s.O.SetValid(false)
	}
	change := s.sel != s.active

	for i, in := range s.Ins {
		if i == s.active {
			if !s.O.Valid && !in.Ready {
				in.SetReady(true)
			}
			if in.Valid && in.Ready {
				in.SetReady(false)
				s.O.SetValid(true)
				s.O.SetFirst(in.First)
				s.O.SetLast(in.Last)
				for _, f := range s.layout {
					s.O.SetField(f.Name, in.Field(f.Name))
				}
				s.copying[i] = s.waitLast && !in.Last
			}
		} else {
			in.SetReady(false)
			if s.sink {
				in.SetReady(s.copying[i] || !change)
			}
			if in.Valid && in.Ready {
				s.copying[i] = s.waitLast && !in.Last
				in.SetReady(false)
			}
		}

		if change && !s.anyCopying() && !(in.Valid && in.Ready) {
			s.active = s.sel
			in.SetReady(false)
		}
	}
}

// Reset re-arms Select on its current selection with no packet mid-flight.
func (s *Select) Reset() {
	s.active = s.sel
	for i := range s.copying {
		s.copying[i] = false
	}
}

// Collator reads exactly one beat from each of n inputs in round order,
// assembling them into one output packet of length n.
type Collator struct {
	Ins    []*Stream
	O      *Stream
	layout Layout
	n      int
	idx    int
}

// NewCollator builds a Collator over count inputs of layout.
func NewCollator(n *Netlist, layout Layout, count int, name string) *Collator {
	c := &Collator{O: n.NewStream(layout, name+".o"), layout: layout, n: count}
	for i := 0; i < count; i++ {
		c.Ins = append(c.Ins, n.NewStream(layout, name+".i"+strconv.Itoa(i)))
	}
	n.Add(c)
	return c
}

func (c *Collator) Step() {
	if c.O.Valid && c.O.Ready {
		c.O.SetValid(false)
	}
	for i, s := range c.Ins {
		if i != c.idx {
			s.SetReady(false)
		}
	}
	active := c.Ins[c.idx]
	if !active.Ready && !c.O.Valid {
		active.SetReady(true)
	}
	if active.Valid && active.Ready {
		active.SetReady(false)
		c.O.SetValid(true)
		for _, f := range c.layout {
			c.O.SetField(f.Name, active.Field(f.Name))
		}
		c.O.SetFirst(c.idx == 0)
		last := c.idx == c.n-1
		c.O.SetLast(last)
		if last {
			c.idx = 0
		} else {
			c.idx++
		}
	}
}

// Reset returns Collator to reading from input 0.
func (c *Collator) Reset() { c.idx = 0 }


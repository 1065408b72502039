package streamfab

import "strconv"

// Tee's broadcast/backpressure-union contract is spec.md section 4.5;
// the Tee class itself was filtered out of the kept original_source
// revision (monitor.py still imports it), so it is built here in the
// Select/Collator per-input-register idiom. Split is adapted from
// route.py's PacketSplit, narrowed from packet-index demuxing to
// payload-field demuxing per spec.md section 4.5.

// Tee broadcasts each input transfer to n outputs. If waitAll is true,
// the next input beat is only accepted once every output has consumed
// the previous one; otherwise it is accepted as soon as any output has
// freed its slot.
type Tee struct {
	I      *Stream
	Outs   []*Stream
	layout Layout
	n      int
	waitAll bool
	pending []bool // per-output: holds a beat not yet consumed
}

// NewTee builds a Tee broadcasting layout beats from I to count outputs.
func NewTee(n *Netlist, layout Layout, count int, waitAll bool, name string) *Tee {
	t := &Tee{
		I:       n.NewStream(layout, name+".i"),
		layout:  layout,
		n:       count,
		waitAll: waitAll,
		pending: make([]bool, count),
	}
	for i := 0; i < count; i++ {
		t.Outs = append(t.Outs, n.NewStream(layout, name+".o"+strconv.Itoa(i)))
	}
	n.Add(t)
	return t
}

func (t *Tee) admit() bool {
	if t.waitAll {
		for _, p := range t.pending {
			if p {
				return false
			}
		}
		return true
	}
	for _, p := range t.pending {
		if !p {
			return true
		}
	}
	return false
}

func (t *Tee) Step() {
	for i, o := range t.Outs {
		if o.Valid && o.Ready {
			o.SetValid(false)
			t.pending[i] = false
		}
	}

	t.I.SetReady(t.admit())

	if t.I.Valid && t.I.Ready {
		for i, o := range t.Outs {
			o.SetValid(true)
			o.SetFirst(t.I.First)
			o.SetLast(t.I.Last)
			for _, f := range t.layout {
				o.SetField(f.Name, t.I.Field(f.Name))
			}
			t.pending[i] = true
		}
	}
}

// Reset clears every output's pending beat.
func (t *Tee) Reset() {
	for i := range t.pending {
		t.pending[i] = false
	}
}

// Split fans out each transfer's payload fields, one per output, each
// consumed independently; a transfer is accepted once every field output
// is free.
type Split struct {
	I       *Stream
	Outs    []*Stream
	layout  Layout
	pending []bool
}

// NewSplit builds a Split over layout, one output Stream per field (each
// carrying a single field named "data" of that field's width).
func NewSplit(n *Netlist, layout Layout, name string) *Split {
	s := &Split{layout: layout, pending: make([]bool, len(layout))}
	s.I = n.NewStream(layout, name+".i")
	for _, f := range layout {
		s.Outs = append(s.Outs, n.NewStream(Layout{{Name: "data", Width: f.Width}}, name+".o_"+f.Name))
	}
	n.Add(s)
	return s
}

func (s *Split) anyPending() bool {
	for _, p := range s.pending {
		if p {
			return true
		}
	}
	return false
}

func (s *Split) Step() {
	for i, o := range s.Outs {
		if o.Valid && o.Ready {
			o.SetValid(false)
			s.pending[i] = false
		}
	}

	s.I.SetReady(!s.anyPending())

	if s.I.Valid && s.I.Ready {
		for i, f := range s.layout {
			o := s.Outs[i]
			o.SetValid(true)
			o.SetField("data", s.I.Field(f.Name))
			s.pending[i] = true
		}
	}
}

// Reset clears every field output's pending beat.
func (s *Split) Reset() {
	for i := range s.pending {
		s.pending[i] = false
	}
}


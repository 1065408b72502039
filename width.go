package streamfab

import "github.com/pkg/errors"

// MuxDown and MuxUp are grounded directly on
// original_source/streams/route.py's components of the same name.
// MuxUp's nibble count is spec.md's normative ceil(O/I), MSB-first
// shift-in, overriding the source's ambiguous
// `owidth // (iwidth + (iwidth-1))` expression (DESIGN.md Open Question).

// MuxDown serializes one iwidth-bit input beat into iwidth/owidth
// consecutive owidth-bit output beats, LSBs first.
type MuxDown struct {
	I, O           *Stream
	iwidth, owidth int
	sr             uint64
	nibble, end    int
	first, last    bool
	wr             bool
}

// NewMuxDown builds a MuxDown(iwidth -> owidth); iwidth must be an exact
// multiple of owidth.
func NewMuxDown(n *Netlist, iwidth, owidth int, name string) (*MuxDown, error) {
	if owidth <= 0 || iwidth <= 0 || iwidth%owidth != 0 {
		return nil, errors.Wrapf(ErrInvalidWidth, "MuxDown(%d->%d): iwidth must be a multiple of owidth", iwidth, owidth)
	}
	m := &MuxDown{
		I:      n.NewStream(Layout{{Name: "data", Width: iwidth}}, name+".i"),
		O:      n.NewStream(Layout{{Name: "data", Width: owidth}}, name+".o"),
		iwidth: iwidth,
		owidth: owidth,
		end:    iwidth/owidth - 1,
	}
	n.Add(m)
	return m, nil
}

func (m *MuxDown) Step() {
	if m.O.Valid && m.O.Ready {
		m.O.SetValid(false)
	}
	if !m.I.Ready && !m.wr {
		m.I.SetReady(true)
	}
	if m.I.Valid && m.I.Ready {
		m.I.SetReady(false)
		m.first = m.I.First
		m.last = m.I.Last
		m.sr = m.I.Field("data")
		m.nibble = 0
		m.wr = true
	}
	if m.wr && !m.O.Valid {
		m.O.SetValid(true)
		m.O.SetFirst(m.first)
		m.O.SetLast(false)
		m.O.SetField("data", mask(m.sr, m.owidth))
		m.sr = m.sr >> uint(m.owidth)
		m.nibble++
		m.first = false
		if m.nibble == m.end+1 {
			m.O.SetLast(m.last)
			m.wr = false
		}
	}
}

// Reset clears MuxDown's shift register.
func (m *MuxDown) Reset() { m.sr, m.nibble, m.wr, m.first, m.last = 0, 0, false, false, false }

// MuxUp accumulates up to ceil(owidth/iwidth) input beats into one
// output beat, shifting in MSB-first. A received last flushes early with
// remaining bits zero-padded.
type MuxUp struct {
	I, O           *Stream
	iwidth, owidth int
	nibbles        int

	state        uint8
	sr           uint64
	nibble       int
	first, last  bool
}

// NewMuxUp builds a MuxUp(iwidth -> owidth); owidth must be >= iwidth.
func NewMuxUp(n *Netlist, iwidth, owidth int, name string) (*MuxUp, error) {
	if iwidth <= 0 || owidth < iwidth {
		return nil, errors.Wrapf(ErrInvalidWidth, "MuxUp(%d->%d): owidth must be >= iwidth", iwidth, owidth)
	}
	nibbles := (owidth + iwidth - 1) / iwidth // ceil(owidth/iwidth), normative per spec.md
	m := &MuxUp{
		I:       n.NewStream(Layout{{Name: "data", Width: iwidth}}, name+".i"),
		O:       n.NewStream(Layout{{Name: "data", Width: owidth}}, name+".o"),
		iwidth:  iwidth,
		owidth:  owidth,
		nibbles: nibbles,
		state:   fsmRead,
	}
	n.Add(m)
	return m, nil
}

func (m *MuxUp) Step() {
	switch m.state {
	case fsmRead:
		m.I.SetReady(true)
		if m.I.Valid && m.I.Ready {
			m.sr = (m.sr << uint(m.iwidth)) | m.I.Field("data")
			m.I.SetReady(false)
			m.last = m.I.Last
			if m.I.First {
				m.sr = m.I.Field("data")
				m.nibble = 0
				m.first = true
			}
			m.state = fsmAcc
		}
	case fsmAcc:
		m.nibble++
		if m.last || m.nibble == m.nibbles {
			m.O.SetField("data", mask(m.sr, m.owidth))
			m.O.SetValid(true)
			m.O.SetFirst(m.first)
			m.O.SetLast(m.last)
			m.state = fsmWrite
		} else {
			m.state = fsmRead
		}
	case fsmWrite:
		if m.O.Valid && m.O.Ready {
			m.O.SetValid(false)
			m.I.SetReady(true)
			m.nibble = 0
			m.first = false
			m.sr = 0
			m.state = fsmRead
		}
	}
}

// Reset returns MuxUp to its initial READ state with an empty shift
// register.
func (m *MuxUp) Reset() {
	m.state, m.sr, m.nibble, m.first, m.last = fsmRead, 0, 0, false, false
}

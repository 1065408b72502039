// Package streamfab implements the synchronous streaming fabric: a
// handshake-based Stream protocol and the family of generic combinators
// (routing, flow control, arbitration, buffering, width conversion,
// arithmetic) that compose Streams into richer digital pipelines.
//
// All components are synchronous: they advance on Netlist.Tick, which
// models one rising clock edge. A transfer occurs on an edge iff Valid
// and Ready both hold that cycle; the receiving side then observes the
// payload, First and Last as they stood that same cycle. See Netlist for
// the two-phase (Step, then commit) evaluation model.
package streamfab

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
)

// Field is one named, fixed-width payload slot in a Layout.
type Field struct {
	Name  string
	Width int
}

// Layout is an ordered sequence of payload fields. Field order matters
// for CatPayload/PayloadEq; names must be unique within a Layout.
type Layout []Field

// Width returns the total payload width in bits, excluding First/Last.
func (l Layout) Width() int {
	w := 0
	for _, f := range l {
		w += f.Width
	}
	return w
}

// Find returns the field named name and its position in l.
func (l Layout) Find(name string) (Field, int, bool) {
	for i, f := range l {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// Names returns the field names in layout order.
func (l Layout) Names() []string {
	out := make([]string, len(l))
	for i, f := range l {
		out[i] = f.Name
	}
	return out
}

// validate returns a construction error for a malformed layout: a
// duplicate field name, or a field wider than the fabric can concatenate.
func (l Layout) validate() error {
	seen := make(map[string]bool, len(l))
	for _, f := range l {
		if seen[f.Name] {
			return errors.Wrapf(ErrDuplicateField, "field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Width <= 0 {
			return errors.Wrapf(ErrInvalidWidth, "field %q: width %d", f.Name, f.Width)
		}
	}
	if l.Width() > 64 {
		return errors.Wrapf(ErrWidthTooLarge, "layout total width %d", l.Width())
	}
	return nil
}

// Stream is a handshake-based unidirectional channel: a typed payload
// record plus the four control bits (Valid, Ready, First, Last) defined
// in spec section 3. Valid/First/Last/payload are driven by the single
// producer; Ready is driven by the single consumer. Fan-out requires Tee,
// fan-in requires Join/Arbiter/Select/Collator/Router.
type Stream struct {
	Name   string
	Layout Layout

	Valid bool
	Ready bool
	First bool
	Last  bool

	payload []uint64

	nextValid, nextReady, nextFirst, nextLast bool
	nextPayload                               []uint64

	id string
}

// beginTick seeds the staged (next) values with the current committed
// values, so a component need only assign the signals it changes this
// cycle -- exactly the "registers hold unless written" semantics of the
// source's m.d.sync domain.
func (s *Stream) beginTick() {
	s.nextValid, s.nextReady, s.nextFirst, s.nextLast = s.Valid, s.Ready, s.First, s.Last
	copy(s.nextPayload, s.payload)
}

// commit latches the staged values, completing the clock edge.
func (s *Stream) commit() {
	s.Valid, s.Ready, s.First, s.Last = s.nextValid, s.nextReady, s.nextFirst, s.nextLast
	copy(s.payload, s.nextPayload)
}

// SetValid stages Valid for the next commit.
func (s *Stream) SetValid(v bool) { s.nextValid = v }

// SetReady stages Ready for the next commit.
func (s *Stream) SetReady(v bool) { s.nextReady = v }

// SetFirst stages First for the next commit.
func (s *Stream) SetFirst(v bool) { s.nextFirst = v }

// SetLast stages Last for the next commit.
func (s *Stream) SetLast(v bool) { s.nextLast = v }

// Field returns the current committed value of a named payload field.
func (s *Stream) Field(name string) uint64 {
	_, idx, ok := s.Layout.Find(name)
	if !ok {
		panic(fmt.Sprintf("streamfab: stream %q has no field %q", s.Name, name))
	}
	return s.payload[idx]
}

// TryField is the non-panicking form of Field, for callers that accept a
// dynamic field name (e.g. Router/Head's configured address field).
func (s *Stream) TryField(name string) (uint64, bool) {
	_, idx, ok := s.Layout.Find(name)
	if !ok {
		return 0, false
	}
	return s.payload[idx], true
}

// SetField stages a named payload field for the next commit, masked to
// the field's declared width.
func (s *Stream) SetField(name string, v uint64) {
	f, idx, ok := s.Layout.Find(name)
	if !ok {
		panic(fmt.Sprintf("streamfab: stream %q has no field %q", s.Name, name))
	}
	s.nextPayload[idx] = mask(v, f.Width)
}

// CurrentField is like Field but reads the not-yet-committed staged
// value; used by components that stage several field writes across one
// Step and need to read back a value they just set in the same call.
func (s *Stream) CurrentField(name string) uint64 {
	_, idx, ok := s.Layout.Find(name)
	if !ok {
		panic(fmt.Sprintf("streamfab: stream %q has no field %q", s.Name, name))
	}
	return s.nextPayload[idx]
}

// CatPayload concatenates all payload fields (in layout order) into a
// single bit vector, optionally appending First and Last as the two
// highest-order bits (First above Last). Layout.validate caps the payload
// alone at 64 bits and reserves no room for the flags: with a payload
// wider than 62 bits, a flag that would land at bit 64 or above is dropped.
func (s *Stream) CatPayload(includeFlags bool) uint64 {
	var v uint64
	shift := 0
	for i, f := range s.Layout {
		v |= mask(s.payload[i], f.Width) << shift
		shift += f.Width
	}
	if includeFlags {
		if s.First {
			v |= 1 << shift
		}
		shift++
		if s.Last {
			v |= 1 << shift
		}
	}
	return v
}

// PayloadEq is the inverse of CatPayload: it stages each field (and,
// if includeFlags, First/Last) by slicing vec in layout order.
func (s *Stream) PayloadEq(vec uint64, includeFlags bool) {
	shift := 0
	for i, f := range s.Layout {
		s.nextPayload[i] = mask(vec>>shift, f.Width)
		shift += f.Width
	}
	if includeFlags {
		s.nextFirst = (vec>>shift)&1 != 0
		shift++
		s.nextLast = (vec>>shift)&1 != 0
	}
}

// CatDict builds a payload-vector the way CatPayload does, but from a
// sparse map of field values (absent fields default to zero) -- used by
// SourceSim.Push to accept a subset of named fields.
func (s *Stream) CatDict(d map[string]uint64, includeFlags bool) uint64 {
	return LayoutCatDict(s.Layout, d, includeFlags)
}

// LayoutCatDict is the Layout-only form of Stream.CatDict, usable at
// construction time before a Stream exists (e.g. StreamInit's precomputed
// initial-packet vectors).
func LayoutCatDict(layout Layout, d map[string]uint64, includeFlags bool) uint64 {
	var v uint64
	shift := 0
	for _, f := range layout {
		v |= mask(d[f.Name], f.Width) << shift
		shift += f.Width
	}
	if includeFlags {
		if d["first"] != 0 {
			v |= 1 << shift
		}
		shift++
		if d["last"] != 0 {
			v |= 1 << shift
		}
	}
	return v
}

// Fired reports whether a transfer occurred on the last committed cycle:
// Valid and Ready both held.
func (s *Stream) Fired() bool { return s.Valid && s.Ready }

func mask(v uint64, width int) uint64 {
	if width >= 64 {
		return v
	}
	return v & (1<<uint(width) - 1)
}

// SignExtend sign-extends the low width bits of v to a full 64-bit
// two's-complement value -- used by the signed arithmetic ops (MulSigned,
// AddSigned, SumSigned) to emulate Amaranth's Signal(signed(n)) cast.
func SignExtend(v uint64, width int) int64 {
	v = mask(v, width)
	if width >= 64 {
		return int64(v)
	}
	shift := uint(64 - width)
	return int64(v<<shift) >> shift
}

// bitLen is the minimum number of bits needed to represent n distinct
// values (n >= 1), clamped to a minimum of 1 per spec.md's Open Question
// on BitState's width for single-bit inputs.
func bitLen(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

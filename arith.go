package streamfab

// BinaryOp/Mul/Add/MulSigned/AddSigned and Sum/SumSigned are grounded
// directly on original_source/streams/ops.py. Max has no surviving
// source file (spec.md section 4.8); it is built as a BinaryOp-shaped
// single-beat combinational op, like Mul/Add.

// BinaryOp reads one beat with fields a, b and produces exactly one
// output beat data per input beat, applying a fixed algebraic op.
// first/last propagate unchanged.
type BinaryOp struct {
	I, O           *Stream
	iwidth, owidth int
	op             func(a, b uint64) uint64
}

func newBinaryOp(n *Netlist, iwidth, owidth int, op func(a, b uint64) uint64, name string) *BinaryOp {
	b := &BinaryOp{
		I:      n.NewStream(Layout{{Name: "a", Width: iwidth}, {Name: "b", Width: iwidth}}, name+".i"),
		O:      n.NewStream(Layout{{Name: "data", Width: owidth}}, name+".o"),
		iwidth: iwidth,
		owidth: owidth,
		op:     op,
	}
	n.Add(b)
	return b
}

// NewMul builds a BinaryOp computing the unsigned product a*b.
func NewMul(n *Netlist, iwidth, owidth int, name string) *BinaryOp {
	return newBinaryOp(n, iwidth, owidth, func(a, b uint64) uint64 { return a * b }, name)
}

// NewAdd builds a BinaryOp computing the unsigned sum a+b.
func NewAdd(n *Netlist, iwidth, owidth int, name string) *BinaryOp {
	return newBinaryOp(n, iwidth, owidth, func(a, b uint64) uint64 { return a + b }, name)
}

// NewMulSigned builds a BinaryOp that sign-extends a and b (each iwidth
// bits) before multiplying.
func NewMulSigned(n *Netlist, iwidth, owidth int, name string) *BinaryOp {
	return newBinaryOp(n, iwidth, owidth, func(a, b uint64) uint64 {
		sa, sb := SignExtend(a, iwidth), SignExtend(b, iwidth)
		return uint64(sa * sb)
	}, name)
}

// NewAddSigned builds a BinaryOp that sign-extends a and b (each iwidth
// bits) before adding.
func NewAddSigned(n *Netlist, iwidth, owidth int, name string) *BinaryOp {
	return newBinaryOp(n, iwidth, owidth, func(a, b uint64) uint64 {
		sa, sb := SignExtend(a, iwidth), SignExtend(b, iwidth)
		return uint64(sa + sb)
	}, name)
}

// NewMax builds a BinaryOp computing the pairwise signed maximum of a
// and b.
func NewMax(n *Netlist, iwidth, owidth int, name string) *BinaryOp {
	return newBinaryOp(n, iwidth, owidth, func(a, b uint64) uint64 {
		sa, sb := SignExtend(a, iwidth), SignExtend(b, iwidth)
		if sa > sb {
			return uint64(sa)
		}
		return uint64(sb)
	}, name)
}

func (b *BinaryOp) Step() {
	if b.I.Valid && b.I.Ready {
		b.I.SetReady(false)
		b.O.SetField("data", mask(b.op(b.I.Field("a"), b.I.Field("b")), b.owidth))
		b.O.SetFirst(b.I.First)
		b.O.SetLast(b.I.Last)
		b.O.SetValid(true)
	}
	if b.O.Valid && b.O.Ready {
		b.O.SetValid(false)
	}
	if !b.I.Ready && !b.O.Valid {
		b.I.SetReady(true)
	}
}

// Reset is a no-op; BinaryOp holds no state beyond its output latch.
func (b *BinaryOp) Reset() {}

// Sum accumulates the data field across a packet, resetting the
// accumulator on first and emitting one output beat (modulo 2^owidth)
// when last is seen.
type Sum struct {
	I, O           *Stream
	iwidth, owidth int
	signed         bool
	acc            uint64
}

func newSum(n *Netlist, iwidth, owidth int, signed bool, name string) *Sum {
	s := &Sum{
		I:      n.NewStream(Layout{{Name: "data", Width: iwidth}}, name+".i"),
		O:      n.NewStream(Layout{{Name: "data", Width: owidth}}, name+".o"),
		iwidth: iwidth,
		owidth: owidth,
		signed: signed,
	}
	n.Add(s)
	return s
}

// NewSum builds an unsigned Sum(iwidth, owidth).
func NewSum(n *Netlist, iwidth, owidth int, name string) *Sum {
	return newSum(n, iwidth, owidth, false, name)
}

// NewSumSigned builds a sign-extending Sum(iwidth, owidth).
func NewSumSigned(n *Netlist, iwidth, owidth int, name string) *Sum {
	return newSum(n, iwidth, owidth, true, name)
}

func (s *Sum) combine(accWidth int, acc uint64, dataWidth int, data uint64) uint64 {
	if s.signed {
		return mask(uint64(SignExtend(acc, accWidth)+SignExtend(data, dataWidth)), s.owidth)
	}
	return mask(acc+data, s.owidth)
}

func (s *Sum) Step() {
	if s.I.Valid && s.I.Ready {
		s.I.SetReady(false)
		data := s.I.Field("data")
		if s.I.First {
			s.acc = s.combine(s.owidth, 0, s.iwidth, data)
		} else {
			s.acc = s.combine(s.owidth, s.acc, s.iwidth, data)
		}
		if s.I.Last {
			s.O.SetField("data", s.acc)
			s.O.SetValid(true)
		}
	}
	if s.O.Valid && s.O.Ready {
		s.O.SetValid(false)
	}
	if !s.I.Ready && !s.O.Valid {
		s.I.SetReady(true)
	}
}

// Reset clears Sum's running accumulator.
func (s *Sum) Reset() { s.acc = 0 }

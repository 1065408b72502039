package streamfab

// DualPortMemory, StreamToRam and RamToStream are grounded on
// original_source/streams/ram.py. The Amaranth source's separate
// read/write Port submodules collapse here into the memory array
// itself, addressed directly by StreamToRam/RamToStream -- there is no
// idiomatic Go analogue to a registered dual-port memory primitive
// worth modelling as its own Component.
//
// RamToStream reads its memory array combinationally off the current
// address rather than replicating the one-cycle registered-read-port
// latency of Memory(transparent=False): a cycle-exact replica would
// need a second hidden pipeline register with no externally visible
// behavioural difference for a functional model, so this fabric reads
// data the same cycle the address is formed (documented simplification,
// consistent with Event's passive-tap simplification in packet.go).

// DualPortMemory is a width-bit-wide, depth-entry backing store shared
// by a StreamToRam writer and a RamToStream reader.
type DualPortMemory struct {
	width, depth int
	data         []uint64
}

// NewDualPortMemory builds a zeroed width-bit, depth-entry memory.
func NewDualPortMemory(width, depth int) *DualPortMemory {
	return &DualPortMemory{width: width, depth: depth, data: make([]uint64, depth)}
}

// Read returns the width-bit value stored at addr (0 if addr is out of
// range).
func (m *DualPortMemory) Read(addr int) uint64 {
	if addr < 0 || addr >= m.depth {
		return 0
	}
	return m.data[addr]
}

// Write stores v (masked to width bits) at addr; out-of-range addr is
// ignored.
func (m *DualPortMemory) Write(addr int, v uint64) {
	if addr < 0 || addr >= m.depth {
		return
	}
	m.data[addr] = mask(v, m.width)
}

// At exposes a memory cell directly, mirroring ram.py's
// DualPortMemory.__getitem__ used by tests to seed or inspect contents.
func (m *DualPortMemory) At(addr int) uint64 { return m.Read(addr) }

// StreamToRam writes each incoming beat's data field into mem at a
// running address: offset on the first beat of a packet, offset+addr
// (incrementing by incr per beat) thereafter. The write itself lands
// one cycle after the beat is accepted, mirroring the source's
// m.d.sync-delayed port.en.
type StreamToRam struct {
	I      *Stream
	mem    *DualPortMemory
	offset uint64
	incr   uint64
	addr   uint64

	portEn   bool
	portAddr uint64
	portData uint64
}

// NewStreamToRam builds a StreamToRam writing width-bit beats into a
// fresh depth-entry DualPortMemory.
func NewStreamToRam(n *Netlist, width, depth int, name string) *StreamToRam {
	return NewStreamToRamInto(n, NewDualPortMemory(width, depth), name)
}

// NewStreamToRamInto builds a StreamToRam writing into an existing
// memory, for pairing with a RamToStream over the same backing store.
func NewStreamToRamInto(n *Netlist, mem *DualPortMemory, name string) *StreamToRam {
	s := &StreamToRam{
		I:    n.NewStream(Layout{{Name: "data", Width: mem.width}}, name+".i"),
		mem:  mem,
		incr: 1,
	}
	n.Add(s)
	return s
}

// Memory returns the backing DualPortMemory.
func (s *StreamToRam) Memory() *DualPortMemory { return s.mem }

// Configure sets the write base address (offset) and per-beat address
// increment (incr; 0 or 1 in the source, left general here).
func (s *StreamToRam) Configure(offset, incr uint64) { s.offset, s.incr = offset, incr }

func (s *StreamToRam) Step() {
	if s.portEn {
		s.mem.Write(int(s.portAddr), s.portData)
	}
	s.portEn = false

	if !s.I.Ready {
		s.I.SetReady(true)
	}

	if s.I.Valid && s.I.Ready {
		s.portEn = true
		s.portData = s.I.Field("data")
		s.I.SetReady(false)

		if s.I.First {
			s.portAddr = s.offset
			s.addr = s.incr
		} else {
			s.portAddr = s.offset + s.addr
			s.addr = s.addr + s.incr
		}
	}
}

// Reset clears StreamToRam's pending write and address registers; the
// memory contents themselves are left untouched.
func (s *StreamToRam) Reset() { s.portEn, s.portAddr, s.portData, s.addr = false, 0, 0, 0 }

// RamToStream reads n consecutive width-bit cells from mem starting at
// offset (stepping by incr), emitting them as a single packet with
// first/last set on the first/last beat.
type RamToStream struct {
	O      *Stream
	mem    *DualPortMemory
	offset uint64
	n      uint64
	incr   uint64

	idx, count uint64
	run        bool
}

// NewRamToStream builds a RamToStream reading width-bit beats from a
// fresh depth-entry DualPortMemory.
func NewRamToStream(n *Netlist, width, depth int, name string) *RamToStream {
	return NewRamToStreamFrom(n, NewDualPortMemory(width, depth), name)
}

// NewRamToStreamFrom builds a RamToStream reading from an existing
// memory, for pairing with a StreamToRam over the same backing store.
func NewRamToStreamFrom(n *Netlist, mem *DualPortMemory, name string) *RamToStream {
	r := &RamToStream{
		O:    n.NewStream(Layout{{Name: "data", Width: mem.width}}, name+".o"),
		mem:  mem,
		incr: 1,
	}
	n.Add(r)
	return r
}

// Memory returns the backing DualPortMemory.
func (r *RamToStream) Memory() *DualPortMemory { return r.mem }

// Configure sets the read base address, packet length and per-beat
// address increment. Call before the next packet starts (while idle).
func (r *RamToStream) Configure(offset, count, incr uint64) {
	r.offset, r.n, r.incr = offset, count, incr
}

func (r *RamToStream) tx() {
	addr := r.idx + r.offset
	r.O.SetValid(true)
	r.O.SetField("data", r.mem.Read(int(addr)))
	r.O.SetFirst(r.count == 0)
	r.O.SetLast(r.count+1 == r.n)
	r.idx += r.incr
	r.count++
}

func (r *RamToStream) Step() {
	if r.O.Valid && r.O.Ready {
		r.O.SetValid(false)
		if r.O.Last {
			r.idx, r.count, r.run = 0, 0, false
		}
	}

	switch {
	case r.O.Ready && !r.run:
		r.run = true
		r.tx()
	case r.run && !r.O.Valid:
		r.tx()
	}
}

// Reset returns RamToStream to idle with its read address and count
// cleared.
func (r *RamToStream) Reset() { r.idx, r.count, r.run = 0, 0, false }

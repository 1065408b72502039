// Package simkit provides the test-bench drivers used to exercise
// streamfab fabrics: a passive Monitor, a Source that replays a
// scripted sequence of beats, and a Sink that greedily accepts
// whatever it is offered. All three are grounded directly on
// original_source/streams/sim.py's MonitorSim/SourceSim/SinkSim,
// adapted from Amaranth's generator-based simulation processes to
// streamfab.Netlist's Component/Step model: each is registered as an
// ordinary Component and driven by Netlist.Tick like any other part of
// the fabric under test.
package simkit

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/DaveBerkeley/streamfab"
)

// Beat is one recorded transfer: the tick it fired on, plus every
// payload field (including "first" and "last" as 0/1) as committed
// that cycle.
type Beat struct {
	Tick   uint64
	Fields map[string]uint64
}

// MonitorSim passively records every transfer (Valid && Ready) seen on
// a tapped Stream, grouping consecutive beats into packets split on
// First. It never drives Ready itself.
type MonitorSim struct {
	stream  *streamfab.Stream
	name    string
	packets [][]Beat
	t       uint64
}

func newMonitorSim(s *streamfab.Stream, name string) *MonitorSim {
	return &MonitorSim{stream: s, name: name, packets: [][]Beat{{}}}
}

// NewMonitorSim builds a MonitorSim tapping stream, registered as a
// Netlist Component so its Poll runs every tick.
func NewMonitorSim(n *streamfab.Netlist, s *streamfab.Stream, name string) *MonitorSim {
	m := newMonitorSim(s, name)
	n.Add(m)
	return m
}

func (m *MonitorSim) poll() {
	m.t++
	if !(m.stream.Valid && m.stream.Ready) {
		return
	}
	if m.stream.First && len(m.packets[len(m.packets)-1]) > 0 {
		m.packets = append(m.packets, nil)
	}
	rec := Beat{Tick: m.t, Fields: make(map[string]uint64, len(m.stream.Layout)+2)}
	for _, f := range m.stream.Layout {
		rec.Fields[f.Name] = m.stream.Field(f.Name)
	}
	rec.Fields["first"] = boolToUint(m.stream.First)
	rec.Fields["last"] = boolToUint(m.stream.Last)
	last := len(m.packets) - 1
	m.packets[last] = append(m.packets[last], rec)
}

// Step records the current cycle's transfer, if any.
func (m *MonitorSim) Step() { m.poll() }

// Reset discards all recorded packets.
func (m *MonitorSim) Reset() { m.packets = [][]Beat{{}} }

// Data returns every recorded packet, oldest first.
func (m *MonitorSim) Data() [][]Beat { return m.packets }

// Field extracts one named field's values from every recorded packet,
// preserving packet and beat order.
func (m *MonitorSim) Field(field string) [][]uint64 {
	out := make([][]uint64, len(m.packets))
	for i, p := range m.packets {
		vals := make([]uint64, len(p))
		for j, b := range p {
			vals[j] = b.Fields[field]
		}
		out[i] = vals
	}
	return out
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// SinkSim is a MonitorSim that also drives Ready: it asserts Ready
// whenever it is not currently mid-transfer, greedily accepting every
// beat offered to it (unless readData is false, in which case it never
// asserts Ready and only observes).
type SinkSim struct {
	*MonitorSim
	readData bool
}

// NewSinkSim builds a SinkSim over stream. When readData is false the
// sink never asserts Ready, matching SinkSim(read_data=False) in the
// source.
func NewSinkSim(n *streamfab.Netlist, s *streamfab.Stream, name string, readData bool) *SinkSim {
	sink := &SinkSim{MonitorSim: newMonitorSim(s, name), readData: readData}
	n.Add(sink)
	return sink
}

func (s *SinkSim) Step() {
	s.MonitorSim.poll()
	switch {
	case s.stream.Valid && s.stream.Ready:
		s.stream.SetReady(false)
	case !s.stream.Ready:
		if s.readData {
			s.stream.SetReady(true)
		}
	}
}

// Reset discards recorded packets and de-asserts Ready.
func (s *SinkSim) Reset() {
	s.MonitorSim.Reset()
	s.stream.SetReady(false)
}

type pendingBeat struct {
	tick   uint64
	fields map[string]uint64
}

// SourceSim replays a scripted sequence of beats onto a Stream it
// drives, each released no earlier than its configured tick.
type SourceSim struct {
	stream  *streamfab.Stream
	name    string
	Verbose bool

	queue []pendingBeat
	idx   int
	t     uint64
}

// NewSourceSim builds a SourceSim driving a fresh registration onto
// stream.
func NewSourceSim(n *streamfab.Netlist, s *streamfab.Stream, name string) *SourceSim {
	src := &SourceSim{stream: s, name: name}
	n.Add(src)
	return src
}

// Push schedules one beat (a sparse field->value map, as accepted by
// Stream.CatDict) to be offered no earlier than tick t.
func (s *SourceSim) Push(t uint64, fields map[string]uint64) {
	s.queue = append(s.queue, pendingBeat{tick: t, fields: fields})
}

// PushPacket schedules an entire packet, stamping first/last on the
// boundary beats via ToPacket.
func (s *SourceSim) PushPacket(t uint64, beats []map[string]uint64) {
	for _, b := range ToPacket(beats) {
		s.Push(t, b)
	}
}

func (s *SourceSim) Step() {
	s.t++

	if s.stream.Valid && s.stream.Ready {
		s.stream.SetValid(false)
		return
	}
	if s.stream.Valid {
		return
	}
	if s.idx >= len(s.queue) {
		return
	}
	next := s.queue[s.idx]
	if next.tick > s.t {
		return
	}

	if s.Verbose {
		fmt.Printf("%s tx %d %v\n", s.name, next.tick, next.fields)
	}
	s.stream.PayloadEq(s.stream.CatDict(next.fields, true), true)
	s.stream.SetValid(true)
	s.idx++
}

// Reset rewinds SourceSim to the start of its pushed queue and
// de-asserts Valid.
func (s *SourceSim) Reset() {
	s.idx, s.t = 0, 0
	s.stream.SetValid(false)
}

// ToPacket stamps first=1 on the first beat and last=1 on the final
// beat of beats, returning annotated copies suitable for sequential
// SourceSim.Push calls (the shape SourceSim.PushPacket builds for you).
func ToPacket(beats []map[string]uint64) []map[string]uint64 {
	out := make([]map[string]uint64, len(beats))
	for i, b := range beats {
		m := make(map[string]uint64, len(b)+2)
		for k, v := range b {
			m[k] = v
		}
		if i == 0 {
			m["first"] = 1
		}
		if i == len(beats)-1 {
			m["last"] = 1
		}
		out[i] = m
	}
	return out
}

// Run advances netlist by the given number of ticks.
func Run(n *streamfab.Netlist, ticks int) {
	for i := 0; i < ticks; i++ {
		n.Tick()
	}
}

// Fingerprint hashes a deterministic serialization of recorded packets
// with xxhash, for compact golden-trace comparisons in tests where the
// full beat-by-beat contents would be unwieldy to assert inline.
func Fingerprint(packets [][]Beat) uint64 {
	h := xxhash.New()
	for _, p := range packets {
		for _, b := range p {
			keys := make([]string, 0, len(b.Fields))
			for k := range b.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(h, "%s=%d;", k, b.Fields[k])
			}
			h.Write([]byte("|"))
		}
		h.Write([]byte("#"))
	}
	return h.Sum64()
}

package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func TestAbs_SignedAbsoluteValue(t *testing.T) {
	n := streamfab.NewNetlist()
	a := streamfab.NewAbs(n, 8, 8, "a")
	source := simkit.NewSourceSim(n, a.I, "source")
	sink := simkit.NewSinkSim(n, a.O, "sink", true)
	source.Push(0, map[string]uint64{"data": uint64(0xF6), "first": 1, "last": 1}) // -10

	simkit.Run(n, 6)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{10}, packets[0])
}

// Delta emits 0 on the first beat of a packet, then the signed
// difference from the previous value thereafter.
func TestDelta_EmitsDifferenceWithinPacket(t *testing.T) {
	n := streamfab.NewNetlist()
	d := streamfab.NewDelta(n, 8, "d")
	source := simkit.NewSourceSim(n, d.I, "source")
	sink := simkit.NewSinkSim(n, d.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 5}, {"data": 8}, {"data": 3}})

	simkit.Run(n, 12)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{0, 3, uint64(int64(3-8)) & 0xFF}, packets[0])
}

// BitState explodes one 16-bit "data" beat into a 4-beat packet (W =
// bitLen(16) = 4), beat i carrying bit index i in "data" and that bit's
// value in "state"; "r"/"g"/"b" are copied onto every beat. Grounded on
// original_source/tests/test_ops.py's sim_bit_change/make_packet, which
// checks exactly this (index, bit) sequence for a BitState(layout=[
// ("data",16),("r",8),("g",8),("b",8)], field="data") instance.
func TestBitState_ExplodesFieldIntoPerBitPacket(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{
		{Name: "data", Width: 16}, {Name: "r", Width: 8}, {Name: "g", Width: 8}, {Name: "b", Width: 8},
	}
	b := streamfab.NewBitState(n, layout, "data", "state", "b")
	source := simkit.NewSourceSim(n, b.I, "source")
	sink := simkit.NewSinkSim(n, b.O, "sink", true)
	source.Push(0, map[string]uint64{"data": 5, "r": 1, "g": 2, "b": 3, "first": 1, "last": 1})

	simkit.Run(n, 10)

	packets := sink.Data()
	require.Len(t, packets, 1)
	require.Len(t, packets[0], 4)
	for i, beat := range packets[0] {
		assert.Equal(t, uint64(i), beat.Fields["data"], "beat %d index", i)
		assert.Equal(t, (uint64(5)>>uint(i))&1, beat.Fields["state"], "beat %d bit", i)
		assert.Equal(t, uint64(1), beat.Fields["r"])
		assert.Equal(t, uint64(2), beat.Fields["g"])
		assert.Equal(t, uint64(3), beat.Fields["b"])
		assert.Equal(t, b2u(i == 0), beat.Fields["first"])
		assert.Equal(t, b2u(i == 3), beat.Fields["last"])
	}
}

// BitToN reduces a mask to the index of its highest set bit, dropping
// zero-mask beats entirely. Grounded on sim_bit_to_n's data/expect
// tables: 3 -> 1, 7 -> 2, 0 -> dropped.
func TestBitToN_HighestSetBitDropsZero(t *testing.T) {
	n := streamfab.NewNetlist()
	b := streamfab.NewBitToN(n, 8, "b")
	source := simkit.NewSourceSim(n, b.I, "source")
	sink := simkit.NewSinkSim(n, b.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"state": 3}, {"state": 0}, {"state": 7}})

	simkit.Run(n, 14)

	packets := sink.Field("bit")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{1, 2}, packets[0])
}

// Decimate keeps one beat out of every factor, restarting the count on
// each packet's first beat.
func TestDecimate_KeepsOneOfEveryFactor(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	d := streamfab.NewDecimate(n, layout, 3, "d")
	source := simkit.NewSourceSim(n, d.I, "source")
	sink := simkit.NewSinkSim(n, d.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{
		{"data": 1}, {"data": 2}, {"data": 3}, {"data": 4}, {"data": 5}, {"data": 6},
	})

	simkit.Run(n, 24)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{1, 4}, packets[0])
}

// Enumerate appends a running per-packet index alongside the forwarded
// payload.
func TestEnumerate_AppendsRunningIndex(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	e := streamfab.NewEnumerate(n, layout, 8, "e")
	source := simkit.NewSourceSim(n, e.I, "source")
	sink := simkit.NewSinkSim(n, e.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 10}, {"data": 20}, {"data": 30}})

	simkit.Run(n, 14)

	packets := sink.Field("index")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{0, 1, 2}, packets[0])
	assert.Equal(t, []uint64{10, 20, 30}, sink.Field("data")[0])
}

// ConstSource continuously re-offers the same single-beat packet.
func TestConstSource_RepeatsFixedBeat(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	c := streamfab.NewConstSource(n, layout, map[string]uint64{"data": 0x42}, "c")
	sink := simkit.NewSinkSim(n, c.O, "sink", true)

	simkit.Run(n, 8)

	packets := sink.Field("data")
	require.GreaterOrEqual(t, len(packets), 2)
	for _, p := range packets {
		require.Len(t, p, 1)
		assert.Equal(t, uint64(0x42), p[0])
	}
}

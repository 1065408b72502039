package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// Copy forwards every beat of a packet unchanged, one transfer at a time.
func TestCopy_ForwardsPacket(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	c := streamfab.NewCopy(n, layout, "c")
	source := simkit.NewSourceSim(n, c.I, "source")
	sink := simkit.NewSinkSim(n, c.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}, {"data": 3}})

	simkit.Run(n, 16)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{1, 2, 3}, packets[0])
}

// Copy holds a beat until its consumer is ready, so a stalled Sink blocks
// the second beat from latching.
func TestCopy_HoldsUntilConsumerReady(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	c := streamfab.NewCopy(n, layout, "c")
	source := simkit.NewSourceSim(n, c.I, "source")
	source.PushPacket(0, []map[string]uint64{{"data": 9}, {"data": 10}})

	// No consumer at all: c.O.Ready stays false, so only one beat ever latches.
	simkit.Run(n, 6)

	assert.True(t, c.O.Valid)
	assert.Equal(t, uint64(9), c.O.Field("data"))
}

// Sink always accepts and discards whatever is offered to it.
func TestSink_AlwaysReady(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	s := streamfab.NewSink(n, layout, "sink")
	source := simkit.NewSourceSim(n, s.I, "source")
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}})

	simkit.Run(n, 8)

	assert.False(t, s.I.Valid)
	assert.True(t, s.I.Ready)
}

// Gate admits no input while disabled, then forwards once enabled.
func TestGate_BlocksUntilEnabled(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	g := streamfab.NewGate(n, layout, "g")
	source := simkit.NewSourceSim(n, g.I, "source")
	sink := simkit.NewSinkSim(n, g.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 5}})

	simkit.Run(n, 4)
	require.Empty(t, sink.Field("data")[0])

	g.SetEnable(true)
	simkit.Run(n, 6)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{5}, packets[0])
}

// StreamInit replays its configured beats before transparently forwarding I.
func TestStreamInit_ReplaysThenForwards(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	init := []map[string]uint64{{"data": 0xAA}, {"data": 0xBB}}
	si := streamfab.NewStreamInit(n, layout, init, "si")
	source := simkit.NewSourceSim(n, si.I, "source")
	sink := simkit.NewSinkSim(n, si.O, "sink", true)
	source.Push(0, map[string]uint64{"data": 0x11})

	simkit.Run(n, 20)

	vals := sink.Field("data")[0]
	require.GreaterOrEqual(t, len(vals), 3)
	assert.Equal(t, uint64(0xAA), vals[0])
	assert.Equal(t, uint64(0xBB), vals[1])
	assert.Equal(t, uint64(0x11), vals[2])
}

// NewStreamInit panics on an empty init sequence, matching the source's
// assert on a non-empty data list.
func TestStreamInit_EmptyBeats_Panics(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	assert.Panics(t, func() {
		streamfab.NewStreamInit(n, layout, nil, "si")
	})
}

// Clear reverts StreamInit to replaying its initial sequence from scratch.
func TestStreamInit_Clear_Replays(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	si := streamfab.NewStreamInit(n, layout, []map[string]uint64{{"data": 0x7}}, "si")
	sink := simkit.NewSinkSim(n, si.O, "sink", true)

	simkit.Run(n, 6)
	require.NotEmpty(t, sink.Field("data")[0])

	sink.Reset()
	si.Clear()
	simkit.Run(n, 6)

	vals := sink.Field("data")[0]
	require.NotEmpty(t, vals)
	assert.Equal(t, uint64(0x7), vals[0])
}

// StreamNull drops the first n transfers, then forwards transparently.
func TestStreamNull_DropsThenForwards(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	sn := streamfab.NewStreamNull(n, 2, layout, "sn")
	source := simkit.NewSourceSim(n, sn.I, "source")
	sink := simkit.NewSinkSim(n, sn.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}, {"data": 3}})

	simkit.Run(n, 16)

	vals := sink.Field("data")[0]
	assert.Equal(t, []uint64{3}, vals)
}

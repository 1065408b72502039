package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// Packetiser groups an unframed beat stream into packets of at most
// maxSize elements.
func TestPacketiser_GroupsIntoFixedSizePackets(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	p := streamfab.NewPacketiser(n, layout, 2, "p")
	source := simkit.NewSourceSim(n, p.I, "source")
	sink := simkit.NewSinkSim(n, p.O, "sink", true)
	for _, v := range []uint64{1, 2, 3, 4, 5} {
		source.Push(0, map[string]uint64{"data": v})
	}

	simkit.Run(n, 40)

	packets := sink.Field("data")
	require.Len(t, packets, 3)
	assert.Equal(t, []uint64{1, 2}, packets[0])
	assert.Equal(t, []uint64{3, 4}, packets[1])
	assert.Equal(t, []uint64{5}, packets[2])
}

// StreamSync forwards an entire packet unchanged, stalling only before
// the first beat.
func TestStreamSync_ForwardsPacket(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	s := streamfab.NewStreamSync(n, layout, "s")
	source := simkit.NewSourceSim(n, s.I, "source")
	sink := simkit.NewSinkSim(n, s.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}, {"data": 3}})

	simkit.Run(n, 16)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{1, 2, 3}, packets[0])
}

// Head(n=3) on packet [16,4,5,6,7,8]: head[0..2]=[16,4,5], forwarded
// packet [6,7,8], per spec.md section 8 scenario 5.
func TestHead_CapturesPrefixAndForwardsRemainder(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	h := streamfab.NewHead(n, layout, "data", 3, "h")
	source := simkit.NewSourceSim(n, h.I, "source")
	sink := simkit.NewSinkSim(n, h.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{
		{"data": 16}, {"data": 4}, {"data": 5}, {"data": 6}, {"data": 7}, {"data": 8},
	})

	simkit.Run(n, 30)

	require.True(t, h.Valid())
	assert.Equal(t, uint64(16), h.Captured(0))
	assert.Equal(t, uint64(4), h.Captured(1))
	assert.Equal(t, uint64(5), h.Captured(2))

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{6, 7, 8}, packets[0])
}

// A packet ending before n beats leaves head holding a partial prefix
// and forwards nothing.
func TestHead_ShortPacket_NoForward(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	h := streamfab.NewHead(n, layout, "data", 3, "h")
	source := simkit.NewSourceSim(n, h.I, "source")
	sink := simkit.NewSinkSim(n, h.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}})

	simkit.Run(n, 16)

	assert.False(t, h.Valid())
	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Empty(t, packets[0])
}

// Event emits a zero-payload pulse on o_data for every transfer it taps,
// without ever driving the tapped Stream's Ready itself. Each event output
// is a Stream like any other, so a SinkSim accepts (and records) its pulses.
func TestEvent_PulsesOnTappedTransfer(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	tap := n.NewStream(layout, "tap")
	e := streamfab.NewEvent(n, tap, []string{"first", "last", "data"}, "e")
	source := simkit.NewSourceSim(n, tap, "source")
	sink := simkit.NewSinkSim(n, tap, "sink", true)
	monData := simkit.NewSinkSim(n, e.OData(), "mon_data", true)
	monFirst := simkit.NewSinkSim(n, e.OFirst(), "mon_first", true)
	monLast := simkit.NewSinkSim(n, e.OLast(), "mon_last", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}})

	simkit.Run(n, 12)

	require.Len(t, sink.Field("data")[0], 2)
	assert.Len(t, monData.Data()[0], 2)
	assert.Len(t, monFirst.Data()[0], 1)
	assert.Len(t, monLast.Data()[0], 1)
}

// NewEvent panics when given no events to observe.
func TestEvent_NoEvents_Panics(t *testing.T) {
	n := streamfab.NewNetlist()
	tap := n.NewStream(streamfab.Layout{{Name: "data", Width: 8}}, "tap")
	assert.Panics(t, func() {
		streamfab.NewEvent(n, tap, nil, "e")
	})
}

// Sequencer emits count values starting at base, stepping by incr, with
// first/last set on the boundary beats.
func TestSequencer_EmitsConfiguredSequence(t *testing.T) {
	n := streamfab.NewNetlist()
	s := streamfab.NewSequencer(n, 8, "s")
	sink := simkit.NewSinkSim(n, s.O, "sink", true)
	s.Configure(5, 3, 2)
	s.SetEnable(true)

	simkit.Run(n, 10)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{5, 7, 9}, packets[0])
	assert.False(t, s.Busy())
}

// GatePacket admits a whole packet once en is asserted at its first
// beat, and does not re-gate mid-packet even if en later drops.
func TestGatePacket_AdmitsWholePacketOnce(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	g := streamfab.NewGatePacket(n, layout, "g")
	source := simkit.NewSourceSim(n, g.I, "source")
	sink := simkit.NewSinkSim(n, g.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}, {"data": 3}})

	g.SetEnable(true)
	simkit.Run(n, 2)
	g.SetEnable(false)
	simkit.Run(n, 14)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{1, 2, 3}, packets[0])
}

// GatePacket blocks a packet entirely when en never rises before its
// first beat passes.
func TestGatePacket_BlocksWhenDisabled(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	g := streamfab.NewGatePacket(n, layout, "g")
	source := simkit.NewSourceSim(n, g.I, "source")
	sink := simkit.NewSinkSim(n, g.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 1}})

	simkit.Run(n, 10)

	assert.Empty(t, sink.Field("data")[0])
}

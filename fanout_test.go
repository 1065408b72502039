package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// Tee broadcasts each input beat to every output; with waitAll=false the
// next beat is admitted once any output has freed its slot.
func TestTee_BroadcastsToAllOutputs(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	tee := streamfab.NewTee(n, layout, 2, false, "tee")
	source := simkit.NewSourceSim(n, tee.I, "source")
	sink0 := simkit.NewSinkSim(n, tee.Outs[0], "sink0", true)
	sink1 := simkit.NewSinkSim(n, tee.Outs[1], "sink1", true)
	source.PushPacket(0, []map[string]uint64{{"data": 7}, {"data": 8}})

	simkit.Run(n, 14)

	assert.Equal(t, []uint64{7, 8}, sink0.Field("data")[0])
	assert.Equal(t, []uint64{7, 8}, sink1.Field("data")[0])
}

// With waitAll=true, Tee stalls the next input beat until every output
// has consumed the previous one.
func TestTee_WaitAll_BlocksUntilAllOutputsConsume(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "data", Width: 8}}
	tee := streamfab.NewTee(n, layout, 2, true, "tee")
	source := simkit.NewSourceSim(n, tee.I, "source")
	sink0 := simkit.NewSinkSim(n, tee.Outs[0], "sink0", true)
	// Output 1 has no consumer, so it never frees its pending slot.
	source.PushPacket(0, []map[string]uint64{{"data": 1}, {"data": 2}})

	simkit.Run(n, 10)

	assert.Equal(t, []uint64{1}, sink0.Field("data")[0])
	assert.True(t, tee.Outs[1].Valid)
}

// Split fans a transfer's fields out, one per output, demuxed
// independently.
func TestSplit_DemuxesEachField(t *testing.T) {
	n := streamfab.NewNetlist()
	layout := streamfab.Layout{{Name: "a", Width: 8}, {Name: "b", Width: 4}}
	s := streamfab.NewSplit(n, layout, "s")
	source := simkit.NewSourceSim(n, s.I, "source")
	sinkA := simkit.NewSinkSim(n, s.Outs[0], "sinkA", true)
	sinkB := simkit.NewSinkSim(n, s.Outs[1], "sinkB", true)
	source.Push(0, map[string]uint64{"a": 0x5A, "b": 0x3, "first": 1, "last": 1})

	simkit.Run(n, 8)

	require.Len(t, sinkA.Field("data")[0], 1)
	require.Len(t, sinkB.Field("data")[0], 1)
	assert.Equal(t, uint64(0x5A), sinkA.Field("data")[0][0])
	assert.Equal(t, uint64(0x3), sinkB.Field("data")[0][0])
}

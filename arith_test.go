package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// u16 encodes a signed value into its 16-bit two's-complement bit
// pattern, the wire representation every Stream field carries.
func u16(v int64) uint64 { return uint64(v) & 0xFFFF }

func TestMul_UnsignedProduct(t *testing.T) {
	n := streamfab.NewNetlist()
	m := streamfab.NewMul(n, 8, 16, "m")
	source := simkit.NewSourceSim(n, m.I, "source")
	sink := simkit.NewSinkSim(n, m.O, "sink", true)
	source.Push(0, map[string]uint64{"a": 6, "b": 7, "first": 1, "last": 1})

	simkit.Run(n, 6)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{42}, packets[0])
}

func TestAddSigned_SignExtendsBeforeAdding(t *testing.T) {
	n := streamfab.NewNetlist()
	a := streamfab.NewAddSigned(n, 8, 8, "a")
	source := simkit.NewSourceSim(n, a.I, "source")
	sink := simkit.NewSinkSim(n, a.O, "sink", true)
	// -3 + 5 = 2, both 8-bit operands.
	source.Push(0, map[string]uint64{"a": uint64(0xFD), "b": 5, "first": 1, "last": 1})

	simkit.Run(n, 6)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{2}, packets[0])
}

func TestMax_PairwiseSignedMaximum(t *testing.T) {
	n := streamfab.NewNetlist()
	m := streamfab.NewMax(n, 8, 8, "m")
	source := simkit.NewSourceSim(n, m.I, "source")
	sink := simkit.NewSinkSim(n, m.O, "sink", true)
	// -1 vs 3: max is 3.
	source.Push(0, map[string]uint64{"a": uint64(0xFF), "b": 3, "first": 1, "last": 1})

	simkit.Run(n, 6)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{3}, packets[0])
}

// SumSigned(iw=16, ow=32) on packet [1,-2,4,-8,16,-32,64] sums to 43,
// per spec.md section 8 scenario 1.
func TestSumSigned_AccumulatesAcrossPacket(t *testing.T) {
	n := streamfab.NewNetlist()
	s := streamfab.NewSumSigned(n, 16, 32, "s")
	source := simkit.NewSourceSim(n, s.I, "source")
	sink := simkit.NewSinkSim(n, s.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{
		{"data": u16(1)}, {"data": u16(-2)}, {"data": u16(4)}, {"data": u16(-8)},
		{"data": u16(16)}, {"data": u16(-32)}, {"data": u16(64)},
	})

	simkit.Run(n, 30)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	require.Len(t, packets[0], 1)
	assert.Equal(t, uint64(43), packets[0][0])
}

func TestSum_UnsignedWrapsModuloOwidth(t *testing.T) {
	n := streamfab.NewNetlist()
	s := streamfab.NewSum(n, 8, 8, "s")
	source := simkit.NewSourceSim(n, s.I, "source")
	sink := simkit.NewSinkSim(n, s.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 200}, {"data": 100}})

	simkit.Run(n, 10)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{(200 + 100) % 256}, packets[0])
}

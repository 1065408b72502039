package streamfab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// MuxDown(32->8) on packet [0x12345678, 0x11223344] serializes
// LSBs-first into eight bytes, per spec.md section 8 scenario 3.
func TestMuxDown_SerializesLSBsFirst(t *testing.T) {
	n := streamfab.NewNetlist()
	m, err := streamfab.NewMuxDown(n, 32, 8, "m")
	require.NoError(t, err)
	source := simkit.NewSourceSim(n, m.I, "source")
	sink := simkit.NewSinkSim(n, m.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 0x12345678}, {"data": 0x11223344}})

	simkit.Run(n, 40)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{0x78, 0x56, 0x34, 0x12, 0x44, 0x33, 0x22, 0x11}, packets[0])
}

// MuxDown rejects an iwidth that is not a multiple of owidth.
func TestNewMuxDown_NotAMultiple_Errors(t *testing.T) {
	n := streamfab.NewNetlist()
	_, err := streamfab.NewMuxDown(n, 12, 8, "m")
	assert.ErrorIs(t, err, streamfab.ErrInvalidWidth)
}

// MuxUp(8->16) on packet [0x01,0x02,0x03,0x04] accumulates two input
// beats per output beat, MSB-first, per spec.md section 8 scenario 4.
func TestMuxUp_AccumulatesMSBFirst(t *testing.T) {
	n := streamfab.NewNetlist()
	m, err := streamfab.NewMuxUp(n, 8, 16, "m")
	require.NoError(t, err)
	source := simkit.NewSourceSim(n, m.I, "source")
	sink := simkit.NewSinkSim(n, m.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{
		{"data": 0x01}, {"data": 0x02}, {"data": 0x03}, {"data": 0x04},
	})

	simkit.Run(n, 40)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{0x0102, 0x0304}, packets[0])
}

// MuxUp flushes early with zero-padding when last arrives before the
// accumulator is full.
func TestMuxUp_EarlyLast_FlushesZeroPadded(t *testing.T) {
	n := streamfab.NewNetlist()
	m, err := streamfab.NewMuxUp(n, 8, 32, "m")
	require.NoError(t, err)
	source := simkit.NewSourceSim(n, m.I, "source")
	sink := simkit.NewSinkSim(n, m.O, "sink", true)
	source.PushPacket(0, []map[string]uint64{{"data": 0xAB}})

	simkit.Run(n, 16)

	packets := sink.Field("data")
	require.Len(t, packets, 1)
	assert.Equal(t, []uint64{0xAB}, packets[0])
}

// MuxUp rejects an owidth narrower than iwidth.
func TestNewMuxUp_OwidthTooNarrow_Errors(t *testing.T) {
	n := streamfab.NewNetlist()
	_, err := streamfab.NewMuxUp(n, 16, 8, "m")
	assert.ErrorIs(t, err, streamfab.ErrInvalidWidth)
}

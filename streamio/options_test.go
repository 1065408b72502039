package streamio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/streamio"
)

// WithBlock/WithRetryDelay configure the retry policy; once the beat has
// already transferred, Read returns it immediately regardless of policy.
func TestReader_WithBlock_ReturnsBufferedData(t *testing.T) {
	n := streamfab.NewNetlist()
	s := n.NewStream(streamfab.Layout{{Name: "data", Width: 8}}, "s")
	w, err := streamio.NewWriter(n, s, "data", streamio.WithNonblock())
	require.NoError(t, err)
	r, err := streamio.NewReader(n, s, "data", streamio.WithBlock())
	require.NoError(t, err)

	_, err = w.Write([]byte{0x42})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		n.Tick()
	}

	buf := make([]byte, 1)
	m, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, m)
	assert.Equal(t, byte(0x42), buf[0])
}

func TestOptions_Defaults(t *testing.T) {
	n := streamfab.NewNetlist()
	s := n.NewStream(streamfab.Layout{{Name: "data", Width: 8}}, "s")
	// No options: defaults to big-endian, unbounded buffer, nonblocking.
	_, err := streamio.NewReader(n, s, "data")
	require.NoError(t, err)
	_, err = streamio.NewWriter(n, s, "data")
	require.NoError(t, err)
}

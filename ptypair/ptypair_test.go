package ptypair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenProducesUsableNamedPair(t *testing.T) {
	p, err := Open()
	require.NoError(t, err)
	defer p.Close()

	require.NotEmpty(t, p.Name)
	require.Equal(t, p.Slave.Name(), p.Name)

	// The slave starts in canonical mode, so a read only completes once a
	// full line has arrived.
	_, err = p.Master.Write([]byte("ping\n"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = p.Slave.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))
}

func TestWinsizePropagatesGeometry(t *testing.T) {
	src, err := Open()
	require.NoError(t, err)
	defer src.Close()

	dst, err := Open()
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, Winsize(src.Master, dst.Master))
}

func TestCloseOnNilPairIsNoop(t *testing.T) {
	var p *Pair
	require.NoError(t, p.Close())
}

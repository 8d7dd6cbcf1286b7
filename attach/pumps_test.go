package attach

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/conmux/mainloop"
	"github.com/projecteru2/conmux/winsize"
)

// Feeds the input stream {E, E, 'x', E, 'q'} through the stdin pump one
// byte at a time and checks the escape state machine: a doubled escape
// forwards a single escape byte, escape-q stops the loop before any
// further write.
func TestStdinPumpEscapeStateMachine(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	defer stdinR.Close()
	defer stdinW.Close()

	masterR, masterW, err := os.Pipe()
	require.NoError(t, err)
	defer masterR.Close()
	defer masterW.Close()

	tracker, err := winsize.New(stdinR, masterW, 1, nil)
	require.NoError(t, err)
	defer tracker.Close()

	pump := stdinPumpHandler(tracker, int(masterW.Fd()))
	fd := int(stdinR.Fd())

	feed := func(b byte) (mainloop.Action, error) {
		t.Helper()
		_, werr := stdinW.Write([]byte{b})
		require.NoError(t, werr)
		return pump(fd)
	}

	action, err := feed(1)
	require.NoError(t, err)
	require.Equal(t, mainloop.Continue, action)
	require.True(t, tracker.SawEscape())

	// Doubled escape forwards one escape byte and resets the state.
	action, err = feed(1)
	require.NoError(t, err)
	require.Equal(t, mainloop.Continue, action)
	require.False(t, tracker.SawEscape())

	action, err = feed('x')
	require.NoError(t, err)
	require.Equal(t, mainloop.Continue, action)

	action, err = feed(1)
	require.NoError(t, err)
	require.Equal(t, mainloop.Continue, action)

	action, err = feed('q')
	require.NoError(t, err)
	require.Equal(t, mainloop.Stop, action)

	// Exactly two bytes made it to the master: the literal escape, then 'x'.
	require.NoError(t, masterW.Close())
	got := make([]byte, 8)
	n, _ := masterR.Read(got)
	require.Equal(t, []byte{1, 'x'}, got[:n])
}

// A bare 'q' with no preceding escape is ordinary data, not a detach.
func TestStdinPumpForwardsPlainQ(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	defer stdinR.Close()
	defer stdinW.Close()

	masterR, masterW, err := os.Pipe()
	require.NoError(t, err)
	defer masterR.Close()
	defer masterW.Close()

	tracker, err := winsize.New(stdinR, masterW, 1, nil)
	require.NoError(t, err)
	defer tracker.Close()

	pump := stdinPumpHandler(tracker, int(masterW.Fd()))

	_, err = stdinW.Write([]byte{'q'})
	require.NoError(t, err)
	action, err := pump(int(stdinR.Fd()))
	require.NoError(t, err)
	require.Equal(t, mainloop.Continue, action)

	buf := make([]byte, 1)
	_, err = masterR.Read(buf)
	require.NoError(t, err)
	require.Equal(t, byte('q'), buf[0])
}

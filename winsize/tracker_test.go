package winsize

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/conmux/ptypair"
)

func TestNewRegistersAndCloseUnregisters(t *testing.T) {
	src, err := ptypair.Open()
	require.NoError(t, err)
	defer src.Close()
	dst, err := ptypair.Open()
	require.NoError(t, err)
	defer dst.Close()

	before := Active()

	tr, err := New(src.Master, dst.Master, 1, nil)
	require.NoError(t, err)
	require.Equal(t, before+1, Active())

	require.NoError(t, tr.Close())
	require.Equal(t, before, Active())
}

func TestOnSignalPropagatesAndFiresHint(t *testing.T) {
	src, err := ptypair.Open()
	require.NoError(t, err)
	defer src.Close()
	dst, err := ptypair.Open()
	require.NoError(t, err)
	defer dst.Close()

	var hintFired int32
	tr, err := New(src.Master, dst.Master, 1, func(ctx context.Context) error {
		atomic.AddInt32(&hintFired, 1)
		return nil
	})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGWINCH))

	onSignalDone := make(chan error, 1)
	go func() { onSignalDone <- tr.OnSignal(context.Background()) }()

	select {
	case err := <-onSignalDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("OnSignal never observed the self-pipe becoming readable")
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hintFired) == 1
	}, time.Second, 5*time.Millisecond, "winch hint never fired")
}

func TestSawEscapeRoundTrips(t *testing.T) {
	src, err := ptypair.Open()
	require.NoError(t, err)
	defer src.Close()
	dst, err := ptypair.Open()
	require.NoError(t, err)
	defer dst.Close()

	tr, err := New(src.Master, dst.Master, 1, nil)
	require.NoError(t, err)
	defer tr.Close()

	require.False(t, tr.SawEscape())
	tr.SetSawEscape(true)
	require.True(t, tr.SawEscape())
}

func TestCloseIsIdempotent(t *testing.T) {
	src, err := ptypair.Open()
	require.NoError(t, err)
	defer src.Close()
	dst, err := ptypair.Open()
	require.NoError(t, err)
	defer dst.Close()

	tr, err := New(src.Master, dst.Master, 1, nil)
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

package console

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/mainloop"
)

func newTestSupervisor(t *testing.T, path string, ttyCount int) *Supervisor {
	t.Helper()
	loop, err := mainloop.Open()
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	sup, err := Create(context.Background(), loop, path, "", 1, ttyCount)
	require.NoError(t, err)
	t.Cleanup(func() { sup.Delete(context.Background()) })
	return sup
}

// Console path "none" leaves Master nil and console allocation fails.
func TestConsoleDisabledByPathNone(t *testing.T) {
	sup := newTestSupervisor(t, "none", 2)
	require.Nil(t, sup.Console.Master)

	_, _, err := sup.Allocate(context.Background(), consoletypes.ClientID(1), 0, nil)
	require.Error(t, err)
	require.True(t, consoletypes.Is(err, consoletypes.KindNotConfigured))
}

func TestConsoleAllocateThenFreeRoundTrips(t *testing.T) {
	sup := newTestSupervisor(t, "", 1)
	client := consoletypes.ClientID(7)

	master, ttynum, err := sup.Allocate(context.Background(), client, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, master)
	require.Zero(t, ttynum)
	require.Equal(t, client, sup.Console.ProxyPTY.Busy)

	// A second client can't also take the console.
	_, _, err = sup.Allocate(context.Background(), consoletypes.ClientID(8), 0, nil)
	require.Error(t, err)
	require.True(t, consoletypes.Is(err, consoletypes.KindInUse))

	require.NoError(t, sup.Free(context.Background(), client))
	require.Equal(t, consoletypes.NoClient, sup.Console.ProxyPTY.Busy)
	require.Nil(t, sup.Console.Peer)
	require.Nil(t, sup.Console.Tracker)

	// Idempotent: freeing again is a no-op, not an error.
	require.NoError(t, sup.Free(context.Background(), client))
}

// Two clients request "any tty" on N=2; first gets 1, second gets 2,
// third fails; after client 1 disconnects, a fourth request returns 1.
func TestAnyTtyAllocationCycles(t *testing.T) {
	sup := newTestSupervisor(t, "none", 2)
	ctx := context.Background()

	m1, n1, err := sup.Allocate(ctx, consoletypes.ClientID(1), -1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, n1)
	require.NotNil(t, m1)

	_, n2, err := sup.Allocate(ctx, consoletypes.ClientID(2), -1, nil)
	require.NoError(t, err)
	require.Equal(t, 2, n2)

	_, n3, err := sup.Allocate(ctx, consoletypes.ClientID(3), -1, nil)
	require.Error(t, err)
	require.Equal(t, -1, n3)
	require.True(t, consoletypes.Is(err, consoletypes.KindInUse))

	require.NoError(t, sup.Free(ctx, consoletypes.ClientID(1)))

	_, n4, err := sup.Allocate(ctx, consoletypes.ClientID(4), -1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, n4)
}

func TestSpecificTtyOutOfRange(t *testing.T) {
	sup := newTestSupervisor(t, "none", 2)
	ctx := context.Background()

	_, _, err := sup.Allocate(ctx, consoletypes.ClientID(1), 3, nil)
	require.Error(t, err)
	require.True(t, consoletypes.Is(err, consoletypes.KindOutOfRange))
}

func TestFreeReleasesEverySlotOwnedByClient(t *testing.T) {
	sup := newTestSupervisor(t, "none", 3)
	ctx := context.Background()
	client := consoletypes.ClientID(5)

	_, _, err := sup.Allocate(ctx, client, 1, nil)
	require.NoError(t, err)
	_, _, err = sup.Allocate(ctx, client, 2, nil)
	require.NoError(t, err)

	require.NoError(t, sup.Free(ctx, client))

	require.Equal(t, consoletypes.NoClient, sup.Ttys.Slots[0].Busy)
	require.Equal(t, consoletypes.NoClient, sup.Ttys.Slots[1].Busy)
}

func TestOpenAppendLogThenConsolePumpWritesToIt(t *testing.T) {
	dir := t.TempDir()
	logPath := dir + "/console.log"

	loop, err := mainloop.Open()
	require.NoError(t, err)
	defer loop.Close()

	sup, err := Create(context.Background(), loop, "", logPath, 1, 0)
	require.NoError(t, err)
	defer sup.Delete(context.Background())

	_, err = sup.Console.Slave.Write([]byte("hello"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		data, rerr := os.ReadFile(logPath)
		return rerr == nil && string(data) == "hello"
	}, time.Second, 5*time.Millisecond)

	loop.Remove(int(sup.Console.Master.Fd()))
}

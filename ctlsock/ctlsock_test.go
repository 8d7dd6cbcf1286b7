package ctlsock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/winsize"
)

type fakeAllocator struct {
	mu        sync.Mutex
	allocated map[consoletypes.ClientID]*os.File
	freed     []consoletypes.ClientID
	winched   []consoletypes.ClientID
	failWith  error
}

func (f *fakeAllocator) Allocate(ctx context.Context, client consoletypes.ClientID, ttyreq int, hint winsize.WinchHint) (*os.File, int, error) {
	if f.failWith != nil {
		return nil, 0, f.failWith
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, 0, err
	}
	w.Close()
	f.mu.Lock()
	if f.allocated == nil {
		f.allocated = make(map[consoletypes.ClientID]*os.File)
	}
	f.allocated[client] = r
	f.mu.Unlock()
	return r, ttyreq, nil
}

func (f *fakeAllocator) Free(ctx context.Context, client consoletypes.ClientID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freed = append(f.freed, client)
	return nil
}

func (f *fakeAllocator) Winch(ctx context.Context, client consoletypes.ClientID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winched = append(f.winched, client)
	return nil
}

func startServer(t *testing.T, alloc Allocator) (*Server, string) {
	t.Helper()
	path := t.TempDir() + "/ctl.sock"
	srv, err := Listen(path, alloc)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	go srv.Serve(ctx)
	return srv, path
}

func TestRequestReturnsDescriptorAndTtynum(t *testing.T) {
	alloc := &fakeAllocator{}
	_, path := startServer(t, alloc)

	cl, err := Dial(path)
	require.NoError(t, err)
	defer cl.Close()

	f, ttynum, err := cl.Request(2)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, 2, ttynum)
}

func TestRequestSurfacesAllocatorError(t *testing.T) {
	alloc := &fakeAllocator{failWith: consoletypes.New(consoletypes.KindInUse, "test", nil)}
	_, path := startServer(t, alloc)

	cl, err := Dial(path)
	require.NoError(t, err)
	defer cl.Close()

	_, _, err = cl.Request(0)
	require.Error(t, err)
	require.True(t, consoletypes.Is(err, consoletypes.KindInUse))
}

func TestCloseTriggersFree(t *testing.T) {
	alloc := &fakeAllocator{}
	_, path := startServer(t, alloc)

	cl, err := Dial(path)
	require.NoError(t, err)
	_, _, err = cl.Request(0)
	require.NoError(t, err)
	require.NoError(t, cl.Close())

	require.Eventually(t, func() bool {
		alloc.mu.Lock()
		defer alloc.mu.Unlock()
		return len(alloc.freed) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWinchReachesAllocator(t *testing.T) {
	alloc := &fakeAllocator{}
	_, path := startServer(t, alloc)

	cl, err := Dial(path)
	require.NoError(t, err)
	defer cl.Close()

	_, _, err = cl.Request(0)
	require.NoError(t, err)
	require.NoError(t, cl.Winch())

	require.Eventually(t, func() bool {
		alloc.mu.Lock()
		defer alloc.mu.Unlock()
		return len(alloc.winched) == 1
	}, time.Second, 5*time.Millisecond)
}

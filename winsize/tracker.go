// Package winsize carries per-session geometry-forwarding state: the
// signal descriptor, source/destination fds, detach-escape state, and an
// optional cross-process resize hint, plus a process-wide registry of
// active trackers.
//
// SIGWINCH reaches the mainloop as a readable descriptor rather than an
// async handler: signal.Notify delivers into a channel, and a goroutine
// forwards each delivery into the write end of a self-pipe. The read end
// is registered in the loop like any other fd, so resize handling runs
// under the loop's ordinary dispatch rules instead of in signal context.
package winsize

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/ptypair"
)

// WinchHint is the cross-process "window changed" notification a Tracker
// fires after propagating geometry locally, when the tracker is attached
// to a proxy whose other half a remote supervisor owns. Attach wiring
// supplies the concrete implementation (a ctlsock client call);
// supervisor-side trackers have no remote party to notify and leave this
// nil.
type WinchHint func(ctx context.Context) error

// Tracker is one session's winsize-forwarding state. Escape/SawEscape
// ride along here because the detach state is per-session like the
// geometry fds; the escape state machine itself runs in whichever pump
// owns the stdin bytes.
type Tracker struct {
	Src, Dst *os.File
	Escape   byte
	Hint     WinchHint

	mu        sync.Mutex
	sawEscape bool

	sigCh     chan os.Signal
	pipeR     *os.File
	pipeW     *os.File
	closeOnce sync.Once
	done      chan struct{}
}

// New blocks SIGWINCH for the lifetime of the returned Tracker (via a
// dedicated os/signal channel, see package doc) and registers it in the
// process-wide registry. Fails with SignalFd if the self-pipe can't be
// created; on failure nothing is registered.
func New(src, dst *os.File, escape byte, hint WinchHint) (*Tracker, error) {
	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindSignalFd, "winsize.New", err)
	}

	t := &Tracker{
		Src:    src,
		Dst:    dst,
		Escape: escape,
		Hint:   hint,
		sigCh:  make(chan os.Signal, 1),
		pipeR:  pipeR,
		pipeW:  pipeW,
		done:   make(chan struct{}),
	}

	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go t.forward()
	registryAdd(t)
	return t, nil
}

// forward copies each delivered SIGWINCH into the self-pipe as a single
// byte, making it readable by the mainloop like any other descriptor
// event.
func (t *Tracker) forward() {
	for {
		select {
		case <-t.sigCh:
			if _, err := t.pipeW.Write([]byte{0}); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// SigFD is the read end of the self-pipe, registered into the mainloop as
// the signal-pump handler's fd.
func (t *Tracker) SigFD() int {
	return int(t.pipeR.Fd())
}

// OnSignal drains one pending notification and propagates Src's current
// geometry to Dst, then fires Hint if set. A failed propagation is the
// caller's to log; it never terminates the session.
func (t *Tracker) OnSignal(ctx context.Context) error {
	buf := make([]byte, 1)
	if _, err := t.pipeR.Read(buf); err != nil {
		return fmt.Errorf("winsize: drain signal pipe: %w", err)
	}

	if err := ptypair.Winsize(t.Src, t.Dst); err != nil {
		return err
	}

	if t.Hint != nil {
		return t.Hint(ctx)
	}
	return nil
}

// Propagate applies Src's current geometry to Dst once, without waiting
// for a signal. Callers use it for the initial size at attach time.
func (t *Tracker) Propagate() error {
	return ptypair.Winsize(t.Src, t.Dst)
}

// SawEscape and SetSawEscape give the owning pump safe access to the
// escape-state-machine flag.
func (t *Tracker) SawEscape() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sawEscape
}

func (t *Tracker) SetSawEscape(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sawEscape = v
}

// Close stops signal delivery, closes the self-pipe, and unregisters the
// tracker. Idempotent.
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		signal.Stop(t.sigCh)
		close(t.done)
		registryRemove(t)
		if e := t.pipeW.Close(); e != nil {
			err = e
		}
		if e := t.pipeR.Close(); e != nil {
			err = e
		}
	})
	return err
}

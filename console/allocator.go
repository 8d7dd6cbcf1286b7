package console

import (
	"context"
	"os"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/ptypair"
	"github.com/projecteru2/conmux/termmode"
	"github.com/projecteru2/conmux/winsize"
)

// Allocate picks a slot for client. ttyreq == 0 requests the console;
// ttyreq > 0 requests that specific 1-based tty index; ttyreq < 0
// requests any free tty (the chosen index is returned as ttynum).
//
// hint is the cross-process console-winch notifier the console path's
// tracker fires after each local geometry propagation; pass nil when
// nothing further needs telling (tty-slot allocations never create a
// tracker at all).
func (s *Supervisor) Allocate(ctx context.Context, client consoletypes.ClientID, ttyreq int, hint winsize.WinchHint) (master *os.File, ttynum int, err error) {
	switch {
	case ttyreq == 0:
		m, aerr := s.allocateConsole(ctx, client, hint)
		return m, 0, aerr
	case ttyreq > 0:
		m, aerr := s.allocateSpecificTty(client, ttyreq)
		return m, ttyreq, aerr
	default:
		return s.allocateAnyTty(client)
	}
}

func (s *Supervisor) allocateConsole(ctx context.Context, client consoletypes.ClientID, hint winsize.WinchHint) (*os.File, error) {
	s.Console.Lock()
	defer s.Console.Unlock()

	if s.Console.Master == nil {
		return nil, consoletypes.New(consoletypes.KindNotConfigured, "console.Allocate", nil)
	}
	if s.Console.ProxyPTY.Busy != consoletypes.NoClient || s.Console.Tracker != nil {
		return nil, consoletypes.New(consoletypes.KindInUse, "console.Allocate", nil)
	}

	pair, err := ptypair.Open()
	if err != nil {
		return nil, err
	}

	saved, err := termmode.RawIfy(int(pair.Slave.Fd()))
	if err != nil {
		pair.Close()
		return nil, err
	}

	tracker, err := winsize.New(pair.Master, s.Console.Master, s.Escape, hint)
	if err != nil {
		pair.Close()
		return nil, err
	}

	peerFd := int(pair.Slave.Fd())
	if err := s.Loop.Add(peerFd, s.consolePumpHandler(ctx, false)); err != nil {
		tracker.Close()
		pair.Close()
		return nil, err
	}
	if err := s.Loop.Add(tracker.SigFD(), s.signalPumpHandler(ctx, tracker)); err != nil {
		s.Loop.Remove(peerFd)
		tracker.Close()
		pair.Close()
		return nil, err
	}

	s.Console.Peer = pair.Slave
	s.Console.PeerTermios = saved
	s.Console.ProxyPTY = consoletypes.ProxyPTY{Master: pair.Master, Slave: pair.Slave, Name: pair.Name, Busy: client}
	s.Console.Tracker = tracker

	log.WithFunc("console.Allocate").Infof(ctx, "console attached: client=%d proxy=%s", client, pair.Name)
	return pair.Master, nil
}

func (s *Supervisor) allocateSpecificTty(client consoletypes.ClientID, idx int) (*os.File, error) {
	s.Ttys.Lock()
	defer s.Ttys.Unlock()

	if idx < 1 || idx > s.Ttys.Len() {
		return nil, consoletypes.New(consoletypes.KindOutOfRange, "console.Allocate", nil)
	}
	slot := s.Ttys.Slots[idx-1]
	if slot.Busy != consoletypes.NoClient {
		return nil, consoletypes.New(consoletypes.KindInUse, "console.Allocate", nil)
	}
	slot.Busy = client
	return slot.Master, nil
}

func (s *Supervisor) allocateAnyTty(client consoletypes.ClientID) (*os.File, int, error) {
	s.Ttys.Lock()
	defer s.Ttys.Unlock()

	for i, slot := range s.Ttys.Slots {
		if slot.Busy == consoletypes.NoClient {
			slot.Busy = client
			return slot.Master, i + 1, nil
		}
	}
	return nil, -1, consoletypes.New(consoletypes.KindInUse, "console.Allocate", nil)
}

// Free releases every slot owned by client, not just the first found; a
// client that somehow holds both a tty slot and the console gives
// everything back in one call. Idempotent.
func (s *Supervisor) Free(ctx context.Context, client consoletypes.ClientID) error {
	if client == consoletypes.NoClient {
		return nil
	}

	s.Ttys.Lock()
	for _, slot := range s.Ttys.Slots {
		if slot != nil && slot.Busy == client {
			slot.Busy = consoletypes.NoClient
		}
	}
	s.Ttys.Unlock()

	s.Console.Lock()
	defer s.Console.Unlock()
	if s.Console.ProxyPTY.Busy != client {
		return nil
	}
	err := s.teardownProxyLocked()
	log.WithFunc("console.Free").Infof(ctx, "client %d freed", client)
	return err
}

// Winch handles a remote client's "window changed" notification:
// propagate the proxy's current geometry onto the container master right
// now rather than waiting on a SIGWINCH this process will never receive
// for a terminal it doesn't control.
func (s *Supervisor) Winch(ctx context.Context, client consoletypes.ClientID) error {
	s.Console.Lock()
	defer s.Console.Unlock()

	if s.Console.ProxyPTY.Busy != client {
		return consoletypes.New(consoletypes.KindInUse, "console.Winch", nil)
	}
	tracker, ok := s.Console.Tracker.(*winsize.Tracker)
	if !ok || tracker == nil {
		return consoletypes.New(consoletypes.KindNotConfigured, "console.Winch", nil)
	}
	return tracker.Propagate()
}

// teardownProxyLocked deregisters the current peer, destroys the tracker,
// and closes both halves of the proxy pty. Caller must hold s.Console's
// lock. No-op if there is no proxy in place.
//
// Peer is either ProxyPTY.Slave (remote attach) or a distinct *os.File
// opened by AttachLocalPeer. The latter is not part of ProxyPTY, so its
// termios must be restored and its fd closed here, before the proxy pty
// fields are zeroed.
func (s *Supervisor) teardownProxyLocked() error {
	if s.Console.Peer != nil {
		s.Loop.Remove(int(s.Console.Peer.Fd()))
	}
	if tracker, ok := s.Console.Tracker.(*winsize.Tracker); ok && tracker != nil {
		s.Loop.Remove(tracker.SigFD())
		tracker.Close()
	}

	var firstErr error
	rec := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.Console.Peer != nil && s.Console.Peer != s.Console.ProxyPTY.Slave {
		rec(termmode.Restore(int(s.Console.Peer.Fd()), s.Console.PeerTermios))
		rec(s.Console.Peer.Close())
	}

	if s.Console.ProxyPTY.Slave != nil {
		rec(s.Console.ProxyPTY.Slave.Close())
	}
	if s.Console.ProxyPTY.Master != nil {
		rec(s.Console.ProxyPTY.Master.Close())
	}

	s.Console.ProxyPTY = consoletypes.ProxyPTY{}
	s.Console.Peer = nil
	s.Console.PeerTermios = nil
	s.Console.Tracker = nil
	return firstErr
}

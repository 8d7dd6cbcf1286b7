package console

import (
	"context"
	"fmt"
	"os"

	"github.com/projecteru2/core/log"
	"golang.org/x/term"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/termmode"
	"github.com/projecteru2/conmux/winsize"
)

// AttachLocalPeer wires the supervisor's own terminal as the console's
// peer, so `serve --foreground` is interactively usable without a second
// process attaching over the control socket. If Console.Path is empty,
// falls back to /dev/tty; if Console.Path == "none" (console disabled),
// /dev/tty is missing, or the path cannot be opened, this is a no-op that
// returns nil. A path that opens but is not a terminal returns a NotATty
// error.
func (s *Supervisor) AttachLocalPeer(ctx context.Context, hint winsize.WinchHint) error {
	logger := log.WithFunc("console.AttachLocalPeer")

	if s.Console.Master == nil || s.Console.Path == "none" {
		return nil
	}

	path := s.Console.Path
	if path == "" {
		if _, err := os.Stat("/dev/tty"); err != nil {
			logger.Infof(ctx, "no console path and no /dev/tty available, skipping local peer")
			return nil
		}
		path = "/dev/tty"
	}

	peer, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		logger.Warnf(ctx, "open %s for console peer: %v", path, err)
		return nil
	}
	if !term.IsTerminal(int(peer.Fd())) {
		peer.Close()
		return consoletypes.New(consoletypes.KindNotATty, "console.AttachLocalPeer", fmt.Errorf("%s is not a tty", path))
	}

	s.Console.Lock()
	defer s.Console.Unlock()

	saved, err := termmode.RawIfy(int(peer.Fd()))
	if err != nil {
		peer.Close()
		return err
	}

	tracker, err := winsize.New(peer, s.Console.Master, s.Escape, hint)
	if err != nil {
		termmode.Restore(int(peer.Fd()), saved)
		peer.Close()
		return err
	}
	if err := tracker.Propagate(); err != nil {
		logger.Warnf(ctx, "initial winsize propagate: %v", err)
	}

	peerFd := int(peer.Fd())
	if err := s.Loop.Add(peerFd, s.consolePumpHandler(ctx, false)); err != nil {
		tracker.Close()
		termmode.Restore(peerFd, saved)
		peer.Close()
		return err
	}
	if err := s.Loop.Add(tracker.SigFD(), s.signalPumpHandler(ctx, tracker)); err != nil {
		s.Loop.Remove(peerFd)
		tracker.Close()
		termmode.Restore(peerFd, saved)
		peer.Close()
		return err
	}

	s.Console.Peer = peer
	s.Console.PeerTermios = saved
	s.Console.Tracker = tracker

	logger.Infof(ctx, "using %s as console peer", path)
	return nil
}

// Package console arbitrates console/tty allocation among concurrent
// clients and runs the supervisor-side pump that moves bytes between a
// container's pty and its currently attached peer. It owns the
// consoletypes.Console/TTYSlot data created at container-configuration
// time and freed at teardown.
package console

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/mainloop"
	"github.com/projecteru2/conmux/ptypair"
)

// Supervisor owns one container's console plus its N tty slots, and holds
// a non-owning reference to the descriptor loop their pumps are
// registered into; the loop's lifetime is managed by the same caller that
// owns the Supervisor.
type Supervisor struct {
	Console *consoletypes.Console
	Ttys    *consoletypes.TTYInfo
	Loop    *mainloop.Loop

	// Escape is the configured detach-sequence prefix byte, carried here
	// so Allocate can hand it to the tracker it creates for the console
	// path.
	Escape byte
}

// Create realizes the console pty pair (unless path == "none", in which
// case Console.Master stays nil) and the N tty slots, then registers the
// container-master's pump so bytes flow to the log even before any client
// attaches.
func Create(ctx context.Context, loop *mainloop.Loop, path, logPath string, escape byte, ttyCount int) (*Supervisor, error) {
	logger := log.WithFunc("console.Create")

	sup := &Supervisor{
		Console: &consoletypes.Console{Path: path, LogPath: logPath},
		Ttys:    consoletypes.NewTTYInfo(ttyCount),
		Loop:    loop,
		Escape:  escape,
	}

	if path != "none" {
		pair, err := ptypair.Open()
		if err != nil {
			return nil, fmt.Errorf("console.Create: console pty: %w", err)
		}
		sup.Console.Master = pair.Master
		sup.Console.Slave = pair.Slave
		sup.Console.Name = pair.Name
	}

	if logPath != "" {
		f, err := openAppendLog(logPath)
		if err != nil {
			return nil, fmt.Errorf("console.Create: log %s: %w", logPath, err)
		}
		sup.Console.LogFile = f
	}

	for i := range sup.Ttys.Slots {
		pair, err := ptypair.Open()
		if err != nil {
			return nil, fmt.Errorf("console.Create: tty %d: %w", i+1, err)
		}
		sup.Ttys.Slots[i] = &consoletypes.TTYSlot{Master: pair.Master, Slave: pair.Slave, Name: pair.Name}
	}

	if sup.Console.Master != nil {
		masterFd := int(sup.Console.Master.Fd())
		if err := loop.Add(masterFd, sup.consolePumpHandler(ctx, true)); err != nil {
			return nil, fmt.Errorf("console.Create: register master: %w", err)
		}
	}

	logger.Infof(ctx, "console created: path=%q ttys=%d logPath=%q", path, ttyCount, logPath)
	return sup, nil
}

// Delete tears the console and every tty slot down: any attached peer
// first, then the master's loop registration, the tty slots, the console
// pty, and the log file last. Safe to call once; callers don't retry.
func (s *Supervisor) Delete(ctx context.Context) error {
	logger := log.WithFunc("console.Delete")

	var firstErr error
	rec := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.Console.Lock()
	if s.Console.ProxyPTY.Busy != consoletypes.NoClient || s.Console.Peer != nil {
		rec(s.teardownProxyLocked())
	}
	s.Console.Unlock()

	if s.Console.Master != nil {
		s.Loop.Remove(int(s.Console.Master.Fd()))
	}

	for _, slot := range s.Ttys.Slots {
		if slot == nil {
			continue
		}
		rec(slot.Master.Close())
		rec(slot.Slave.Close())
	}
	if s.Console.Master != nil {
		rec(s.Console.Master.Close())
		rec(s.Console.Slave.Close())
	}
	if s.Console.LogFile != nil {
		rec(s.Console.LogFile.Close())
	}

	logger.Infof(ctx, "console deleted")
	return firstErr
}

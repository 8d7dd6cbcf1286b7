// Package attach is the host-side attach driver: put the local terminal
// in raw mode, obtain a master fd through the control socket, pump bytes
// until detach, and restore everything in reverse acquisition order.
package attach

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/projecteru2/core/log"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/ctlsock"
	"github.com/projecteru2/conmux/mainloop"
	"github.com/projecteru2/conmux/termmode"
	"github.com/projecteru2/conmux/winsize"
)

// Options configures one attach session.
type Options struct {
	SocketPath string
	TTYReq     int // 0 = console, >0 = specific tty, <0 = any free tty
	Escape     byte
	Stdin      *os.File  // defaults to os.Stdin
	Stdout     io.Writer // defaults to os.Stdout
}

// Run drives one attach session to completion. It returns nil on clean
// user-initiated detach and a non-nil error on any setup or I/O failure;
// in both cases the local terminal is restored before returning.
func Run(ctx context.Context, opts Options) error {
	logger := log.WithFunc("attach.Run")

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stdinFd := int(stdin.Fd())

	if !term.IsTerminal(stdinFd) {
		return consoletypes.New(consoletypes.KindNotATty, "attach.Run", fmt.Errorf("stdin is not a tty"))
	}

	saved, err := termmode.RawIfy(stdinFd)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := termmode.Restore(stdinFd, saved); rerr != nil {
			logger.Warnf(ctx, "restore stdin termios: %v", rerr)
		}
	}()

	cl, err := ctlsock.Dial(opts.SocketPath)
	if err != nil {
		return err
	}
	defer cl.Close()

	master, ttynum, err := cl.Request(opts.TTYReq)
	if err != nil {
		return err
	}
	defer master.Close()

	fmt.Fprint(stdout, banner(ttynum, opts.Escape))

	// Advisory: failure to become session leader (e.g. already one) is
	// not fatal.
	_, _ = unix.Setsid()

	tracker, err := winsize.New(stdin, master, opts.Escape, func(hctx context.Context) error {
		return cl.Winch()
	})
	if err != nil {
		return err
	}
	defer tracker.Close()

	if err := tracker.Propagate(); err != nil {
		logger.Warnf(ctx, "initial winsize propagate: %v", err)
	}
	if err := cl.Winch(); err != nil {
		logger.Warnf(ctx, "initial winch hint: %v", err)
	}

	loop, err := mainloop.Open()
	if err != nil {
		return err
	}
	defer loop.Close()

	masterFd := int(master.Fd())
	if err := loop.Add(tracker.SigFD(), signalPumpHandler(ctx, tracker)); err != nil {
		return err
	}
	if err := loop.Add(stdinFd, stdinPumpHandler(tracker, masterFd)); err != nil {
		return err
	}
	if err := loop.Add(masterFd, masterPumpHandler(ctx, stdout)); err != nil {
		return err
	}

	return loop.Run(ctx)
}

package attach

import (
	"context"
	"io"

	"github.com/projecteru2/core/log"
	"golang.org/x/sys/unix"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/mainloop"
	"github.com/projecteru2/conmux/winsize"
)

// stdinPumpHandler reads exactly one byte from the local terminal and
// runs the detach escape-state machine before forwarding it to the
// master. Any I/O error terminates the loop — the local terminal going
// away ends the session.
func stdinPumpHandler(tracker *winsize.Tracker, masterFd int) mainloop.Handler {
	return func(fd int) (mainloop.Action, error) {
		buf := make([]byte, 1)
		n, err := unix.Read(fd, buf)
		if err != nil || n == 0 {
			return mainloop.Stop, err
		}

		b := buf[0]
		switch {
		case b == tracker.Escape && !tracker.SawEscape():
			tracker.SetSawEscape(true)
			return mainloop.Continue, nil
		case b == 'q' && tracker.SawEscape():
			return mainloop.Stop, nil
		default:
			tracker.SetSawEscape(false)
			if _, err := unix.Write(masterFd, buf); err != nil {
				return mainloop.Stop, consoletypes.New(consoletypes.KindWriteShort, "attach.stdinPump", err)
			}
			return mainloop.Continue, nil
		}
	}
}

// masterPumpHandler reads up to 1024 bytes from the remote master and
// writes them to stdout. Any read failure or short write terminates the
// loop (the remote side is gone).
func masterPumpHandler(ctx context.Context, stdout io.Writer) mainloop.Handler {
	logger := log.WithFunc("attach.masterPump")
	return func(fd int) (mainloop.Action, error) {
		buf := make([]byte, 1024)
		n, err := unix.Read(fd, buf)
		if err != nil || n == 0 {
			return mainloop.Stop, err
		}
		wn, err := stdout.Write(buf[:n])
		if err != nil || wn != n {
			logger.Warnf(ctx, "short write to stdout: wrote %d/%d: %v", wn, n, err)
			return mainloop.Stop, err
		}
		return mainloop.Continue, nil
	}
}

// signalPumpHandler drains the tracker's self-pipe and propagates
// geometry plus the cross-process hint; a failure here is logged, never
// fatal.
func signalPumpHandler(ctx context.Context, tracker *winsize.Tracker) mainloop.Handler {
	logger := log.WithFunc("attach.signalPump")
	return func(fd int) (mainloop.Action, error) {
		if err := tracker.OnSignal(ctx); err != nil {
			logger.Warnf(ctx, "winsize propagation failed: %v", err)
		}
		return mainloop.Continue, nil
	}
}

package console

import (
	"context"

	"github.com/projecteru2/core/log"
	"golang.org/x/sys/unix"

	"github.com/projecteru2/conmux/mainloop"
	"github.com/projecteru2/conmux/winsize"
)

const readChunk = 1024

// consolePumpHandler builds the byte pump for either endpoint of the
// container's console: the container master (forwards to log + peer) or
// the current peer (forwards to master). Both registrations share this
// one implementation, parameterized by which side is being read.
func (s *Supervisor) consolePumpHandler(ctx context.Context, readFromMaster bool) mainloop.Handler {
	logger := log.WithFunc("console.pump")

	return func(fd int) (mainloop.Action, error) {
		buf := make([]byte, readChunk)
		n, err := unix.Read(fd, buf)
		if err != nil {
			logger.Warnf(ctx, "read fd %d: %v", fd, err)
			return mainloop.Remove, nil
		}
		if n == 0 {
			unix.Close(fd)
			return mainloop.Remove, nil
		}
		data := buf[:n]

		s.Console.Lock()
		logFile := s.Console.LogFile
		peer := s.Console.Peer
		master := s.Console.Master
		s.Console.Unlock()

		if readFromMaster {
			if logFile != nil {
				if wn, werr := logFile.Write(data); werr != nil || wn != n {
					logger.Warnf(ctx, "log write short/failed: wrote %d/%d: %v", wn, n, werr)
				}
			}
			if peer != nil {
				if wn, werr := peer.Write(data); werr != nil || wn != n {
					logger.Warnf(ctx, "peer write short/failed: wrote %d/%d: %v", wn, n, werr)
				}
			}
		} else if master != nil {
			if wn, werr := master.Write(data); werr != nil || wn != n {
				logger.Warnf(ctx, "master write short/failed: wrote %d/%d: %v", wn, n, werr)
			}
		}

		return mainloop.Continue, nil
	}
}

// signalPumpHandler drains and reacts to the tracker's self-pipe. A
// propagation or hint failure is logged, never fatal to the session.
func (s *Supervisor) signalPumpHandler(ctx context.Context, tracker *winsize.Tracker) mainloop.Handler {
	logger := log.WithFunc("console.signalPump")

	return func(fd int) (mainloop.Action, error) {
		if err := tracker.OnSignal(ctx); err != nil {
			logger.Warnf(ctx, "winsize propagation failed: %v", err)
		}
		return mainloop.Continue, nil
	}
}

// Package termmode snapshots, mutates, and restores the termios of a tty
// descriptor. It is the one place in the module that touches raw termios
// flags.
package termmode

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/projecteru2/conmux/consoletypes"
)

// RawIfy puts fd into raw, byte-at-a-time mode: local echo, canonical line
// mode, and signal generation (INTR/QUIT/SUSP) are disabled; VMIN=1,
// VTIME=0; IGNBRK is cleared and BRKINT set, so a break is not ignored but
// flushes the queues and raises SIGINT.
// It returns the termios snapshot from before the change, which the caller
// must pass to Restore on every exit path.
//
// Fails with KindNotATty if fd is not a terminal, or KindTermiosIO if the
// kernel refuses the get/set.
func RawIfy(fd int) (*unix.Termios, error) {
	if !term.IsTerminal(fd) {
		return nil, consoletypes.New(consoletypes.KindNotATty, "termmode.RawIfy", fmt.Errorf("fd %d is not a tty", fd))
	}

	oldState, err := unix.IoctlGetTermios(fd, getTermiosIoctl)
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindTermiosIO, "termmode.RawIfy", err)
	}

	newState := *oldState

	// A break on the line should generate SIGINT-equivalent framing, not
	// be silently ignored.
	newState.Iflag &^= unix.IGNBRK
	newState.Iflag |= unix.BRKINT
	newState.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, setTermiosFlushIoctl, &newState); err != nil {
		return nil, consoletypes.New(consoletypes.KindTermiosIO, "termmode.RawIfy", err)
	}

	return oldState, nil
}

// Restore applies saved back to fd, flushing pending I/O first (TCSAFLUSH
// discipline) so queued output from before the mode switch isn't replayed
// under the new settings.
func Restore(fd int, saved *unix.Termios) error {
	if saved == nil {
		return nil
	}
	if err := unix.IoctlSetTermios(fd, setTermiosFlushIoctl, saved); err != nil {
		return consoletypes.New(consoletypes.KindTermiosIO, "termmode.Restore", err)
	}
	return nil
}

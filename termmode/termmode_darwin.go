//go:build darwin

package termmode

import "golang.org/x/sys/unix"

// TIOCGETA/TIOCSETAF are the BSD equivalents of Linux's TCGETS/TCSETSF:
// TIOCSETAF applies after flushing both queues.
const (
	getTermiosIoctl      = unix.TIOCGETA
	setTermiosFlushIoctl = unix.TIOCSETAF
)

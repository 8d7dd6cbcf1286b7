//go:build linux

package termmode

import "golang.org/x/sys/unix"

// getTermiosIoctl/setTermiosFlushIoctl: TCSETSF applies immediately after
// flushing both queues, the tcsetattr(fd, TCSAFLUSH, ...) discipline.
const (
	getTermiosIoctl      = unix.TCGETS
	setTermiosFlushIoctl = unix.TCSETSF
)

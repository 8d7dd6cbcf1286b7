package ctlsock

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// sendWithFD writes payload on conn with fd attached as SCM_RIGHTS
// ancillary data. fd may be -1 to send payload with no ancillary data
// (error responses never pass a descriptor).
func sendWithFD(conn *net.UnixConn, payload []byte, fd int) error {
	var oob []byte
	if fd >= 0 {
		oob = unix.UnixRights(fd)
	}
	n, oobn, err := conn.WriteMsgUnix(payload, oob, nil)
	if err != nil {
		return fmt.Errorf("ctlsock: sendmsg: %w", err)
	}
	if n != len(payload) || oobn != len(oob) {
		return fmt.Errorf("ctlsock: short sendmsg: wrote %d/%d bytes, %d/%d oob", n, len(payload), oobn, len(oob))
	}
	return nil
}

// recvWithFD reads up to len(payload) bytes from conn along with at most
// one ancillary file descriptor, wrapped as *os.File named name.
func recvWithFD(conn *net.UnixConn, payload []byte, name string) (int, *os.File, error) {
	oob := make([]byte, unix.CmsgSpace(4))
	n, oobn, _, _, err := conn.ReadMsgUnix(payload, oob)
	if err != nil {
		return 0, nil, fmt.Errorf("ctlsock: recvmsg: %w", err)
	}

	if oobn == 0 {
		return n, nil, nil
	}

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return n, nil, fmt.Errorf("ctlsock: parse control message: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return n, os.NewFile(uintptr(fds[0]), name), nil
		}
	}
	return n, nil, nil
}

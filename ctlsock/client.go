package ctlsock

import (
	"fmt"
	"net"
	"os"

	"github.com/projecteru2/conmux/consoletypes"
)

// Client is the attach driver's handle on one console-request
// connection. Its Close is the detach signal the supervisor's
// Allocator.Free reacts to.
type Client struct {
	conn *net.UnixConn
}

// Dial connects to the supervisor's control socket.
func Dial(path string) (*Client, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Dial", err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Dial", err)
	}
	return &Client{conn: conn}, nil
}

// Request asks the supervisor for a console or tty slot. This Client is
// already scoped to one container's socket, so the only parameter is the
// slot request itself. Returns the master fd for the chosen slot and its
// 1-based tty index (0 for the console).
func (c *Client) Request(ttyreq int) (*os.File, int, error) {
	if err := writeRequest(c.conn, requestFrame{kind: kindConsoleRequest, ttyreq: int32(ttyreq)}); err != nil {
		return nil, 0, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Request", err)
	}

	buf := make([]byte, 256)
	n, fdFile, err := recvWithFD(c.conn, buf, "proxy-master")
	if err != nil {
		return nil, 0, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Request", err)
	}

	resp, err := decodeResponse(buf[:n])
	if err != nil {
		return nil, 0, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Request", err)
	}
	if resp.status == statusErr {
		return nil, 0, consoletypes.New(consoletypes.Kind(resp.errKind), "ctlsock.Request", fmt.Errorf("%s", resp.errMsg))
	}
	if fdFile == nil {
		return nil, 0, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Request", fmt.Errorf("server sent no descriptor"))
	}
	return fdFile, int(resp.ttynum), nil
}

// Winch notifies the supervisor that this client's window changed.
// Fire-and-forget.
func (c *Client) Winch() error {
	if err := writeRequest(c.conn, requestFrame{kind: kindConsoleWinch}); err != nil {
		return consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Winch", err)
	}
	return nil
}

// Close closes the connection — the detach signal from the supervisor's
// point of view.
func (c *Client) Close() error {
	return c.conn.Close()
}

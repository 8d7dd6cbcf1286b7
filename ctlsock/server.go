package ctlsock

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/conmux/consoletypes"
	"github.com/projecteru2/conmux/winsize"
)

// Allocator is the subset of console.Supervisor the control-socket server
// drives. Declared here, satisfied structurally by console.Supervisor, so
// this package has no import-time dependency on console (and tests can
// supply a fake).
type Allocator interface {
	Allocate(ctx context.Context, client consoletypes.ClientID, ttyreq int, hint winsize.WinchHint) (*os.File, int, error)
	Free(ctx context.Context, client consoletypes.ClientID) error
	Winch(ctx context.Context, client consoletypes.ClientID) error
}

// Server accepts one connection per attach session. This process is
// itself the container supervisor, so console-winch is handled entirely
// locally; there is no further party to hint.
type Server struct {
	ln    *net.UnixListener
	alloc Allocator

	nextClient int64
}

// Listen removes any stale socket at path (a crashed prior supervisor
// leaves one behind) and starts listening.
func Listen(path string, alloc Allocator) (*Server, error) {
	_ = os.Remove(path)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Listen", err)
	}
	return &Server{ln: ln, alloc: alloc}, nil
}

// Addr is the socket path being listened on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// Serve accepts connections until ctx is cancelled or Close is called,
// handling each on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	logger := log.WithFunc("ctlsock.Serve")
	for {
		conn, err := s.ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return consoletypes.New(consoletypes.KindCommandChannel, "ctlsock.Serve", err)
		}
		client := consoletypes.ClientID(atomic.AddInt64(&s.nextClient, 1))
		session := uuid.NewString()
		logger.Infof(ctx, "accepted connection, assigned client %d session %s", client, session)
		go s.handle(ctx, client, session, conn)
	}
}

// handle drives one attach session end to end. session is a UUID minted
// per connection solely to correlate the log lines this package writes for
// that connection (accept, allocate result, winch, free); it is not passed
// to the allocator or the pumps. client remains the slot-ownership
// identity the allocator keys busy-markers on.
func (s *Server) handle(ctx context.Context, client consoletypes.ClientID, session string, conn *net.UnixConn) {
	logger := log.WithFunc("ctlsock.handle")
	defer func() {
		conn.Close()
		if err := s.alloc.Free(ctx, client); err != nil {
			logger.Warnf(ctx, "session %s client %d: free: %v", session, client, err)
		}
	}()

	first, err := readRequest(conn)
	if err != nil {
		logger.Warnf(ctx, "session %s client %d: read console-request: %v", session, client, err)
		return
	}
	if first.kind != kindConsoleRequest {
		logger.Warnf(ctx, "session %s client %d: expected console-request, got kind %d", session, client, first.kind)
		return
	}

	master, ttynum, err := s.alloc.Allocate(ctx, client, int(first.ttyreq), nil)
	if err != nil {
		resp := responseFrame{status: statusErr, errMsg: err.Error()}
		var cerr *consoletypes.Error
		if errors.As(err, &cerr) {
			resp.errKind = byte(cerr.Kind)
		}
		if serr := sendWithFD(conn, encodeResponse(resp), -1); serr != nil {
			logger.Warnf(ctx, "session %s client %d: send error response: %v", session, client, serr)
		}
		return
	}

	resp := responseFrame{status: statusOK, ttynum: int32(ttynum)}
	if err := sendWithFD(conn, encodeResponse(resp), int(master.Fd())); err != nil {
		logger.Warnf(ctx, "session %s client %d: send console-request reply: %v", session, client, err)
		return
	}
	logger.Infof(ctx, "session %s client %d: attached tty %d", session, client, ttynum)

	// The connection stays open for the lifetime of the attach; its only
	// further traffic is console-winch notifications, until the client
	// detaches and closes it (the authoritative detach signal).
	for {
		frame, err := readRequest(conn)
		if err != nil {
			return
		}
		if frame.kind != kindConsoleWinch {
			continue
		}
		if err := s.alloc.Winch(ctx, client); err != nil {
			logger.Warnf(ctx, "session %s client %d: winch propagation: %v", session, client, err)
		}
	}
}

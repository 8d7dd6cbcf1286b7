//go:build linux

package mainloop

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Loop is an epoll-backed descriptor loop.
type Loop struct {
	epfd int

	mu       sync.Mutex
	handlers map[int]Handler
}

// Open creates a new Loop. The epoll fd is close-on-exec so a forked
// container process never inherits it.
func Open() (*Loop, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("mainloop: epoll_create1: %w", err)
	}
	return &Loop{epfd: fd, handlers: make(map[int]Handler)}, nil
}

// Add registers h to be called whenever fd becomes readable.
func (l *Loop) Add(fd int, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.handlers[fd]; exists {
		return fmt.Errorf("mainloop: fd %d already registered", fd)
	}
	ev := unix.EpollEvent{Fd: int32(fd), Events: unix.EPOLLIN}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("mainloop: epoll_ctl(add, %d): %w", fd, err)
	}
	l.handlers[fd] = h
	return nil
}

// Remove deregisters fd. It is a no-op if fd was never added or was
// already removed, so callers (e.g. a pump that both closes fd and asks
// the loop to drop it) don't need to track whether they've already done
// so.
func (l *Loop) Remove(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handlers[fd]; !ok {
		return
	}
	delete(l.handlers, fd)
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Close releases the epoll fd. Run must not be called concurrently.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}

// Run dispatches readiness events until ctx is cancelled, every handler is
// removed, or a handler returns Stop. It returns the
// first terminal error, or nil on a clean Stop/ctx cancellation/handler
// exhaustion.
func (l *Loop) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, 64)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		l.mu.Lock()
		empty := len(l.handlers) == 0
		l.mu.Unlock()
		if empty {
			return nil
		}

		n, err := unix.EpollWait(l.epfd, events, epollWaitTimeoutMillis(ctx))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("mainloop: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)

			l.mu.Lock()
			h, ok := l.handlers[fd]
			l.mu.Unlock()
			if !ok {
				continue
			}

			// Remove/Continue errors are the handler's own business to log
			// (e.g. a short write warning); only Stop propagates an error out
			// of Run.
			action, hErr := h(fd)
			switch action {
			case Remove:
				l.Remove(fd)
			case Stop:
				return hErr
			case Continue:
			}
		}
	}
}

// epollWaitTimeoutMillis polls at a short interval so ctx cancellation is
// noticed promptly without busy-looping; -1 (indefinite) would otherwise
// never observe ctx.Done() since epoll doesn't know about Go contexts.
func epollWaitTimeoutMillis(ctx context.Context) int {
	if ctx.Done() == nil {
		return -1
	}
	return 250
}

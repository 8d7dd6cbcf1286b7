//go:build darwin

package mainloop

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Loop is a poll(2)-backed descriptor loop, for platforms without epoll.
// Registration bookkeeping matches the linux/epoll Loop; only the wait
// primitive differs.
type Loop struct {
	mu       sync.Mutex
	handlers map[int]Handler
}

// Open creates a new Loop.
func Open() (*Loop, error) {
	return &Loop{handlers: make(map[int]Handler)}, nil
}

// Add registers h to be called whenever fd becomes readable.
func (l *Loop) Add(fd int, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.handlers[fd]; exists {
		return fmt.Errorf("mainloop: fd %d already registered", fd)
	}
	l.handlers[fd] = h
	return nil
}

// Remove deregisters fd. It is a no-op if fd was never added or was
// already removed.
func (l *Loop) Remove(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, fd)
}

// Close is a no-op; there is no shared OS resource to release.
func (l *Loop) Close() error {
	return nil
}

// Run dispatches readiness events until ctx is cancelled, every handler is
// removed, or a handler returns Stop; only Stop carries a handler's error
// out of Run.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		l.mu.Lock()
		if len(l.handlers) == 0 {
			l.mu.Unlock()
			return nil
		}
		pfds := make([]unix.PollFd, 0, len(l.handlers))
		for fd := range l.handlers {
			pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		}
		l.mu.Unlock()

		n, err := unix.Poll(pfds, 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("mainloop: poll: %w", err)
		}
		if n == 0 {
			continue
		}

		for _, pfd := range pfds {
			if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
				continue
			}
			fd := int(pfd.Fd)

			l.mu.Lock()
			h, ok := l.handlers[fd]
			l.mu.Unlock()
			if !ok {
				continue
			}

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

// Package mainloop is the single non-blocking descriptor loop every other
// component registers callbacks into: one goroutine, one readiness wait,
// handlers that never block and run to completion before the next event
// is dispatched. A platform wait primitive (epoll on linux, poll on
// darwin) sits under shared per-fd registration bookkeeping.
package mainloop

// Action is what a Handler asks the loop to do with its own registration
// after processing one readiness event.
type Action int

const (
	// Continue leaves the handler registered; the loop keeps running.
	Continue Action = iota
	// Remove deregisters this handler (e.g. EOF on its fd) but the loop
	// keeps running for the remaining handlers.
	Remove
	// Stop ends Run at once, returning the handler's error; the remaining
	// registrations are left in place.
	Stop
)

// Handler processes one readiness event on fd.
type Handler func(fd int) (Action, error)

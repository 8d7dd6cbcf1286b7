// Package consoletypes holds the data model and error kinds shared by the
// console multiplexer: the pty pairs a container exposes (one console, N
// ttys), their busy markers, and the typed errors the rest of the packages
// return.
package consoletypes

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ClientID identifies the caller that currently owns a console or tty
// slot: a monotonically increasing token handed out by ctlsock.Server per
// accepted connection. Unique within one Server, zero means "free", and the
// owning connection's closure is the detach signal that releases every
// slot carrying its ID.
type ClientID int64

// NoClient is the zero value meaning "slot is free".
const NoClient ClientID = 0

// ProxyPTY is the second pty pair created per console attach. Its slave
// becomes the console's peer; its master is handed to the attaching
// client.
type ProxyPTY struct {
	Master *os.File
	Slave  *os.File
	Name   string
	Busy   ClientID
}

// Console is the container's designated controlling terminal, distinct
// from the auxiliary tty slots.
type Console struct {
	mu sync.Mutex

	Master *os.File
	Slave  *os.File
	Name   string

	// Path is the optional host path to mirror the console to. The literal
	// value "none" disables console creation entirely.
	Path string

	LogPath string
	LogFile *os.File

	// Peer is the descriptor currently acting as the local peer terminal:
	// either the fd behind Path, or ProxyPTY.Slave during a remote attach.
	// Nil when unattached.
	Peer *os.File

	// PeerTermios is the saved termios of Peer, for restoration.
	PeerTermios *unix.Termios

	ProxyPTY ProxyPTY

	// Tracker is the winsize tracker currently wired to Peer<->Master. It is
	// an any to avoid an import cycle with package winsize; console's
	// allocator.go type asserts it back to *winsize.Tracker.
	Tracker any
}

// Lock and Unlock expose the console's mutex to callers (the allocator,
// the pump) that must serialize access to Peer/ProxyPTY/Tracker.
func (c *Console) Lock()   { c.mu.Lock() }
func (c *Console) Unlock() { c.mu.Unlock() }

// TTYSlot is one of the N pre-created auxiliary ttys.
type TTYSlot struct {
	Master *os.File
	Slave  *os.File
	Name   string
	Busy   ClientID
}

// TTYInfo holds the fixed-size array of tty slots for one container.
type TTYInfo struct {
	mu    sync.Mutex
	Slots []*TTYSlot
}

func NewTTYInfo(n int) *TTYInfo {
	return &TTYInfo{Slots: make([]*TTYSlot, n)}
}

func (t *TTYInfo) Lock()   { t.mu.Lock() }
func (t *TTYInfo) Unlock() { t.mu.Unlock() }

func (t *TTYInfo) Len() int { return len(t.Slots) }

// Package ptypair creates the pty pairs the rest of the module moves
// bytes between: the container's console pty and the proxy pty spawned
// per remote attach. Both are thin wrappers over github.com/creack/pty.
package ptypair

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/projecteru2/conmux/consoletypes"
)

// Pair is one master/slave pty pair plus the slave's kernel-assigned path.
type Pair struct {
	Master *os.File
	Slave  *os.File
	Name   string
}

// Open allocates a fresh pty pair, close-on-exec on both ends so a forked
// container process does not inherit host-side fds.
func Open() (*Pair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, consoletypes.New(consoletypes.KindPtyAlloc, "ptypair.Open", err)
	}
	unix.CloseOnExec(int(master.Fd()))
	unix.CloseOnExec(int(slave.Fd()))
	return &Pair{Master: master, Slave: slave, Name: slave.Name()}, nil
}

// Close closes both ends. Safe to call on a zero-value-ish Pair where one
// or both files are nil (e.g. a console that was never configured).
func (p *Pair) Close() error {
	if p == nil {
		return nil
	}
	var err error
	if p.Master != nil {
		if e := p.Master.Close(); e != nil {
			err = e
		}
	}
	if p.Slave != nil {
		if e := p.Slave.Close(); e != nil {
			err = e
		}
	}
	return err
}

// Winsize reads the current geometry of src and applies it to dst, the
// TIOCGWINSZ/TIOCSWINSZ pair behind resize propagation.
func Winsize(src, dst *os.File) error {
	ws, err := pty.GetsizeFull(src)
	if err != nil {
		return fmt.Errorf("ptypair: getsize %s: %w", src.Name(), err)
	}
	if err := pty.Setsize(dst, ws); err != nil {
		return fmt.Errorf("ptypair: setsize %s: %w", dst.Name(), err)
	}
	return nil
}

// Package consoleproc launches the stand-in process whose stdio is
// attached to a console or tty slave. This is deliberately the simplest
// thing that could work: one shell, no namespaces, no cgroups, no image
// filesystem. Real container start/exec mechanics live elsewhere, and
// this package exists so that substitution stays visible and isolated
// rather than smuggled into the console package.
package consoleproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/projecteru2/core/log"
)

// Launch execs shellPath (falling back to $SHELL, then /bin/sh) with its
// stdio dup'd onto slave and slave set as its controlling terminal. The
// process becomes its own session leader via Setsid, which Setctty
// requires.
func Launch(ctx context.Context, slave *os.File, shellPath string) (*exec.Cmd, error) {
	if shellPath == "" {
		shellPath = os.Getenv("SHELL")
	}
	if shellPath == "" {
		shellPath = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shellPath)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("consoleproc.Launch: start %s: %w", shellPath, err)
	}

	log.WithFunc("consoleproc.Launch").Infof(ctx, "launched %s as pid %d on %s", shellPath, cmd.Process.Pid, slave.Name())
	return cmd, nil
}

package cmd

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/conmux/console"
	"github.com/projecteru2/conmux/consoleproc"
	"github.com/projecteru2/conmux/ctlsock"
	"github.com/projecteru2/conmux/mainloop"
)

// serveCommand builds "conmux serve NAME", the supervisor side: create a
// console plus N tty slots, launch the stand-in shell on the console
// slave, and accept attach connections on a control socket until the
// context is cancelled.
func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve NAME",
		Short: "Run a console supervisor and accept attach connections",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	cmd.Flags().String("console-path", "", `host path to mirror the console to, or "none" to disable it`)
	cmd.Flags().String("log-path", "", "console transcript log path (default: under --root-dir)")
	cmd.Flags().String("shell", "", "stand-in shell to exec on the console (default: $SHELL, then /bin/sh)")
	cmd.Flags().Bool("foreground", false, "attach the supervisor's own terminal as the console peer instead of waiting for a remote attach")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	logger := log.WithFunc("cmd.serve")

	consolePath, _ := cmd.Flags().GetString("console-path")
	logPath, _ := cmd.Flags().GetString("log-path")
	shellPath, _ := cmd.Flags().GetString("shell")
	foreground, _ := cmd.Flags().GetBool("foreground")
	if logPath == "" {
		logPath = conf.ConsoleLogPath(name)
	}

	loop, err := mainloop.Open()
	if err != nil {
		return fmt.Errorf("open mainloop: %w", err)
	}
	defer loop.Close()

	sup, err := console.Create(ctx, loop, consolePath, logPath, conf.Escape, conf.TTYCount)
	if err != nil {
		return fmt.Errorf("create console: %w", err)
	}
	defer sup.Delete(ctx) //nolint:errcheck

	if foreground {
		// No remote supervisor to hint — this process is the supervisor.
		if err := sup.AttachLocalPeer(ctx, nil); err != nil {
			return fmt.Errorf("attach local peer: %w", err)
		}
	}

	if sup.Console.Slave != nil {
		shell, err := consoleproc.Launch(ctx, sup.Console.Slave, shellPath)
		if err != nil {
			return fmt.Errorf("launch shell: %w", err)
		}
		go func() {
			if werr := shell.Wait(); werr != nil {
				logger.Warnf(ctx, "stand-in shell exited: %v", werr)
			}
		}()
	}

	socketPath := conf.SocketPath(name)
	srv, err := ctlsock.Listen(socketPath, sup)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	defer srv.Close()

	logger.Infof(ctx, "console %q listening on %s", name, srv.Addr())

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return srv.Serve(gctx) })
	grp.Go(func() error { return loop.Run(gctx) })
	grp.Go(func() error {
		// AcceptUnix doesn't observe ctx on its own; unblock it on shutdown.
		<-gctx.Done()
		return srv.Close()
	})

	if err := grp.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

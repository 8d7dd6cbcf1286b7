package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/projecteru2/conmux/attach"
)

// attachCommand builds "conmux attach NAME", the client side: dial the
// named console's control socket and pump bytes until detach.
func attachCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach NAME",
		Short: "Attach to a console or tty slot",
		Args:  cobra.ExactArgs(1),
		RunE:  runAttach,
	}
	cmd.Flags().Int("tty", 0, "0 = console, N>0 = specific tty slot, N<0 = any free tty")
	cmd.Flags().String("escape-char", "", "escape character, 1..26 as a number or ^X caret notation")
	return cmd
}

func runAttach(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()

	ttyreq, _ := cmd.Flags().GetInt("tty")
	escapeFlag, _ := cmd.Flags().GetString("escape-char")

	escape := conf.Escape
	if escapeFlag != "" {
		e, err := parseEscape(escapeFlag)
		if err != nil {
			return err
		}
		escape = e
	}

	return attach.Run(ctx, attach.Options{
		SocketPath: conf.SocketPath(name),
		TTYReq:     ttyreq,
		Escape:     escape,
	})
}

// parseEscape accepts either a bare number (1..26) or caret notation
// (^A meaning Ctrl-a, i.e. 1). This is the only path an operator-supplied
// --escape-char value takes before reaching winsize.New, so the range is
// validated here rather than assumed to have been clamped upstream.
func parseEscape(s string) (byte, error) {
	if len(s) == 2 && s[0] == '^' {
		c := s[1]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid escape char %q: caret notation must be ^A..^Z", s)
		}
		return c - 'A' + 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid escape char %q: %w", s, err)
	}
	if n < 1 || n > 26 {
		return 0, fmt.Errorf("invalid escape char %q: must be 1..26", s)
	}
	return byte(n), nil
}

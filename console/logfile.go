package console

import "os"

// openAppendLog opens the per-session raw byte log append-only; it is
// only ever written, never read. No framing, no rotation — the
// application log is a separate concern with its own rotation via
// ServerLogConfig.
func openAppendLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}

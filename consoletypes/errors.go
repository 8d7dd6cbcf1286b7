package consoletypes

import "errors"

// Kind classifies a console-subsystem error.
type Kind int

const (
	_ Kind = iota
	KindNotATty
	KindTermiosIO
	KindPtyAlloc
	KindSignalBlock
	KindSignalFd
	KindLoopIO
	KindReadFailed
	KindWriteShort
	KindInUse
	KindOutOfRange
	KindNotConfigured
	KindCommandChannel
)

func (k Kind) String() string {
	switch k {
	case KindNotATty:
		return "NotATty"
	case KindTermiosIO:
		return "TermiosIO"
	case KindPtyAlloc:
		return "PtyAlloc"
	case KindSignalBlock:
		return "SignalBlock"
	case KindSignalFd:
		return "SignalFd"
	case KindLoopIO:
		return "LoopIO"
	case KindReadFailed:
		return "ReadFailed"
	case KindWriteShort:
		return "WriteShort"
	case KindInUse:
		return "InUse"
	case KindOutOfRange:
		return "OutOfRange"
	case KindNotConfigured:
		return "NotConfigured"
	case KindCommandChannel:
		return "CommandChannel"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error. err may be nil (e.g. InUse/OutOfRange have no
// underlying syscall error).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

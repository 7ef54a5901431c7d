package state

import "fmt"

// ErrorKind is the taxonomy of errors surfaced to callers, either
// synchronously (Congestion, Misc, and the BadState that Companion.Start
// returns when called twice) or via the result queue (produced when the
// radio answers ERR to the head-of-queue command).
type ErrorKind int

const (
	ErrMisc ErrorKind = iota
	ErrCongestion
	ErrUnsupportedCommand
	ErrNotFound
	ErrTableFull
	ErrBadState
	ErrFileIoError
	ErrIllegalArgument
	ErrFailedCommand
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMisc:
		return "misc"
	case ErrCongestion:
		return "congestion"
	case ErrUnsupportedCommand:
		return "unsupported_command"
	case ErrNotFound:
		return "not_found"
	case ErrTableFull:
		return "table_full"
	case ErrBadState:
		return "bad_state"
	case ErrFileIoError:
		return "file_io_error"
	case ErrIllegalArgument:
		return "illegal_argument"
	case ErrFailedCommand:
		return "failed_command"
	default:
		return "unknown"
	}
}

// CommandError wraps an ErrorKind with the command it originated from, the
// value pushed onto the result queue (or returned synchronously for
// Congestion/Misc).
type CommandError struct {
	Kind ErrorKind
	Cmd  Command
}

func (e *CommandError) Error() string {
	if e.Cmd != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cmd.Kind())
	}
	return e.Kind.String()
}

// ErrorKindFromErrSubCode maps the 0x01 ERR payload's sub-code byte to an
// ErrorKind, falling back to ErrFailedCommand for anything unrecognised
// rather than asserting on unexpected bytes.
func ErrorKindFromErrSubCode(sub byte) ErrorKind {
	switch sub {
	case 1:
		return ErrUnsupportedCommand
	case 2:
		return ErrNotFound
	case 3:
		return ErrTableFull
	case 4:
		return ErrBadState
	case 5:
		return ErrFileIoError
	case 6:
		return ErrIllegalArgument
	default:
		return ErrFailedCommand
	}
}

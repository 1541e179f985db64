package domain

import "fmt"

// ErrorKind enumerates the error categories that may cross the engine's
// public API boundary. Retry is deliberately not in this list: it is an
// internal-only signal that the component that receives it must loop on,
// never something a caller of Get/Put/Delete/GetRange should see.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindIOError
	KindCorruption
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIOError:
		return "io_error"
	case KindCorruption:
		return "corruption"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the engine's error type. It wraps an underlying cause (if any)
// with a kind so callers can branch with errors.Is/errors.As without
// parsing message text.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &Error{Kind: K}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// ErrNotFound is a sentinel usable directly with errors.Is.
var ErrNotFound = &Error{Kind: KindNotFound, Msg: "key not found"}

// ErrInvalidArgument is a sentinel usable directly with errors.Is.
var ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "invalid argument"}

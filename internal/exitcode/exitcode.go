package exitcode

import (
	"errors"
	"fmt"
)

// Exit statuses reported to the build system driving genlisp. The build
// tooling distinguishes environment failures from generation failures by
// status, so each failure class gets its own code.
const (
	Usage       = 1
	MkdirFailed = 5
	OpenFailed  = 7
	ScanFailed  = 8
)

// Error carries the process exit status for a fatal failure.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches an exit status to err. Returns nil if err is nil.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Errorf builds a status-carrying error from a format string.
func Errorf(code int, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// FromError reports the exit status for err. Errors without an explicit
// status exit 1.
func FromError(err error) int {
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return Usage
}

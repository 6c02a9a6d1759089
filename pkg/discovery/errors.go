package discovery

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrBadPattern is returned when the file name pattern is malformed.
	ErrBadPattern = errors.New("discovery: bad pattern")
	// ErrStartDir is returned when the start directory is missing or not a directory.
	ErrStartDir = errors.New("discovery: start directory is not importable")
	// ErrOutsideTopLevel is returned when the start directory lies outside the top-level directory.
	ErrOutsideTopLevel = errors.New("discovery: path must be within the project")
)

// Error is an unexpected discovery failure. It carries the goroutine stack
// captured where the failure was detected.
type Error struct {
	Op    string
	Err   error
	Stack []byte
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Stack: debug.Stack()}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the captured stack.
func (e *Error) StackTrace() []byte {
	return e.Stack
}

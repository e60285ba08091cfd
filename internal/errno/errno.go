// Platform error translation and the error taxonomy shared by the sync and
// async call paths.
package errno

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnsupported     = errors.New("operation not supported on this platform")
	ErrSystem          = errors.New("system call failed")
)

// Error is the structured form of a platform error code.
type Error struct {
	Errno   unix.Errno
	Code    int
	Name    string // symbolic, e.g. "EBADF"
	Message string // strerror text
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Errno
}

// Translate is pure; the same code always yields an equal *Error.
func Translate(code unix.Errno) *Error {
	name := unix.ErrnoName(code)
	if name == "" {
		name = "E" + strconv.Itoa(int(code))
	}
	return &Error{
		Errno:   code,
		Code:    int(code),
		Name:    name,
		Message: code.Error(),
	}
}

// FromError pulls the errno out of an error returned by x/sys/unix.
// Anything that is not an errno becomes EIO, zero means success.
func FromError(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var e unix.Errno
	if errors.As(err, &e) {
		return e
	}
	return unix.EIO
}

type Kind uint8

const (
	KindInvalidArgument Kind = iota + 1
	KindUnsupported
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindUnsupported:
		return "UnsupportedOperation"
	case KindSystem:
		return "SystemError"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindUnsupported:
		return ErrUnsupported
	case KindSystem:
		return ErrSystem
	}
	return nil
}

// OpError is what callers see from both modes. errors.Is matches the kind's
// sentinel, and through Unwrap the *Error and its unix.Errno.
type OpError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Code returns the errno carried by the error, 0 for argument errors.
func (e *OpError) Code() int {
	var se *Error
	if errors.As(e.Err, &se) {
		return se.Code
	}
	return 0
}

func InvalidArgument(op string, format string, args ...any) *OpError {
	return &OpError{Op: op, Kind: KindInvalidArgument, Err: fmt.Errorf(format, args...)}
}

func Unsupported(op string) *OpError {
	return &OpError{Op: op, Kind: KindUnsupported, Err: Translate(unix.ENOSYS)}
}

// FromErrno maps a completed call's errno to the caller-facing error: nil on
// success, Unsupported for ENOSYS, SystemError otherwise.
func FromErrno(op string, code unix.Errno) error {
	switch code {
	case 0:
		return nil
	case unix.ENOSYS:
		return Unsupported(op)
	}
	return &OpError{Op: op, Kind: KindSystem, Err: Translate(code)}
}

//go:build windows

package wae

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Error is the closed set of errors this package returns. Callers that need
// to distinguish cases should use errors.As/errors.Is against the exported
// sentinels and constructors below rather than string-matching Error().
type Error struct {
	kind errKind
	code uint32 // valid when kind == errKindOS
	msg  string // valid when kind == errKindUnexpected
}

type errKind uint8

const (
	errKindOS errKind = iota
	errKindNoContext
	errKindRecursiveContext
	errKindRecursiveBlockOn
	errKindCancelled
	errKindUnexpected
)

var (
	// ErrNoContext is returned when an operation that requires a current
	// Handle (see context.go) is attempted from outside one.
	ErrNoContext = &Error{kind: errKindNoContext}
	// ErrRecursiveContext is returned by Enter/TryEnter when the calling
	// goroutine already has a Handle entered.
	ErrRecursiveContext = &Error{kind: errKindRecursiveContext}
	// ErrRecursiveBlockOn is returned by BlockOn when called from within
	// another BlockOn: from the goroutine waiting in it, or from the fn it
	// is running.
	ErrRecursiveBlockOn = &Error{kind: errKindRecursiveBlockOn}
	// ErrCancelled is returned by a blocked read/write whose half was
	// cancelled out from under it (see ioHalf.cancel's wait=true path)
	// rather than completing normally.
	ErrCancelled = &Error{kind: errKindCancelled}
)

// OSError wraps a Windows error code (as returned by GetLastError or a
// Winsock call) into the package's closed error set.
func OSError(code uint32) error {
	return &Error{kind: errKindOS, code: code}
}

// Unexpected wraps an invariant violation that should never happen in
// correctly-functioning code. Its presence indicates a bug in this package,
// not in the caller.
func Unexpected(reason string) error {
	return &Error{kind: errKindUnexpected, msg: reason}
}

func (e *Error) Error() string {
	switch e.kind {
	case errKindOS:
		return "wae: win32 error: " + formatMessage(e.code)
	case errKindNoContext:
		return "wae: tried to use a handle outside of a wae context"
	case errKindRecursiveContext:
		return "wae: tried to recursively enter a wae context"
	case errKindRecursiveBlockOn:
		return "wae: tried to recursively block on a future"
	case errKindCancelled:
		return "wae: operation cancelled"
	case errKindUnexpected:
		return "wae: unexpected error (this is a bug): " + e.msg
	default:
		return "wae: unknown error"
	}
}

// Code returns the underlying Windows error code and true if this Error
// wraps an OS error.
func (e *Error) Code() (uint32, bool) {
	if e.kind != errKindOS {
		return 0, false
	}
	return e.code, true
}

func formatMessage(code uint32) string {
	buf := make([]uint16, 300)
	n, err := windows.FormatMessage(
		windows.FORMAT_MESSAGE_FROM_SYSTEM|windows.FORMAT_MESSAGE_IGNORE_INSERTS,
		0,
		code,
		0,
		buf,
		nil,
	)
	if err != nil || n == 0 {
		return fmt.Sprintf("error code %d", code)
	}
	return trimTrailingNewline(windows.UTF16ToString(buf[:n]))
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// lastOSError wraps the calling thread's last Windows error.
func lastOSError() error {
	errno, _ := windows.GetLastError().(windows.Errno)
	return OSError(uint32(errno))
}

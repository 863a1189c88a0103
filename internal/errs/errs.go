// Package errs defines the named error kinds the execution core can raise.
//
// Every distinct failure mode gets its own Go type so a caller can tell
// them apart with errors.As instead of string-matching a message, while
// still composing with fmt.Errorf's %w wrapping the way the rest of this
// codebase reports errors.
package errs

import "fmt"

// DecodeError reports malformed compiler input. It is only ever raised
// while constructing an ISeq, never at run time.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "decode error: " + e.Reason }

// NewDecodeError builds a DecodeError with a formatted reason.
func NewDecodeError(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// UndefinedLocal reports a read of an uninitialized local slot.
type UndefinedLocal struct {
	Name string
	Self string
}

func (e *UndefinedLocal) Error() string {
	return fmt.Sprintf("undefined local %q in %s", e.Name, e.Self)
}

// ArgArityError reports a user method invoked with an unsupported
// argument shape.
type ArgArityError struct {
	Method string
	Want   int
	Got    int
}

func (e *ArgArityError) Error() string {
	return fmt.Sprintf("wrong number of arguments for %s (given %d, expected %d)", e.Method, e.Got, e.Want)
}

// HostError wraps an error raised by the host runtime during a delegated
// send, constant lookup, or global import.
type HostError struct {
	Err error
}

func (e *HostError) Error() string { return e.Err.Error() }
func (e *HostError) Unwrap() error { return e.Err }

// NewHostError wraps err as a HostError, or returns nil if err is nil.
func NewHostError(err error) error {
	if err == nil {
		return nil
	}
	return &HostError{Err: err}
}

// InternalError indicates a bug in the decoder or instruction set: stack
// underflow, a missing label, or an unreachable dispatch state.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string { return "internal error: " + e.Reason }

// NewInternalError builds an InternalError with a formatted reason.
func NewInternalError(format string, args ...any) *InternalError {
	return &InternalError{Reason: fmt.Sprintf(format, args...)}
}

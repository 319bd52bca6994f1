// Package ncerrors defines the error taxonomy shared by every layer of the
// client: transport, framing, protocol decoding, session bookkeeping and
// the resolver. Callers classify a failure with errors.As. Kinds that
// carry an underlying cause expose it through Unwrap; TransportError also
// records a stack trace on its cause with github.com/pkg/errors.
package ncerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidArgumentError is raised synchronously, before any I/O, when a
// caller-supplied argument is malformed (an empty XPath, a union operator
// in a build context, conflicting options).
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string { return e.Reason }

// NewInvalidArgument builds an InvalidArgumentError.
func NewInvalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure from the SSH connection or subsystem open.
type TransportError struct {
	Target string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("netconf transport %s: %v", e.Target, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// NewTransport wraps cause as a TransportError for target.
func NewTransport(target string, cause error) error {
	return &TransportError{Target: target, Cause: errors.WithStack(cause)}
}

// TimeoutError marks the 20s ceiling on connect/handshake/first-reply/close
// having been exceeded.
type TimeoutError struct {
	Step string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("netconf %s timed out", e.Step) }

// NewTimeout builds a TimeoutError for the named step.
func NewTimeout(step string) error { return &TimeoutError{Step: step} }

// FramingError marks the framer's 50MiB ceiling having been exceeded.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return e.Reason }

// NewFraming builds a FramingError.
func NewFraming(reason string) error { return &FramingError{Reason: reason} }

// ProtocolError marks malformed XML or a missing session-id in a hello,
// detected while decoding a server message.
type ProtocolError struct {
	Reason string
	Cause  error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("netconf protocol error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("netconf protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// NewProtocol builds a ProtocolError.
func NewProtocol(reason string, cause error) error {
	return &ProtocolError{Reason: reason, Cause: cause}
}

// SemanticError marks a request that reached the server successfully but
// whose reply does not satisfy the caller's expectation (edit-config
// without ok, an empty schema fetch, a resolver producing no targets).
type SemanticError struct {
	Reason string
}

func (e *SemanticError) Error() string { return e.Reason }

// NewSemantic builds a SemanticError.
func NewSemantic(format string, args ...interface{}) error {
	return &SemanticError{Reason: fmt.Sprintf(format, args...)}
}

// MultipleEditError is raised when the resolver matched more than one
// target and the session was not configured with AllowMultipleEdit.
type MultipleEditError struct {
	Count int
}

func (e *MultipleEditError) Error() string {
	return fmt.Sprintf("resolver matched %d targets; set AllowMultipleEdit to allow this", e.Count)
}

// NewMultipleEdit builds a MultipleEditError.
func NewMultipleEdit(count int) error { return &MultipleEditError{Count: count} }

// ReadOnlyError is raised by any write-ish client call when the session was
// opened with ReadOnly set.
type ReadOnlyError struct{}

func (e *ReadOnlyError) Error() string { return "Operation not performed: in read-only mode" }

// ErrReadOnly is the single shared ReadOnlyError instance.
var ErrReadOnly = &ReadOnlyError{}

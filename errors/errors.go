// Package errors provides the fault taxonomy of the guest environment.
// All error types support unwrapping via errors.As() and errors.Is().
//
// Library packages return these errors explicitly. Only the guest-facing
// env API turns them into fatal aborts: a guest run either completes with a
// Finalization Result or produces none at all.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindProtocol Kind = "protocol"
	KindDecode   Kind = "decode"
	KindEncode   Kind = "encode"
	KindCapacity Kind = "capacity"
	KindState    Kind = "state"
	KindInternal Kind = "internal"
)

// KindedError is implemented by errors that know their own Kind.
type KindedError interface {
	error
	Kind() Kind
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ke KindedError
	if stdErrors.As(err, &ke) {
		return ke.Kind()
	}
	return KindInternal
}

// ProtocolError is returned when the host answers with an unexpected shape.
type ProtocolError struct {
	Op      string
	Channel uint32
	Detail  string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation in %s on channel %d: %s: %v", e.Op, e.Channel, e.Detail, e.Err)
	}
	return fmt.Sprintf("protocol violation in %s on channel %d: %s", e.Op, e.Channel, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Kind implements KindedError.
func (e *ProtocolError) Kind() Kind { return KindProtocol }

// DecodeError represents malformed or exhausted structured data.
type DecodeError struct {
	Err    error
	Type   string
	Offset int
}

func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %s at byte %d: %v", e.Type, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode at byte %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind implements KindedError.
func (e *DecodeError) Kind() Kind { return KindDecode }

// EncodeError represents a value the codec cannot represent.
type EncodeError struct {
	Err  error
	Type string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Kind implements KindedError.
func (e *EncodeError) Kind() Kind { return KindEncode }

// CapacityError represents a write that does not fit its memory region.
type CapacityError struct {
	Region string
	Need   int
	Have   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("region %s overflow: need %d bytes, have %d", e.Region, e.Need, e.Have)
}

// Kind implements KindedError.
func (e *CapacityError) Kind() Kind { return KindCapacity }

// StateError represents an operation issued out of lifecycle order.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Kind implements KindedError.
func (e *StateError) Kind() Kind { return KindState }

// Fault is the panic payload raised by Abort.
type Fault struct {
	Err error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("guest fault (%s): %v", KindOf(f.Err), f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Kind implements KindedError.
func (f *Fault) Kind() Kind { return KindOf(f.Err) }

// Abort terminates the guest run. It never returns.
func Abort(err error) {
	if err == nil {
		err = stdErrors.New("abort with nil error")
	}
	panic(&Fault{Err: err})
}

// Recover converts a recovered panic value into an error.
// It is meant to be called as `defer errors.Recover(&err)`.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	*errp = FromPanic(r)
}

// FromPanic converts an arbitrary panic value into a *Fault.
func FromPanic(r any) *Fault {
	switch v := r.(type) {
	case *Fault:
		return v
	case error:
		return &Fault{Err: v}
	case string:
		return &Fault{Err: stdErrors.New(v)}
	default:
		return &Fault{Err: fmt.Errorf("panic: %v", v)}
	}
}

package domain

import (
	"errors"
	"fmt"
)

type FaultKind int

const (
	FaultStore FaultKind = iota
	FaultInput
)

func (k FaultKind) String() string {
	switch k {
	case FaultInput:
		return "input"
	default:
		return "store"
	}
}

// Error is the failure returned by gateway operations. Its message is the
// underlying cause's message; Op names the operation for logs.
type Error struct {
	Kind FaultKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String() + " fault"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func StoreFault(op string, err error) error {
	return &Error{Kind: FaultStore, Op: op, Err: err}
}

func InputFault(op, format string, args ...any) error {
	return &Error{Kind: FaultInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the fault kind of err. Untyped errors count as store faults.
func KindOf(err error) FaultKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return FaultStore
}

// Package remote models failures of the external automation layer. Every
// collaborator failure reaches the operator as one human-readable message;
// structured codes from the other side are never interpreted.
package remote

import (
	"errors"
	"fmt"
)

// Failure is a rejected remote operation.
type Failure struct {
	Op      string // remote procedure name, e.g. "approveItem"
	Message string
	Err     error // underlying error, if the failure wraps one
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Failf builds a Failure for op with a formatted message.
func Failf(op, format string, args ...any) *Failure {
	return &Failure{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap turns any error from a collaborator call into a Failure for op. A
// Failure already in the chain is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Op: op, Message: err.Error(), Err: err}
}

// Message returns the text an operator sees for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}

// IsFailure reports whether err carries a remote Failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

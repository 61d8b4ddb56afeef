package undo

import (
	"errors"
	"fmt"
)

// Error is returned by engine operations.
//
// Error includes a Code for programmatic handling, the operation that failed,
// and for store failures the underlying error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the engine operation that failed (e.g. "undo", "freeze").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying store error, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeAlreadyFrozen indicates Freeze was called while frozen.
	ErrCodeAlreadyFrozen ErrorCode = "ALREADY_FROZEN"

	// ErrCodeNotFrozen indicates Unfreeze was called while not frozen.
	ErrCodeNotFrozen ErrorCode = "NOT_FROZEN"

	// ErrCodeStackEmpty indicates Undo or Redo found nothing to step.
	ErrCodeStackEmpty ErrorCode = "STACK_EMPTY"

	// ErrCodeStoreFailure indicates the store rejected a statement.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"

	// ErrCodeInvalidTable indicates a table name that cannot be watched.
	ErrCodeInvalidTable ErrorCode = "INVALID_TABLE"
)

// Sentinel errors for use with errors.Is. Matching compares codes only.
var (
	ErrAlreadyFrozen = &Error{Code: ErrCodeAlreadyFrozen, Message: "already frozen"}
	ErrNotFrozen     = &Error{Code: ErrCodeNotFrozen, Message: "not frozen"}
	ErrStackEmpty    = &Error{Code: ErrCodeStackEmpty, Message: "stack empty"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of an engine error, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsAlreadyFrozen returns true if err is an ALREADY_FROZEN error.
func IsAlreadyFrozen(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyFrozen
}

// IsNotFrozen returns true if err is a NOT_FROZEN error.
func IsNotFrozen(err error) bool {
	return CodeOf(err) == ErrCodeNotFrozen
}

// IsStackEmpty returns true if err is a STACK_EMPTY error.
func IsStackEmpty(err error) bool {
	return CodeOf(err) == ErrCodeStackEmpty
}

// IsStoreFailure returns true if err is a STORE_FAILURE error.
func IsStoreFailure(err error) bool {
	return CodeOf(err) == ErrCodeStoreFailure
}

func newStoreFailure(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStoreFailure,
		Op:      op,
		Message: "store rejected operation",
		Err:     err,
	}
}

func newAlreadyFrozen(cutoff int64) *Error {
	return &Error{
		Code:    ErrCodeAlreadyFrozen,
		Op:      "freeze",
		Message: fmt.Sprintf("already frozen at seq %d", cutoff),
	}
}

func newNotFrozen() *Error {
	return &Error{
		Code:    ErrCodeNotFrozen,
		Op:      "unfreeze",
		Message: "called unfreeze while not frozen",
	}
}

func newStackEmpty(op string) *Error {
	return &Error{
		Code:    ErrCodeStackEmpty,
		Op:      op,
		Message: "nothing to " + op,
	}
}

func newInvalidTable(table string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTable,
		Op:      "activate",
		Message: fmt.Sprintf("invalid table name %q", table),
	}
}

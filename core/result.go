package core

import (
	"errors"
	"fmt"

	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

// ErrorKind classifies a failed coordinator operation.
type ErrorKind string

const (
	KindDuplicateName      ErrorKind = "duplicate_name"
	KindNotFound           ErrorKind = "not_found"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindPasswordNotSet     ErrorKind = "password_not_set"
	KindAlreadyFinished    ErrorKind = "already_finished"
	KindNotFinished        ErrorKind = "not_finished"
	KindNotAssigned        ErrorKind = "not_assigned"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindInternal           ErrorKind = "internal"
)

var (
	// ErrDuplicateName matches failures caused by a name that is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrNotFound matches failures on a missing user or task.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied matches failures where the actor lacks a capability.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidCredentials matches wrong or malformed credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordNotSet matches logins by users who have no password yet.
	ErrPasswordNotSet = errors.New("password not set")

	// ErrAlreadyFinished matches finishing a finished task.
	ErrAlreadyFinished = errors.New("task already finished")

	// ErrNotFinished matches operations that require a finished task.
	ErrNotFinished = errors.New("task not finished")

	// ErrNotAssigned matches unassigning a user who is not assigned.
	ErrNotAssigned = errors.New("user not assigned")

	// ErrInvalidInput matches rejected names, descriptions, and passwords.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal matches persistence failures.
	ErrInternal = errors.New("internal error")
)

var kindErrors = map[ErrorKind]error{
	KindDuplicateName:      ErrDuplicateName,
	KindNotFound:           ErrNotFound,
	KindPermissionDenied:   ErrPermissionDenied,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindPasswordNotSet:     ErrPasswordNotSet,
	KindAlreadyFinished:    ErrAlreadyFinished,
	KindNotFinished:        ErrNotFinished,
	KindNotAssigned:        ErrNotAssigned,
	KindInvalidInput:       ErrInvalidInput,
	KindInternal:           ErrInternal,
}

// Error is the error form of a failed Result. It matches the package's
// sentinel errors with errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return kindErrors[e.Kind]
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Result is the outcome of a coordinator operation: either OK with a
// Value, or a failure with a Kind. Message is human-readable in both cases.
type Result[T any] struct {
	OK      bool
	Value   T
	Kind    ErrorKind
	Message string
}

// Err returns nil for a successful result and an *Error otherwise.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

// Unpack returns the value alongside Err.
func (r Result[T]) Unpack() (T, error) {
	return r.Value, r.Err()
}

func succeed[T any](value T, format string, args ...any) Result[T] {
	return Result[T]{OK: true, Value: value, Message: fmt.Sprintf(format, args...)}
}

func fail[T any](err *Error) Result[T] {
	return Result[T]{Kind: err.Kind, Message: err.Message}
}

// classify maps a domain error from the user and task packages to a kind.
func classify(err error) *Error {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr
	}

	kind := KindInternal
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		kind = KindInvalidCredentials
	case errors.Is(err, task.ErrAlreadyFinished):
		kind = KindAlreadyFinished
	case errors.Is(err, task.ErrNotFinished):
		kind = KindNotFinished
	case errors.Is(err, task.ErrNotAssigned):
		kind = KindNotAssigned
	case errors.Is(err, user.ErrInvalidName),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrEmptyPassword),
		errors.Is(err, user.ErrPasswordTooLong),
		errors.Is(err, user.ErrSamePassword),
		errors.Is(err, user.ErrPasswordAlreadySet),
		errors.Is(err, task.ErrEmptyName),
		errors.Is(err, task.ErrEmptyDescription),
		errors.Is(err, task.ErrEmptyUser),
		errors.Is(err, task.ErrEmptyComment),
		errors.Is(err, task.ErrEmptyAuthor),
		errors.Is(err, task.ErrInvalidStatus):
		kind = KindInvalidInput
	}
	return &Error{Kind: kind, Message: err.Error()}
}

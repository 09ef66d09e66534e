package engine

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrDuplicateTask   = errors.New("task already exists")

	ErrUnreachable     = errors.New("task server unreachable, changes are kept on this device")
	ErrCommitFailed    = errors.New("could not save the change to the server")
	ErrMigrationFailed = errors.New("could not move local tasks to the server")
	ErrStorageFailed   = errors.New("could not save tasks on this device")
)

// ErrorKind classifies the error currently held in the engine's Status.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindUnreachable     ErrorKind = "unreachable"
	KindCommitFailed    ErrorKind = "commit_failed"
	KindQuotaExceeded   ErrorKind = "quota_exceeded"
	KindMigrationFailed ErrorKind = "migration_failed"
	KindStorageFailed   ErrorKind = "storage_failed"
)

// Status is the error state the presentation layer observes. Storage and
// network failures end up here instead of being returned from operations.
type Status struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// OK reports whether no error is pending.
func (s Status) OK() bool {
	return s.Kind == KindNone
}

// Persistent reports whether the error describes a lasting condition (a
// banner) rather than a failed action.
func (s Status) Persistent() bool {
	return s.Kind == KindUnreachable || s.Kind == KindQuotaExceeded
}

func newStatus(kind ErrorKind, sentinel, cause error) Status {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return Status{Kind: kind, Message: sentinel.Error(), Err: err}
}

package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amonks/tareas/internal/validation"
)

var (
	// ErrEmptyName is returned when a task name is blank.
	ErrEmptyName = errors.New("task name cannot be empty")

	// ErrEmptyDescription is returned when a task description is blank.
	ErrEmptyDescription = errors.New("task description cannot be empty")

	// ErrInvalidStatus is returned when a status is not a known value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptyUser is returned when assigning a blank user name.
	ErrEmptyUser = errors.New("user name cannot be empty")

	// ErrNotAssigned is returned when unassigning a user who is not assigned.
	ErrNotAssigned = errors.New("user is not assigned to task")

	// ErrEmptyComment is returned when a comment has no text.
	ErrEmptyComment = errors.New("comment cannot be empty")

	// ErrEmptyAuthor is returned when a comment has no author.
	ErrEmptyAuthor = errors.New("comment author cannot be empty")

	// ErrAlreadyFinished is returned when finishing a finished task.
	ErrAlreadyFinished = errors.New("task is already finished")

	// ErrNotFinished is returned when an operation requires a finished task.
	ErrNotFinished = errors.New("task is not finished")

	// ErrFinishedMissingFinishedAt is returned when a finished task has no finished_at.
	ErrFinishedMissingFinishedAt = errors.New("finished task must have finished_at timestamp")

	// ErrPendingHasFinishedAt is returned when a pending task has finished_at set.
	ErrPendingHasFinishedAt = errors.New("pending task cannot have finished_at timestamp")
)

// ValidateStatus checks that status is a known value.
func ValidateStatus(status Status) error {
	return validation.OneOf(ErrInvalidStatus, status, ValidStatuses())
}

// ParseStatus normalizes a status name. "done" is accepted as finished.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "done" {
		return StatusFinished, nil
	}
	status := Status(normalized)
	if err := ValidateStatus(status); err != nil {
		return "", err
	}
	return status, nil
}

// Validate checks a task for consistency.
func Validate(t *Task) error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if err := ValidateStatus(t.Status); err != nil {
		return err
	}
	if t.IsFinished() && t.FinishedAt == nil {
		return fmt.Errorf("%w: %s", ErrFinishedMissingFinishedAt, t.Name)
	}
	if !t.IsFinished() && t.FinishedAt != nil {
		return fmt.Errorf("%w: %s", ErrPendingHasFinishedAt, t.Name)
	}
	return nil
}

// Package task defines tasks, their comments, and their status transitions.
package task

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the state of a task.
type Status string

const (
	// StatusPending is the initial state of every task.
	StatusPending Status = "pending"
	// StatusFinished marks a completed task.
	StatusFinished Status = "finished"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{StatusPending, StatusFinished}
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// Task is a named unit of work that users can be assigned to.
type Task struct {
	// Name is the unique identifier of the task.
	Name string `json:"name"`

	// Description explains the work.
	Description string `json:"description"`

	// Status is pending or finished.
	Status Status `json:"status"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt is set while the task is finished.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// AssignedUsers holds user names in assignment order, without duplicates.
	AssignedUsers []string `json:"assigned_users"`

	// Comments is the append-only discussion log.
	Comments []Comment `json:"comments"`
}

// Comment is a single note left on a task.
type Comment struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeName returns the form a task name is stored and looked up by.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// New creates a pending task. Name and description are trimmed and must
// not be empty.
func New(name, description string, now time.Time) (*Task, error) {
	name = NormalizeName(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, ErrEmptyName
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	return &Task{
		Name:          name,
		Description:   description,
		Status:        StatusPending,
		CreatedAt:     now,
		AssignedUsers: []string{},
		Comments:      []Comment{},
	}, nil
}

// IsFinished reports whether the task is finished.
func (t *Task) IsFinished() bool {
	return t.Status == StatusFinished
}

// IsAssigned reports whether userName is assigned to the task.
func (t *Task) IsAssigned(userName string) bool {
	return slices.Contains(t.AssignedUsers, userName)
}

// Assign adds userName to the task. Assigning an already assigned user
// succeeds without changing anything.
func (t *Task) Assign(userName string) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return ErrEmptyUser
	}
	if t.IsAssigned(userName) {
		return nil
	}
	t.AssignedUsers = append(t.AssignedUsers, userName)
	return nil
}

// Unassign removes userName from the task.
func (t *Task) Unassign(userName string) error {
	index := slices.Index(t.AssignedUsers, userName)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrNotAssigned, userName)
	}
	t.AssignedUsers = slices.Delete(t.AssignedUsers, index, index+1)
	return nil
}

// AddComment appends a comment stamped with now.
func (t *Task) AddComment(text, author string, now time.Time) error {
	text = strings.TrimSpace(text)
	author = strings.TrimSpace(author)
	if text == "" {
		return ErrEmptyComment
	}
	if author == "" {
		return ErrEmptyAuthor
	}
	t.Comments = append(t.Comments, Comment{Text: text, Author: author, Timestamp: now})
	return nil
}

// Finish moves a pending task to finished.
func (t *Task) Finish(now time.Time) error {
	if t.IsFinished() {
		return fmt.Errorf("%w: %s", ErrAlreadyFinished, t.Name)
	}
	t.Status = StatusFinished
	t.FinishedAt = &now
	return nil
}

// Reactivate moves a finished task back to pending and clears FinishedAt.
func (t *Task) Reactivate() error {
	if !t.IsFinished() {
		return fmt.Errorf("%w: %s", ErrNotFinished, t.Name)
	}
	t.Status = StatusPending
	t.FinishedAt = nil
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() Task {
	clone := *t
	if t.FinishedAt != nil {
		finishedAt := *t.FinishedAt
		clone.FinishedAt = &finishedAt
	}
	clone.AssignedUsers = append([]string{}, t.AssignedUsers...)
	clone.Comments = append([]Comment{}, t.Comments...)
	return clone
}

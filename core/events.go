package core

import "time"

// EventKind names a change made by the coordinator.
type EventKind string

const (
	EventUserCreated     EventKind = "user_created"
	EventUserDeleted     EventKind = "user_deleted"
	EventPasswordSet     EventKind = "password_set"
	EventPasswordReset   EventKind = "password_reset"
	EventTaskCreated     EventKind = "task_created"
	EventTaskAssigned    EventKind = "task_assigned"
	EventTaskUnassigned  EventKind = "task_unassigned"
	EventTaskCommented   EventKind = "task_commented"
	EventTaskFinished    EventKind = "task_finished"
	EventTaskReactivated EventKind = "task_reactivated"
	EventTaskDeleted     EventKind = "task_deleted"
)

// Event describes a successful mutation.
type Event struct {
	Kind  EventKind `json:"event"`
	Actor string    `json:"actor,omitempty"`
	User  string    `json:"user,omitempty"`
	Task  string    `json:"task,omitempty"`
	At    time.Time `json:"at"`
}

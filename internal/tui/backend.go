package tui

import (
	"context"

	"github.com/amonks/tareas/api"
	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/task"
)

// Backend is the task source the browser drives.
type Backend interface {
	// Actor is the name of the logged-in user.
	Actor() string
	ListTasks(ctx context.Context, filter core.TaskFilter) ([]task.Task, error)
	FinishTask(ctx context.Context, name string) (task.Task, error)
	ReactivateTask(ctx context.Context, name string) (task.Task, error)
	AddComment(ctx context.Context, name, text string) (task.Task, error)
	Stats(ctx context.Context) (core.Stats, error)
}

// LocalBackend runs operations directly against a coordinator.
type LocalBackend struct {
	Coordinator *core.Coordinator
	User        string
}

var _ Backend = LocalBackend{}

func (b LocalBackend) Actor() string { return b.User }

func (b LocalBackend) ListTasks(_ context.Context, filter core.TaskFilter) ([]task.Task, error) {
	return b.Coordinator.ListTasks(b.User, filter).Unpack()
}

func (b LocalBackend) FinishTask(_ context.Context, name string) (task.Task, error) {
	return b.Coordinator.FinishTask(b.User, name).Unpack()
}

func (b LocalBackend) ReactivateTask(_ context.Context, name string) (task.Task, error) {
	return b.Coordinator.ReactivateTask(b.User, name).Unpack()
}

func (b LocalBackend) AddComment(_ context.Context, name, text string) (task.Task, error) {
	return b.Coordinator.AddComment(b.User, name, text).Unpack()
}

func (b LocalBackend) Stats(context.Context) (core.Stats, error) {
	return b.Coordinator.Stats(), nil
}

// RemoteBackend runs operations against a tareas server.
type RemoteBackend struct {
	Client *api.Client
	User   string
}

var _ Backend = RemoteBackend{}

func (b RemoteBackend) Actor() string { return b.User }

func (b RemoteBackend) ListTasks(ctx context.Context, filter core.TaskFilter) ([]task.Task, error) {
	return b.Client.Tasks(ctx, filter)
}

func (b RemoteBackend) FinishTask(ctx context.Context, name string) (task.Task, error) {
	return b.Client.FinishTask(ctx, name)
}

func (b RemoteBackend) ReactivateTask(ctx context.Context, name string) (task.Task, error) {
	return b.Client.ReactivateTask(ctx, name)
}

func (b RemoteBackend) AddComment(ctx context.Context, name, text string) (task.Task, error) {
	return b.Client.AddComment(ctx, name, text)
}

func (b RemoteBackend) Stats(ctx context.Context) (core.Stats, error) {
	return b.Client.Stats(ctx)
}

package core

import (
	"github.com/amonks/tareas/snapshot"
	"github.com/amonks/tareas/task"
)

// TaskFilter narrows ListTasks. The zero value lists every task.
type TaskFilter struct {
	// Status keeps only tasks with this status when set.
	Status task.Status
	// User keeps only tasks assigned to this user when set.
	User string
}

// CreateTask creates a pending task.
func (c *Coordinator) CreateTask(actor, name, description string) Result[task.Task] {
	var created task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapCreateTasks); failure != nil {
			return failure
		}
		t, err := task.New(name, description, c.now())
		if err != nil {
			return classify(err)
		}
		if _, exists := c.tasks[t.Name]; exists {
			return newError(KindDuplicateName, "task %q already exists", t.Name)
		}
		c.tasks[t.Name] = t
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskCreated, Actor: actor, Task: t.Name, At: c.now()})
		created = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(created, "task %q created", created.Name)
}

// AssignTask assigns an existing user to a task. Assigning twice succeeds.
func (c *Coordinator) AssignTask(actor, taskName, userName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var updated task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapAssignTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if _, ok := c.users[userName]; !ok {
			return newError(KindNotFound, "user %q not found", userName)
		}
		if t.IsAssigned(userName) {
			updated = t.Clone()
			return nil
		}
		if err := t.Assign(userName); err != nil {
			return classify(err)
		}
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskAssigned, Actor: actor, Task: taskName, User: userName, At: c.now()})
		updated = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(updated, "user %q assigned to task %q", userName, taskName)
}

// UnassignTask removes a user from a task.
func (c *Coordinator) UnassignTask(actor, taskName, userName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var updated task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapAssignTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if err := t.Unassign(userName); err != nil {
			return newError(KindNotAssigned, "user %q is not assigned to task %q", userName, taskName)
		}
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskUnassigned, Actor: actor, Task: taskName, User: userName, At: c.now()})
		updated = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(updated, "user %q unassigned from task %q", userName, taskName)
}

// AddComment appends a comment authored by actor.
func (c *Coordinator) AddComment(actor, taskName, text string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var updated task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapCommentTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if err := t.AddComment(text, actor, c.now()); err != nil {
			return classify(err)
		}
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskCommented, Actor: actor, Task: taskName, At: c.now()})
		updated = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(updated, "comment added to task %q", taskName)
}

// FinishTask marks a task finished and records it in the archive. A
// failure to write the archive is logged and does not fail the call.
func (c *Coordinator) FinishTask(actor, taskName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var updated task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapFinishTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if err := t.Finish(c.now()); err != nil {
			return classify(err)
		}
		tx.touchTasks()
		tx.archive = append(tx.archive, t.Record())
		tx.emit(Event{Kind: EventTaskFinished, Actor: actor, Task: taskName, At: c.now()})
		updated = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(updated, "task %q finished", taskName)
}

// ReactivateTask moves a finished task back to pending.
func (c *Coordinator) ReactivateTask(actor, taskName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var updated task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapReactivateTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if err := t.Reactivate(); err != nil {
			return classify(err)
		}
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskReactivated, Actor: actor, Task: taskName, At: c.now()})
		updated = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(updated, "task %q reactivated", taskName)
}

// DeleteTask removes a finished task.
func (c *Coordinator) DeleteTask(actor, taskName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var deleted task.Task
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapDeleteTasks); failure != nil {
			return failure
		}
		t, failure := c.lookupTask(taskName)
		if failure != nil {
			return failure
		}
		if !t.IsFinished() {
			return newError(KindNotFinished, "only finished tasks can be deleted")
		}
		delete(c.tasks, taskName)
		tx.touchTasks()
		tx.emit(Event{Kind: EventTaskDeleted, Actor: actor, Task: taskName, At: c.now()})
		deleted = t.Clone()
		return nil
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(deleted, "task %q deleted", taskName)
}

// FindTask returns a task by name.
func (c *Coordinator) FindTask(actor, taskName string) Result[task.Task] {
	taskName = task.NormalizeName(taskName)
	var (
		found   task.Task
		failure *Error
	)
	c.view(func() {
		if _, failure = c.authorize(actor, CapViewTasks); failure != nil {
			return
		}
		var t *task.Task
		if t, failure = c.lookupTask(taskName); failure != nil {
			return
		}
		found = t.Clone()
	})
	if failure != nil {
		return fail[task.Task](failure)
	}
	return succeed(found, "task %q", taskName)
}

// ListTasks returns tasks sorted by name.
func (c *Coordinator) ListTasks(actor string, filter TaskFilter) Result[[]task.Task] {
	var (
		tasks   []task.Task
		failure *Error
	)
	c.view(func() {
		if _, failure = c.authorize(actor, CapViewTasks); failure != nil {
			return
		}
		if filter.Status != "" {
			if err := task.ValidateStatus(filter.Status); err != nil {
				failure = classify(err)
				return
			}
		}
		tasks = c.filterTasks(filter)
	})
	if failure != nil {
		return fail[[]task.Task](failure)
	}
	return succeed(tasks, "%d tasks", len(tasks))
}

// TasksForUser returns the tasks assigned to userName. Users may list
// their own tasks; listing another user's tasks requires an admin.
func (c *Coordinator) TasksForUser(actor, userName string, includeFinished bool) Result[[]task.Task] {
	var (
		tasks   []task.Task
		failure *Error
	)
	c.view(func() {
		if _, failure = c.authorizeSelfOr(actor, userName, CapViewAllUsers); failure != nil {
			return
		}
		if _, ok := c.users[userName]; !ok {
			failure = newError(KindNotFound, "user %q not found", userName)
			return
		}
		filter := TaskFilter{User: userName}
		if !includeFinished {
			filter.Status = task.StatusPending
		}
		tasks = c.filterTasks(filter)
	})
	if failure != nil {
		return fail[[]task.Task](failure)
	}
	return succeed(tasks, "%d tasks for %q", len(tasks), userName)
}

// ArchivedTasks returns the records in the finished-task archive.
func (c *Coordinator) ArchivedTasks() Result[[]task.ArchiveRecord] {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := snapshot.ReadArchive(c.archivePath)
	if err != nil {
		return fail[[]task.ArchiveRecord](newError(KindInternal, "read archive: %v", err))
	}
	return succeed(records, "%d archived tasks", len(records))
}

func (c *Coordinator) lookupTask(name string) (*task.Task, *Error) {
	t, ok := c.tasks[name]
	if !ok {
		return nil, newError(KindNotFound, "task %q not found", name)
	}
	return t, nil
}

func (c *Coordinator) filterTasks(filter TaskFilter) []task.Task {
	names := make([]string, 0, len(c.tasks))
	for name, t := range c.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.User != "" && !t.IsAssigned(filter.User) {
			continue
		}
		names = append(names, name)
	}
	sortNames(names)
	tasks := make([]task.Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, c.tasks[name].Clone())
	}
	return tasks
}

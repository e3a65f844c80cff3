// Package core is the single authority over users and tasks.
//
// A Coordinator owns the user and task mappings. Every public operation
// reloads both mappings from disk, validates the request, applies it, and
// writes the affected snapshot before returning a Result. Operations are
// serialized in process with a mutex and across processes with a lock
// file in the data directory.
package core

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/amonks/tareas/snapshot"
	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

const (
	// DefaultUsersFile is the users snapshot file name.
	DefaultUsersFile = "usuarios.dat"
	// DefaultTasksFile is the tasks snapshot file name.
	DefaultTasksFile = "tareas.dat"
	// DefaultArchiveFile is the finished-task archive file name.
	DefaultArchiveFile = "tareas_finalizadas.json"

	lockFile = ".tareas.lock"
)

// OpenOptions configures a Coordinator.
type OpenOptions struct {
	// UsersFile, TasksFile and ArchiveFile are resolved relative to the
	// data directory unless absolute.
	UsersFile   string
	TasksFile   string
	ArchiveFile string

	// MinPasswordLength is enforced when passwords are set. Zero only
	// rejects empty passwords.
	MinPasswordLength int

	// Logger receives non-fatal persistence problems. Defaults to discarding.
	Logger *log.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// OnChange is called after every successful mutation, once the
	// coordinator has released its locks.
	OnChange func(Event)
}

// Coordinator is the only component that mutates users and tasks.
type Coordinator struct {
	dir         string
	usersPath   string
	tasksPath   string
	archivePath string
	lockPath    string
	minPassword int
	logger      *log.Logger
	now         func() time.Time
	onChange    func(Event)

	mu    sync.Mutex
	users map[string]*user.User
	tasks map[string]*task.Task
}

// Open creates a coordinator backed by files in dir.
func Open(dir string, opts OpenOptions) (*Coordinator, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	dir = filepath.Clean(dir)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Coordinator{
		dir:         dir,
		usersPath:   resolveFile(dir, opts.UsersFile, DefaultUsersFile),
		tasksPath:   resolveFile(dir, opts.TasksFile, DefaultTasksFile),
		archivePath: resolveFile(dir, opts.ArchiveFile, DefaultArchiveFile),
		lockPath:    filepath.Join(dir, lockFile),
		minPassword: opts.MinPasswordLength,
		logger:      logger,
		now:         now,
		onChange:    opts.OnChange,
		users:       make(map[string]*user.User),
		tasks:       make(map[string]*task.Task),
	}
	return c, nil
}

// Dir returns the data directory.
func (c *Coordinator) Dir() string {
	return c.dir
}

// ArchivePath returns the path of the finished-task archive.
func (c *Coordinator) ArchivePath() string {
	return c.archivePath
}

func resolveFile(dir, name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// txn records what a mutation changed so update knows what to persist.
type txn struct {
	usersDirty bool
	tasksDirty bool
	archive    []task.ArchiveRecord
	events     []Event
}

func (tx *txn) touchUsers() { tx.usersDirty = true }
func (tx *txn) touchTasks() { tx.tasksDirty = true }

func (tx *txn) emit(event Event) {
	tx.events = append(tx.events, event)
}

// view runs fn against freshly loaded state under a shared lock on the
// data directory, so it never observes a writer between its two saves.
// A lock failure is logged and the read goes ahead.
func (c *Coordinator) view(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	unlock, err := snapshot.RLock(c.lockPath)
	if err != nil {
		c.logger.Printf("shared lock: %v", err)
	} else {
		defer func() {
			if err := unlock(); err != nil {
				c.logger.Printf("release shared lock: %v", err)
			}
		}()
	}

	c.reload()
	fn()
}

// update runs fn against freshly loaded state while holding the data
// directory lock, then saves whatever fn touched. Events go to OnChange
// after both locks are released.
func (c *Coordinator) update(fn func(tx *txn) *Error) *Error {
	events, failure := c.commit(fn)
	if failure != nil {
		return failure
	}
	if c.onChange != nil {
		for _, event := range events {
			c.onChange(event)
		}
	}
	return nil
}

func (c *Coordinator) commit(fn func(tx *txn) *Error) ([]Event, *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	unlock, err := snapshot.Lock(c.lockPath)
	if err != nil {
		return nil, newError(KindInternal, "lock data directory: %v", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			c.logger.Printf("release lock: %v", err)
		}
	}()

	c.reload()

	tx := &txn{}
	if failure := fn(tx); failure != nil {
		return nil, failure
	}

	if err := c.persist(tx); err != nil {
		c.logger.Printf("save failed: %v", err)
		return nil, newError(KindInternal, "save data: %v", err)
	}

	for _, record := range tx.archive {
		if err := snapshot.Archive(c.archivePath, record); err != nil {
			c.logger.Printf("archive task %q: %v", record.Name, err)
		}
	}
	return tx.events, nil
}

func (c *Coordinator) persist(tx *txn) error {
	var errs []error
	if tx.usersDirty {
		collection := make(map[string]user.User, len(c.users))
		for name, u := range c.users {
			collection[name] = *u
		}
		if err := snapshot.Save(c.usersPath, collection); err != nil {
			errs = append(errs, err)
		}
	}
	if tx.tasksDirty {
		collection := make(map[string]task.Task, len(c.tasks))
		for name, t := range c.tasks {
			collection[name] = *t
		}
		if err := snapshot.Save(c.tasksPath, collection); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reload replaces the in-memory mappings with the snapshots on disk.
// Unreadable snapshots load as empty.
func (c *Coordinator) reload() {
	users, err := snapshot.Load[map[string]user.User](c.usersPath)
	if err != nil {
		c.logger.Printf("load users: %v", err)
	}
	tasks, err := snapshot.Load[map[string]task.Task](c.tasksPath)
	if err != nil {
		c.logger.Printf("load tasks: %v", err)
	}

	c.users = make(map[string]*user.User, len(users))
	for name, u := range users {
		u := u
		if err := user.Validate(&u); err != nil {
			c.logger.Printf("skip user %q: %v", name, err)
			continue
		}
		c.users[name] = &u
	}
	c.tasks = make(map[string]*task.Task, len(tasks))
	for name, t := range tasks {
		t := t
		if err := task.Validate(&t); err != nil {
			c.logger.Printf("skip task %q: %v", name, err)
			continue
		}
		c.tasks[name] = &t
	}
}

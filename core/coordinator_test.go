package core

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/amonks/tareas/snapshot"
	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return openTestCoordinator(t, t.TempDir(), OpenOptions{})
}

func openTestCoordinator(t *testing.T, dir string, opts OpenOptions) *Coordinator {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	c, err := Open(dir, opts)
	if err != nil {
		t.Fatalf("open coordinator: %v", err)
	}
	return c
}

func mustOK[T any](t *testing.T, result Result[T]) T {
	t.Helper()
	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Kind, result.Message)
	}
	return result.Value
}

func mustFail[T any](t *testing.T, result Result[T], kind ErrorKind) {
	t.Helper()
	if result.OK {
		t.Fatalf("expected %s failure, got success: %s", kind, result.Message)
	}
	if result.Kind != kind {
		t.Fatalf("expected %s, got %s: %s", kind, result.Kind, result.Message)
	}
	if result.Message == "" {
		t.Fatal("expected a failure message")
	}
}

// seedAdmin bootstraps "boss" with password "secret".
func seedAdmin(t *testing.T, c *Coordinator) {
	t.Helper()
	mustOK(t, c.BootstrapAdmin("boss", "secret"))
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open("", OpenOptions{}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestOpenResolvesFiles(t *testing.T) {
	dir := t.TempDir()
	c := openTestCoordinator(t, dir, OpenOptions{ArchiveFile: "done.json"})
	if c.ArchivePath() != filepath.Join(dir, "done.json") {
		t.Fatalf("unexpected archive path %s", c.ArchivePath())
	}
	if c.usersPath != filepath.Join(dir, DefaultUsersFile) {
		t.Fatalf("unexpected users path %s", c.usersPath)
	}
}

func TestResultErrMatchesSentinels(t *testing.T) {
	c := newTestCoordinator(t)
	seedAdmin(t, c)

	result := c.FindTask("boss", "missing")
	err := result.Err()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var coreErr *Error
	if !errors.As(err, &coreErr) || coreErr.Kind != KindNotFound {
		t.Fatalf("expected *Error with not_found, got %#v", err)
	}

	if ok := mustOK(t, c.CreateTask("boss", "Deploy", "ship")); ok.Name != "Deploy" {
		t.Fatalf("unexpected task %+v", ok)
	}
	if err := c.FindTask("boss", "Deploy").Err(); err != nil {
		t.Fatalf("expected nil error for success, got %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	first := openTestCoordinator(t, dir, OpenOptions{})
	seedAdmin(t, first)
	mustOK(t, first.CreateTask("boss", "Deploy", "ship it"))

	second := openTestCoordinator(t, dir, OpenOptions{})
	found := mustOK(t, second.FindTask("boss", "Deploy"))
	if found.Description != "ship it" {
		t.Fatalf("unexpected description %q", found.Description)
	}
	if !second.HasAdmin() {
		t.Fatal("expected admin to survive reopen")
	}
}

func TestSharedDirectorySeesOtherWriters(t *testing.T) {
	dir := t.TempDir()
	cli := openTestCoordinator(t, dir, OpenOptions{})
	server := openTestCoordinator(t, dir, OpenOptions{})

	seedAdmin(t, cli)
	mustOK(t, server.CreateTask("boss", "One", "from the server"))
	mustOK(t, cli.CreateTask("boss", "Two", "from the cli"))

	tasks := mustOK(t, server.ListTasks("boss", TaskFilter{}))
	if len(tasks) != 2 {
		t.Fatalf("expected both writers' tasks, got %d", len(tasks))
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultUsersFile), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := openTestCoordinator(t, dir, OpenOptions{})
	if c.HasAdmin() {
		t.Fatal("expected corrupt snapshot to load as empty")
	}
	seedAdmin(t, c)
	if !c.HasAdmin() {
		t.Fatal("expected bootstrap to work after corruption")
	}
}

func TestWriteFailureIsInternal(t *testing.T) {
	dir := t.TempDir()
	c := openTestCoordinator(t, dir, OpenOptions{})
	seedAdmin(t, c)

	// A directory where the snapshot file should be makes the rename fail.
	tasksPath := filepath.Join(dir, DefaultTasksFile)
	if err := os.MkdirAll(filepath.Join(tasksPath, "blocker"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustFail(t, c.CreateTask("boss", "Deploy", "ship"), KindInternal)
}

func TestEventsFollowSuccessfulMutations(t *testing.T) {
	var events []Event
	c := openTestCoordinator(t, t.TempDir(), OpenOptions{
		OnChange: func(event Event) { events = append(events, event) },
	})
	seedAdmin(t, c)
	mustOK(t, c.CreateTask("boss", "Deploy", "ship"))
	mustFail(t, c.CreateTask("boss", "Deploy", "again"), KindDuplicateName)
	mustOK(t, c.FinishTask("boss", "Deploy"))

	kinds := make([]EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}
	want := []EventKind{EventUserCreated, EventTaskCreated, EventTaskFinished}
	if !slices.Equal(kinds, want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	if events[2].Task != "Deploy" || events[2].Actor != "boss" {
		t.Fatalf("unexpected event %+v", events[2])
	}
}

func TestStatsScenario(t *testing.T) {
	c := newTestCoordinator(t)
	seedAdmin(t, c)
	mustOK(t, c.CreateUser("boss", "alice", user.RoleStandard))
	mustOK(t, c.CreateUser("boss", "bob", user.RoleStandard))
	mustOK(t, c.SetInitialPassword("alice", "alicepw"))

	for _, name := range []string{"A", "B", "C", "D"} {
		mustOK(t, c.CreateTask("boss", name, "task "+name))
	}
	mustOK(t, c.AssignTask("boss", "A", "alice"))
	mustOK(t, c.FinishTask("alice", "D"))

	stats := c.Stats()
	want := Stats{
		Users: UserStats{Total: 3, Admins: 1, Standard: 2, WithoutPassword: 1},
		Tasks: TaskStats{Total: 4, Pending: 3, Finished: 1, Unassigned: 3},
	}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestStatsEmpty(t *testing.T) {
	c := newTestCoordinator(t)
	if stats := c.Stats(); stats != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestArchivedTasksMissingArchive(t *testing.T) {
	c := newTestCoordinator(t)
	records := mustOK(t, c.ArchivedTasks())
	if len(records) != 0 {
		t.Fatalf("expected empty archive, got %d", len(records))
	}
}

func TestArchiveFailureDoesNotFailFinish(t *testing.T) {
	dir := t.TempDir()
	c := openTestCoordinator(t, dir, OpenOptions{})
	seedAdmin(t, c)
	mustOK(t, c.CreateTask("boss", "Deploy", "ship"))
	if err := os.WriteFile(c.ArchivePath(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	finished := mustOK(t, c.FinishTask("boss", "Deploy"))
	if finished.Status != task.StatusFinished {
		t.Fatalf("expected finished, got %s", finished.Status)
	}
	mustFail(t, c.ArchivedTasks(), KindInternal)
}

func TestCorruptArchiveReportsUnreadable(t *testing.T) {
	dir := t.TempDir()
	c := openTestCoordinator(t, dir, OpenOptions{})
	if err := os.WriteFile(c.ArchivePath(), []byte("["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := snapshot.ReadArchive(c.ArchivePath()); !errors.Is(err, snapshot.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestSlowOnChangeDoesNotBlockOthers(t *testing.T) {
	dir := t.TempDir()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	c := openTestCoordinator(t, dir, OpenOptions{
		OnChange: func(event Event) {
			if event.Kind != EventTaskCreated {
				return
			}
			entered <- struct{}{}
			<-release
		},
	})
	seedAdmin(t, c)

	created := make(chan Result[task.Task], 1)
	go func() { created <- c.CreateTask("boss", "Deploy", "ship") }()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("expected OnChange to be called")
	}

	other := openTestCoordinator(t, dir, OpenOptions{})
	done := make(chan Stats, 1)
	go func() {
		if result := other.CreateTask("boss", "Review", "read"); !result.OK {
			t.Errorf("second writer: %s: %s", result.Kind, result.Message)
		}
		done <- c.Stats()
	}()
	select {
	case stats := <-done:
		if stats.Tasks.Total != 2 {
			t.Fatalf("expected 2 tasks, got %d", stats.Tasks.Total)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected Stats and a second writer to finish while OnChange is stalled")
	}

	close(release)
	mustOK(t, <-created)
}

func TestReadsWaitForWriters(t *testing.T) {
	dir := t.TempDir()
	c := openTestCoordinator(t, dir, OpenOptions{})
	seedAdmin(t, c)

	unlock, err := snapshot.Lock(filepath.Join(dir, lockFile))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	done := make(chan Stats, 1)
	go func() { done <- c.Stats() }()

	select {
	case <-done:
		t.Fatal("expected Stats to wait for the writer's lock")
	case <-time.After(50 * time.Millisecond):
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case stats := <-done:
		if stats.Users.Total != 1 {
			t.Fatalf("expected 1 user, got %d", stats.Users.Total)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected Stats after the lock was released")
	}
}

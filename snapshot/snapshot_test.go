package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	users, err := Load[map[string]user.User](filepath.Join(t.TempDir(), "usuarios.dat"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty collection, got %d entries", len(users))
	}
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tareas.dat")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tasks, err := Load[map[string]task.Task](path)
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty collection, got %d entries", len(tasks))
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usuarios.dat")
	admin, err := user.New("root_admin", user.RoleAdmin)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := admin.SetPassword("secret"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	if err := Save(path, map[string]user.User{admin.Name: *admin}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load[map[string]user.User](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := loaded["root_admin"]
	if !ok {
		t.Fatal("expected root_admin to be loaded")
	}
	if got.Role != user.RoleAdmin {
		t.Fatalf("expected admin role, got %s", got.Role)
	}
	if !got.VerifyPassword("secret") {
		t.Fatal("expected password hash to survive the snapshot")
	}
}

func TestSaveOverwritesWholeCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tareas.dat")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, _ := task.New("One", "first", now)
	second, _ := task.New("Two", "second", now)

	if err := Save(path, map[string]task.Task{"One": *first, "Two": *second}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Save(path, map[string]task.Task{"Two": *second}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load[map[string]task.Task](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 task, got %d", len(loaded))
	}
	if _, ok := loaded["Two"]; !ok {
		t.Fatal("expected Two to remain")
	}
}

func TestLockSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tareas.lock")
	unlock, err := Lock(path)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := Lock(path)
		if err != nil {
			t.Errorf("second lock: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = second()
	}()

	select {
	case <-acquired:
		t.Fatal("expected second lock to wait")
	case <-time.After(50 * time.Millisecond):
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("expected second lock after release")
	}
}

func TestSharedLocksExcludeWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tareas.lock")
	first, err := RLock(path)
	if err != nil {
		t.Fatalf("shared lock: %v", err)
	}
	second, err := RLock(path)
	if err != nil {
		t.Fatalf("second shared lock: %v", err)
	}
	if err := second(); err != nil {
		t.Fatalf("unlock second: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		unlock, err := Lock(path)
		if err != nil {
			t.Errorf("exclusive lock: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("expected exclusive lock to wait for the reader")
	case <-time.After(50 * time.Millisecond):
	}

	if err := first(); err != nil {
		t.Fatalf("unlock first: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("expected exclusive lock after the reader released")
	}
}

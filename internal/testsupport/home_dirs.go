package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// xdgEnv would otherwise point tests at the developer's own files.
var xdgEnv = []string{"XDG_STATE_HOME", "XDG_CONFIG_HOME"}

// EnsureHomeDirs creates the session and config directories under homeDir.
func EnsureHomeDirs(homeDir string) error {
	for _, dir := range []string{
		filepath.Join(homeDir, ".local", "state", "tareas"),
		filepath.Join(homeDir, ".config", "tareas"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// SetupTestHome points HOME at a fresh temp directory and clears the XDG
// overrides.
func SetupTestHome(t testing.TB) string {
	t.Helper()

	homeDir := t.TempDir()
	if err := EnsureHomeDirs(homeDir); err != nil {
		t.Fatalf("setup home dir: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range xdgEnv {
		t.Setenv(key, "")
	}
	return homeDir
}

// Package paths locates the per-user files tareas reads and writes.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "tareas"

// HomeDir returns the current user's home directory.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return home, nil
}

// DefaultStateDir returns the directory holding CLI sessions:
// $XDG_STATE_HOME/tareas, or ~/.local/state/tareas.
func DefaultStateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// GlobalConfigPath returns the per-user config file:
// $XDG_CONFIG_HOME/tareas/config.toml, or ~/.config/tareas/config.toml.
func GlobalConfigPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// xdgDir resolves an XDG base directory under appName. Relative values
// are ignored.
func xdgDir(key, fallback string) (string, error) {
	if base := os.Getenv(key); filepath.IsAbs(base) {
		return filepath.Join(base, appName), nil
	}
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

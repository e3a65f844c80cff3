package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/config"
	"github.com/amonks/tareas/internal/paths"
	"github.com/amonks/tareas/internal/state"
)

// ErrNotLoggedIn is returned by commands that act as the logged-in user
// when nobody is logged in for the data directory.
var ErrNotLoggedIn = errors.New("not logged in")

// app is the state a local command works with.
type app struct {
	cfg   *config.Config
	store *state.Store
	coord *core.Coordinator
}

// loadConfig loads configuration for the working directory, honoring
// --data-dir.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		dir, err := filepath.Abs(dataDirFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.Data.Dir = dir
	}
	return cfg, nil
}

// loadApp loads configuration and opens the coordinator for the data
// directory. onChange may be nil.
func loadApp(onChange func(core.Event)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStateStore()
	if err != nil {
		return nil, err
	}

	coord, err := core.Open(cfg.Data.Dir, core.OpenOptions{
		UsersFile:         cfg.Data.UsersFile,
		TasksFile:         cfg.Data.TasksFile,
		ArchiveFile:       cfg.Data.ArchiveFile,
		MinPasswordLength: cfg.Password.MinLength,
		Logger:            log.New(os.Stderr, "tareas: ", 0),
		OnChange:          onChange,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, store: store, coord: coord}, nil
}

func openStateStore() (*state.Store, error) {
	stateDir, err := paths.DefaultStateDir()
	if err != nil {
		return nil, err
	}
	return state.NewStore(stateDir), nil
}

// actor returns the user logged in for the data directory.
func (a *app) actor() (string, error) {
	session, ok, err := a.store.LocalSession(a.coord.Dir())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: run \"tareas login <name>\" first", ErrNotLoggedIn)
	}
	return session.User, nil
}

// resultError reports a failed coordinator operation. Its exit code
// depends on the failure kind.
type resultError struct {
	err *core.Error
}

func (e resultError) Error() string { return e.err.Error() }

func (e resultError) Unwrap() error { return e.err }

func (e resultError) ExitCode() int {
	switch e.err.Kind {
	case core.KindPermissionDenied:
		return 3
	case core.KindNotFound:
		return 4
	case core.KindInvalidCredentials, core.KindPasswordNotSet:
		return 5
	default:
		return 1
	}
}

// check unwraps a coordinator result into a value or a resultError.
func check[T any](result core.Result[T]) (T, error) {
	if !result.OK {
		return result.Value, resultError{err: &core.Error{Kind: result.Kind, Message: result.Message}}
	}
	return result.Value, nil
}

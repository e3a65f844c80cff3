// Package state manages the CLI session file.
//
// The session file (~/.local/state/tareas/session.json) remembers who is
// logged in for each data directory and the tokens held for each server.
// All access is serialized through file locking so concurrent CLI
// invocations do not clobber each other.
package state

import "time"

// State represents the persisted session file.
type State struct {
	// Local maps an absolute data directory to the user logged in there.
	Local map[string]LocalSession `json:"local"`
	// Remote maps a server base URL to the tokens held for it.
	Remote map[string]RemoteSession `json:"remote"`
}

// LocalSession records a user logged in against a data directory.
type LocalSession struct {
	User       string    `json:"user"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// RemoteSession records tokens issued by a tareas server.
type RemoteSession struct {
	User         string    `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	LoggedInAt   time.Time `json:"logged_in_at"`
}

func newState() *State {
	return &State{
		Local:  make(map[string]LocalSession),
		Remote: make(map[string]RemoteSession),
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amonks/tareas/api"
	"github.com/amonks/tareas/internal/state"
)

// remoteClient returns a client for server carrying the stored session's
// access token. An expired access token is refreshed once and the new
// pair is saved.
func remoteClient(ctx context.Context, server string) (*api.Client, state.RemoteSession, error) {
	store, err := openStateStore()
	if err != nil {
		return nil, state.RemoteSession{}, err
	}
	session, ok, err := store.RemoteSession(server)
	if err != nil {
		return nil, state.RemoteSession{}, err
	}
	if !ok {
		return nil, state.RemoteSession{}, fmt.Errorf("%w: run \"tareas login --server %s <name>\" first", ErrNotLoggedIn, server)
	}

	client := api.NewClient(server)
	client.SetToken(session.AccessToken)
	_, err = client.Me(ctx)
	if err == nil {
		return client, session, nil
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return nil, state.RemoteSession{}, err
	}

	pair, err := client.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return nil, state.RemoteSession{}, fmt.Errorf("%w: session expired, log in again", ErrNotLoggedIn)
	}
	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	session.LoggedInAt = time.Now()
	if err := store.SetRemoteSession(server, session); err != nil {
		return nil, state.RemoteSession{}, err
	}
	return client, session, nil
}

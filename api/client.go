package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/task"
)

// Client calls the REST API.
type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

// APIError is a failure response from the server.
type APIError struct {
	Status  int
	Kind    core.ErrorKind
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tareas server: %d %s", e.Status, e.Kind)
	}
	return fmt.Sprintf("tareas server: %s", e.Message)
}

// Unwrap returns the core sentinel matching the error kind, so callers
// can use errors.Is(err, core.ErrNotFound).
func (e *APIError) Unwrap() error {
	return (&core.Error{Kind: e.Kind, Message: e.Message}).Unwrap()
}

// NewClient creates a client for the given address or URL.
func NewClient(addr string) *Client {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: baseURL, client: &http.Client{}}
}

// SetToken sets the access token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Login authenticates and remembers the access token.
func (c *Client) Login(ctx context.Context, name, password string) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentialsRequest{Name: name, Password: password}, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Tokens.AccessToken
	return session, nil
}

// Refresh trades a refresh token for a new pair and remembers the access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &session); err != nil {
		return auth.Pair{}, err
	}
	c.token = session.Tokens.AccessToken
	return session.Tokens, nil
}

// Logout revokes the current access token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", refreshRequest{}, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (UserView, error) {
	var view UserView
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &view)
	return view, err
}

// Stats returns system counts.
func (c *Client) Stats(ctx context.Context) (core.Stats, error) {
	var stats core.Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

// Tasks lists tasks matching filter.
func (c *Client) Tasks(ctx context.Context, filter core.TaskFilter) ([]task.Task, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.User != "" {
		query.Set("user", filter.User)
	}
	path := "/tasks"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var tasks []task.Task
	err := c.do(ctx, http.MethodGet, path, nil, &tasks)
	return tasks, err
}

// Task returns one task.
func (c *Client) Task(ctx context.Context, name string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodGet, taskPath(name, ""), nil, &t)
	return t, err
}

// CreateTask creates a pending task.
func (c *Client) CreateTask(ctx context.Context, name, description string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodPost, "/tasks", createTaskRequest{Name: name, Description: description}, &t)
	return t, err
}

// AssignTask assigns a user to a task.
func (c *Client) AssignTask(ctx context.Context, name, userName string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodPost, taskPath(name, "assign"), assignRequest{User: userName}, &t)
	return t, err
}

// AddComment comments on a task as the logged-in user.
func (c *Client) AddComment(ctx context.Context, name, text string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodPost, taskPath(name, "comments"), commentRequest{Text: text}, &t)
	return t, err
}

// FinishTask finishes a task.
func (c *Client) FinishTask(ctx context.Context, name string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodPost, taskPath(name, "finish"), nil, &t)
	return t, err
}

// ReactivateTask reopens a finished task.
func (c *Client) ReactivateTask(ctx context.Context, name string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodPost, taskPath(name, "reactivate"), nil, &t)
	return t, err
}

func taskPath(name, action string) string {
	path := "/tasks/" + url.PathEscape(name)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var response struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Error   core.ErrorKind  `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Kind: core.KindInternal, Message: resp.Status}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if !response.Success {
		kind := response.Error
		if kind == "" {
			kind = core.KindInternal
		}
		return &APIError{Status: resp.StatusCode, Kind: kind, Message: response.Message}
	}
	if dest == nil || len(response.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Data, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

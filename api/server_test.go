package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	coordinator *core.Coordinator
	issuer      *auth.Issuer
	hub         *Hub
	server      *Server
	http        *httptest.Server
}

func newTestEnv(t *testing.T, opts ServerOptions) *testEnv {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	hub := NewHub(logger)
	coordinator, err := core.Open(t.TempDir(), core.OpenOptions{OnChange: hub.Broadcast})
	if err != nil {
		t.Fatalf("open coordinator: %v", err)
	}
	issuer, err := auth.NewIssuer(auth.Options{Secret: testSecret})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	opts.Coordinator = coordinator
	opts.Issuer = issuer
	opts.Hub = hub
	opts.Logger = logger
	server, err := NewServer(opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		httpServer.Close()
		server.Close()
	})
	return &testEnv{coordinator: coordinator, issuer: issuer, hub: hub, server: server, http: httpServer}
}

type rawResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   core.ErrorKind  `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (env *testEnv) request(t *testing.T, method, path, token string, body any) (int, rawResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.http.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var payload rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, payload
}

// login bootstraps "boss" when needed and returns a client logged in as name.
func (env *testEnv) login(t *testing.T, name, password string) *Client {
	t.Helper()
	client := NewClient(env.http.URL)
	if _, err := client.Login(context.Background(), name, password); err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return client
}

func (env *testEnv) seedAdmin(t *testing.T) *Client {
	t.Helper()
	status, payload := env.request(t, http.MethodPost, "/auth/bootstrap", "", credentialsRequest{Name: "boss", Password: "secret"})
	if status != http.StatusCreated {
		t.Fatalf("bootstrap: %d %s", status, payload.Message)
	}
	return env.login(t, "boss", "secret")
}

func (env *testEnv) seedUser(t *testing.T, admin *Client, name, password string) *Client {
	t.Helper()
	status, payload := env.request(t, http.MethodPost, "/users", admin.token, createUserRequest{Name: name})
	if status != http.StatusCreated {
		t.Fatalf("create %s: %d %s", name, status, payload.Message)
	}
	status, payload = env.request(t, http.MethodPost, "/auth/set-password", "", credentialsRequest{Name: name, Password: password})
	if status != http.StatusOK {
		t.Fatalf("set password %s: %d %s", name, status, payload.Message)
	}
	return env.login(t, name, password)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	if err := NewClient(env.http.URL).Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerOptions{}); err == nil {
		t.Fatal("expected error without coordinator")
	}
}

func TestBootstrapLoginAndMe(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)

	me, err := admin.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Name != "boss" || me.Role != "admin" || !me.HasPassword {
		t.Fatalf("unexpected me: %+v", me)
	}

	status, payload := env.request(t, http.MethodPost, "/auth/bootstrap", "", credentialsRequest{Name: "other", Password: "secret"})
	if status != http.StatusForbidden || payload.Error != core.KindPermissionDenied {
		t.Fatalf("second bootstrap: %d %s", status, payload.Error)
	}
}

func TestOverlongPasswordIsBadRequest(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	long := strings.Repeat("a", 80)

	status, payload := env.request(t, http.MethodPost, "/auth/bootstrap", "", credentialsRequest{Name: "boss", Password: long})
	if status != http.StatusBadRequest || payload.Error != core.KindInvalidInput {
		t.Fatalf("bootstrap: %d %s %s", status, payload.Error, payload.Message)
	}

	admin := env.seedAdmin(t)
	status, payload = env.request(t, http.MethodPost, "/auth/change-password", admin.token, changePasswordRequest{OldPassword: "secret", NewPassword: long})
	if status != http.StatusBadRequest || payload.Error != core.KindInvalidInput {
		t.Fatalf("change password: %d %s %s", status, payload.Error, payload.Message)
	}
}

func TestLoginOutcomes(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	status, _ := env.request(t, http.MethodPost, "/users", admin.token, createUserRequest{Name: "alice"})
	if status != http.StatusCreated {
		t.Fatalf("create alice: %d", status)
	}

	for _, tc := range []struct {
		name     string
		user     string
		password string
		status   int
		kind     core.ErrorKind
	}{
		{name: "unknown user", user: "ghost", password: "x", status: http.StatusUnauthorized, kind: core.KindInvalidCredentials},
		{name: "no password yet", user: "alice", password: "x", status: http.StatusPreconditionRequired, kind: core.KindPasswordNotSet},
		{name: "wrong password", user: "boss", password: "wrong", status: http.StatusUnauthorized, kind: core.KindInvalidCredentials},
	} {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := env.request(t, http.MethodPost, "/auth/login", "", credentialsRequest{Name: tc.user, Password: tc.password})
			if status != tc.status || payload.Error != tc.kind {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.kind, status, payload.Error)
			}
			if payload.Success {
				t.Fatal("expected success=false")
			}
		})
	}
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	for _, path := range []string{"/tasks", "/users", "/stats", "/auth/me", "/archive"} {
		status, payload := env.request(t, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized || payload.Error != core.KindInvalidCredentials {
			t.Fatalf("GET %s: expected 401, got %d %s", path, status, payload.Error)
		}
	}
	status, _ := env.request(t, http.MethodGet, "/tasks", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", status)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	env.seedAdmin(t)
	session, err := NewClient(env.http.URL).Login(context.Background(), "boss", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	status, _ := env.request(t, http.MethodGet, "/auth/me", session.Tokens.RefreshToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	ctx := context.Background()
	admin := env.seedAdmin(t)
	alice := env.seedUser(t, admin, "alice", "hunter22")

	created, err := alice.CreateTask(ctx, "Deploy", "Ship the release")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.Status != task.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	if _, err := alice.AssignTask(ctx, "Deploy", "alice"); !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for standard assign, got %v", err)
	}
	if _, err := admin.AssignTask(ctx, "Deploy", "alice"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := alice.AddComment(ctx, "Deploy", "on it"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	finished, err := alice.FinishTask(ctx, "Deploy")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if finished.FinishedAt == nil || len(finished.Comments) != 1 || finished.Comments[0].Author != "alice" {
		t.Fatalf("unexpected finished task: %+v", finished)
	}
	if _, err := alice.FinishTask(ctx, "Deploy"); !errors.Is(err, core.ErrAlreadyFinished) {
		t.Fatalf("expected already finished, got %v", err)
	}

	status, payload := env.request(t, http.MethodGet, "/archive", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("archive: %d", status)
	}
	var records []task.ArchiveRecord
	if err := json.Unmarshal(payload.Data, &records); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Deploy" || records[0].AssignedUsers[0] != "alice" {
		t.Fatalf("unexpected archive: %+v", records)
	}

	if _, err := alice.ReactivateTask(ctx, "Deploy"); !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for standard reactivate, got %v", err)
	}
	if _, err := admin.ReactivateTask(ctx, "Deploy"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	pending, err := alice.Tasks(ctx, core.TaskFilter{Status: task.StatusPending, User: "alice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "Deploy" {
		t.Fatalf("unexpected pending tasks: %+v", pending)
	}
}

func TestTaskNamesWithSpaces(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	ctx := context.Background()
	admin := env.seedAdmin(t)
	if _, err := admin.CreateTask(ctx, "Write docs", "README"); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := admin.Task(ctx, "Write docs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "README" {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	alice := env.seedUser(t, admin, "alice", "hunter22")

	for _, tc := range []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		kind   core.ErrorKind
	}{
		{name: "duplicate user", method: http.MethodPost, path: "/users", token: admin.token, body: createUserRequest{Name: "alice"}, status: http.StatusConflict, kind: core.KindDuplicateName},
		{name: "standard deletes user", method: http.MethodDelete, path: "/users/boss", token: alice.token, status: http.StatusForbidden, kind: core.KindPermissionDenied},
		{name: "delete admin", method: http.MethodDelete, path: "/users/boss", token: admin.token, status: http.StatusForbidden, kind: core.KindPermissionDenied},
		{name: "missing task", method: http.MethodGet, path: "/tasks/nothing", token: alice.token, status: http.StatusNotFound, kind: core.KindNotFound},
		{name: "unknown field", method: http.MethodPost, path: "/tasks", token: alice.token, body: map[string]string{"title": "x"}, status: http.StatusBadRequest, kind: core.KindInvalidInput},
		{name: "bad role", method: http.MethodPost, path: "/users", token: admin.token, body: createUserRequest{Name: "carol", Role: "owner"}, status: http.StatusBadRequest, kind: core.KindInvalidInput},
		{name: "bad status filter", method: http.MethodGet, path: "/tasks?status=someday", token: alice.token, status: http.StatusBadRequest, kind: core.KindInvalidInput},
		{name: "unknown route", method: http.MethodGet, path: "/nope", token: alice.token, status: http.StatusNotFound, kind: core.KindNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := env.request(t, tc.method, tc.path, tc.token, tc.body)
			if status != tc.status || payload.Error != tc.kind {
				t.Fatalf("expected %d %s, got %d %s: %s", tc.status, tc.kind, status, payload.Error, payload.Message)
			}
		})
	}
}

func TestUsersPagination(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		status, _ := env.request(t, http.MethodPost, "/users", admin.token, createUserRequest{Name: name})
		if status != http.StatusCreated {
			t.Fatalf("create %s: %d", name, status)
		}
	}

	status, payload := env.request(t, http.MethodGet, "/users?role=standard&page=2&page_size=2", admin.token, nil)
	if status != http.StatusOK {
		t.Fatalf("list users: %d %s", status, payload.Message)
	}
	var page UserPage
	if err := json.Unmarshal(payload.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 3 || page.Page != 2 || len(page.Users) != 1 || page.Users[0].Name != "carol" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Users[0].HasPassword {
		t.Fatal("expected carol without password")
	}

	status, payload = env.request(t, http.MethodGet, "/users?search=AL", admin.token, nil)
	if status != http.StatusOK {
		t.Fatalf("search users: %d", status)
	}
	if err := json.Unmarshal(payload.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || page.Users[0].Name != "alice" {
		t.Fatalf("unexpected search result: %+v", page)
	}

	status, payload = env.request(t, http.MethodGet, "/users?role=standard&page=4611686018427387904&page_size=4", admin.token, nil)
	if status != http.StatusOK {
		t.Fatalf("huge page: %d %s", status, payload.Message)
	}
	page = UserPage{}
	if err := json.Unmarshal(payload.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 3 || len(page.Users) != 0 {
		t.Fatalf("expected an empty page past the end, got %+v", page)
	}
}

func TestPaginateBounds(t *testing.T) {
	users := []user.User{{Name: "alice"}, {Name: "bob"}, {Name: "carol"}}
	for _, tt := range []struct {
		page, size int
		want       []string
	}{
		{1, 2, []string{"alice", "bob"}},
		{2, 2, []string{"carol"}},
		{3, 2, nil},
		{1, 100, []string{"alice", "bob", "carol"}},
		{1 << 62, 4, nil},
		{math.MaxInt, 100, nil},
	} {
		got := paginate(users, tt.page, tt.size)
		var names []string
		for _, u := range got.Users {
			names = append(names, u.Name)
		}
		if !slices.Equal(names, tt.want) {
			t.Errorf("page %d size %d: expected %v, got %v", tt.page, tt.size, tt.want, names)
		}
		if got.Total != 3 {
			t.Errorf("page %d size %d: expected total 3, got %d", tt.page, tt.size, got.Total)
		}
	}
}

func TestResetPasswordForcesNewPassword(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	env.seedUser(t, admin, "alice", "hunter22")

	status, payload := env.request(t, http.MethodPost, "/users/alice/reset-password", admin.token, nil)
	if status != http.StatusOK {
		t.Fatalf("reset: %d %s", status, payload.Message)
	}
	status, payload = env.request(t, http.MethodPost, "/auth/login", "", credentialsRequest{Name: "alice", Password: "hunter22"})
	if status != http.StatusPreconditionRequired || payload.Error != core.KindPasswordNotSet {
		t.Fatalf("expected 428 after reset, got %d %s", status, payload.Error)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	alice := env.seedUser(t, admin, "alice", "hunter22")

	status, payload := env.request(t, http.MethodPost, "/auth/change-password", alice.token, changePasswordRequest{OldPassword: "hunter22", NewPassword: "hunter22"})
	if status != http.StatusBadRequest || payload.Error != core.KindInvalidInput {
		t.Fatalf("expected same password rejected, got %d %s", status, payload.Error)
	}
	status, _ = env.request(t, http.MethodPost, "/auth/change-password", alice.token, changePasswordRequest{OldPassword: "hunter22", NewPassword: "correct horse"})
	if status != http.StatusOK {
		t.Fatalf("change password: %d", status)
	}
	env.login(t, "alice", "correct horse")
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)
	token := admin.token

	if err := admin.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	status, payload := env.request(t, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to fail, got %d %s", status, payload.Message)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	env.seedAdmin(t)
	client := NewClient(env.http.URL)
	session, err := client.Login(context.Background(), "boss", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := client.Refresh(context.Background(), session.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == session.Tokens.RefreshToken {
		t.Fatalf("expected a new pair, got %+v", pair)
	}
	if _, err := client.Refresh(context.Background(), session.Tokens.RefreshToken); err == nil {
		t.Fatal("expected used refresh token to be rejected")
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	env := newTestEnv(t, ServerOptions{LoginLimit: 2, LoginWindow: time.Hour})
	env.seedAdmin(t) // first attempt

	status, _ := env.request(t, http.MethodPost, "/auth/login", "", credentialsRequest{Name: "boss", Password: "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("second attempt: expected 401, got %d", status)
	}
	status, payload := env.request(t, http.MethodPost, "/auth/login", "", credentialsRequest{Name: "boss", Password: "secret"})
	if status != http.StatusTooManyRequests {
		t.Fatalf("third attempt: expected 429, got %d %s", status, payload.Message)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	ctx := context.Background()
	admin := env.seedAdmin(t)
	if _, err := admin.CreateTask(ctx, "Deploy", "Ship"); err != nil {
		t.Fatalf("create: %v", err)
	}
	stats, err := admin.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users.Admins != 1 || stats.Tasks.Pending != 1 || stats.Tasks.Unassigned != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWebsocketReceivesEvents(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	admin := env.seedAdmin(t)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws?token=" + admin.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := admin.CreateTask(context.Background(), "Deploy", "Ship"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event core.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Kind != core.EventTaskCreated || event.Task != "Deploy" || event.Actor != "boss" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestWebsocketRequiresToken(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

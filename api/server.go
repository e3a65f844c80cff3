// Package api serves the coordinator over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
)

const (
	defaultLoginLimit  = 5
	defaultLoginWindow = time.Minute
	shutdownTimeout    = 5 * time.Second
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Coordinator *core.Coordinator
	Issuer      *auth.Issuer
	// Hub receives coordinator events for websocket clients. Optional.
	Hub *Hub
	// LoginLimit is the number of login attempts allowed per client per
	// LoginWindow.
	LoginLimit  int
	LoginWindow time.Duration
	Logger      *log.Logger
}

// Server handles REST requests.
type Server struct {
	coordinator *core.Coordinator
	issuer      *auth.Issuer
	hub         *Hub
	limiter     *RateLimiter
	logger      *log.Logger
}

// NewServer creates a server.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if opts.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "tareas: ", log.LstdFlags)
	}
	limit := opts.LoginLimit
	if limit <= 0 {
		limit = defaultLoginLimit
	}
	window := opts.LoginWindow
	if window <= 0 {
		window = defaultLoginWindow
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		coordinator: opts.Coordinator,
		issuer:      opts.Issuer,
		hub:         hub,
		limiter:     NewRateLimiter(limit, window),
		logger:      logger,
	}, nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Close()
	s.hub.Close()
}

// Handler returns the HTTP handler for the REST API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.requireAuth(s.handleStats))
	mux.HandleFunc("GET /archive", s.requireAuth(s.handleArchive))
	mux.HandleFunc("GET /ws", s.handleWebsocket)

	mux.HandleFunc("POST /auth/bootstrap", s.handleBootstrap)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/set-password", s.handleSetPassword)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/change-password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("POST /auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /users", s.requireAuth(s.handleUsersList))
	mux.HandleFunc("POST /users", s.requireAuth(s.handleUsersCreate))
	mux.HandleFunc("GET /users/{name}", s.requireAuth(s.handleUsersGet))
	mux.HandleFunc("DELETE /users/{name}", s.requireAuth(s.handleUsersDelete))
	mux.HandleFunc("POST /users/{name}/reset-password", s.requireAuth(s.handleUsersResetPassword))
	mux.HandleFunc("GET /users/{name}/tasks", s.requireAuth(s.handleUserTasks))

	mux.HandleFunc("GET /tasks", s.requireAuth(s.handleTasksList))
	mux.HandleFunc("POST /tasks", s.requireAuth(s.handleTasksCreate))
	mux.HandleFunc("GET /tasks/{name}", s.requireAuth(s.handleTasksGet))
	mux.HandleFunc("DELETE /tasks/{name}", s.requireAuth(s.handleTasksDelete))
	mux.HandleFunc("POST /tasks/{name}/assign", s.requireAuth(s.handleTasksAssign))
	mux.HandleFunc("POST /tasks/{name}/unassign", s.requireAuth(s.handleTasksUnassign))
	mux.HandleFunc("POST /tasks/{name}/comments", s.requireAuth(s.handleTasksComment))
	mux.HandleFunc("POST /tasks/{name}/finish", s.requireAuth(s.handleTasksFinish))
	mux.HandleFunc("POST /tasks/{name}/reactivate", s.requireAuth(s.handleTasksReactivate))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeFailure(w, r, http.StatusNotFound, core.KindNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
	return s.recoverHandler(mux)
}

// Serve runs the server on addr until it fails or receives an interrupt.
func (s *Server) Serve(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ErrorLog:          s.logger,
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	listenErrs := make(chan error, 1)
	go func() {
		listenErrs <- server.ListenAndServe()
	}()
	s.logf("listening on %s", addr)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	select {
	case err := <-listenErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logf("server stopped: %v", err)
			return err
		}
		return nil
	case <-interrupts:
		s.logf("interrupt received, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownErr := server.Shutdown(shutdownCtx)
		cancel()
		listenErr := <-listenErrs
		if errors.Is(listenErr, http.ErrServerClosed) {
			listenErr = nil
		}
		return errors.Join(shutdownErr, listenErr)
	}
}

type actorHandler func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// requireAuth resolves the bearer access token before calling next.
func (s *Server) requireAuth(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.accessClaims(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeFailure(w, r, http.StatusUnauthorized, core.KindInvalidCredentials, err.Error())
			return
		}
		next(w, r, claims)
	}
}

func (s *Server) accessClaims(r *http.Request) (*auth.Claims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, fmt.Errorf("missing bearer token")
	}
	return s.issuer.Parse(token, auth.TokenAccess)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseTracker{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logf("panic handling request %s %s: %v\n%s", r.Method, r.URL.Path, recovered, debug.Stack())
				if writer.wroteHeader {
					return
				}
				writeJSON(writer, http.StatusInternalServerError, envelope{Error: core.KindInternal, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(writer, r)
	})
}

// envelope wraps every response body.
type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   core.ErrorKind `json:"error,omitempty"`
	Data    any            `json:"data,omitempty"`
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if decoder.More() {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, status int, kind core.ErrorKind, message string) {
	s.logRequestError(r, status, message)
	writeJSON(w, status, envelope{Error: kind, Message: message})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.writeFailure(w, r, http.StatusBadRequest, core.KindInvalidInput, err.Error())
}

// respond writes a coordinator result. view converts a successful value
// into its wire form and may be nil.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, status int, result core.Result[T], view func(T) any) {
	if !result.OK {
		s.writeFailure(w, r, statusForKind(result.Kind), result.Kind, result.Message)
		return
	}
	var data any = result.Value
	if view != nil {
		data = view(result.Value)
	}
	s.writeSuccess(w, status, result.Message, data)
}

func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindDuplicateName:
		return http.StatusConflict
	case core.KindPermissionDenied:
		return http.StatusForbidden
	case core.KindInvalidCredentials:
		return http.StatusUnauthorized
	case core.KindPasswordNotSet:
		return http.StatusPreconditionRequired
	case core.KindInvalidInput, core.KindAlreadyFinished, core.KindNotFinished, core.KindNotAssigned:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequestError(r *http.Request, status int, message string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf("request %s %s failed (%d): %s", r.Method, r.URL.Path, status, message)
}

func (s *Server) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

type responseTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseTracker) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTracker) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(data)
}

func (w *responseTracker) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets websocket upgrades take over the connection.
func (w *responseTracker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	conn, rw, err := hijacker.Hijack()
	if err == nil {
		w.wroteHeader = true
	}
	return conn, rw, err
}

func (w *responseTracker) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

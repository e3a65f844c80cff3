package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/user"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// UserView is the wire form of a user.
type UserView struct {
	Name        string    `json:"name"`
	Role        user.Role `json:"role"`
	HasPassword bool      `json:"has_password"`
}

// Session is returned by login and refresh.
type Session struct {
	User   UserView  `json:"user"`
	Tokens auth.Pair `json:"tokens"`
}

func viewUser(u user.User) any {
	return userView(u)
}

func userView(u user.User) UserView {
	return UserView{Name: u.Name, Role: u.Role, HasPassword: u.HasPassword()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, "ok", healthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	s.writeSuccess(w, http.StatusOK, "", s.coordinator.Stats())
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.ArchivedTasks(), nil)
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusCreated, s.coordinator.BootstrapAdmin(req.Name, req.Password), viewUser)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		w.Header().Set("Retry-After", "60")
		s.writeFailure(w, r, http.StatusTooManyRequests, core.KindPermissionDenied, "too many login attempts, try again later")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	result := s.coordinator.Authenticate(req.Name, req.Password)
	if !result.OK {
		// Unknown names and wrong passwords look the same to clients.
		kind := result.Kind
		if kind == core.KindNotFound {
			kind = core.KindInvalidCredentials
		}
		message := result.Message
		if kind == core.KindInvalidCredentials {
			message = "incorrect name or password"
		}
		s.writeFailure(w, r, statusForKind(kind), kind, message)
		return
	}
	s.issueSession(w, r, result.Value, result.Message)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, u user.User, message string) {
	pair, err := s.issuer.Issue(u.Name, u.Role)
	if err != nil {
		s.writeFailure(w, r, http.StatusInternalServerError, core.KindInternal, err.Error())
		return
	}
	s.writeSuccess(w, http.StatusOK, message, Session{User: userView(u), Tokens: pair})
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusOK, s.coordinator.SetInitialPassword(req.Name, req.Password), viewUser)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusOK, s.coordinator.ChangePassword(claims.Subject, req.OldPassword, req.NewPassword), viewUser)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	claims, err := s.issuer.Parse(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		s.writeFailure(w, r, http.StatusUnauthorized, core.KindInvalidCredentials, err.Error())
		return
	}
	// The account may have been deleted or changed role since login.
	result := s.coordinator.FindUser(claims.Subject, claims.Subject)
	if !result.OK {
		s.writeFailure(w, r, http.StatusUnauthorized, core.KindInvalidCredentials, result.Message)
		return
	}
	s.issuer.Revoke(claims)
	s.issueSession(w, r, result.Value, "tokens refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeBadRequest(w, r, err)
		return
	}
	s.issuer.Revoke(claims)
	if req.RefreshToken != "" {
		if refresh, err := s.issuer.Parse(req.RefreshToken, auth.TokenRefresh); err == nil && refresh.Subject == claims.Subject {
			s.issuer.Revoke(refresh)
		}
	}
	s.writeSuccess(w, http.StatusOK, "logged out", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.FindUser(claims.Subject, claims.Subject), viewUser)
}

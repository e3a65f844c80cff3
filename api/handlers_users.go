package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/user"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type createUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users    []UserView `json:"users"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	query := r.URL.Query()
	var filter core.UserFilter
	if raw := query.Get("role"); raw != "" {
		role, err := user.ParseRole(raw)
		if err != nil {
			s.writeBadRequest(w, r, err)
			return
		}
		filter.Role = role
	}
	filter.Search = query.Get("search")

	page, err := positiveInt(query.Get("page"), 1)
	if err != nil {
		s.writeBadRequest(w, r, fmt.Errorf("page: %w", err))
		return
	}
	size, err := positiveInt(query.Get("page_size"), defaultPageSize)
	if err != nil {
		s.writeBadRequest(w, r, fmt.Errorf("page_size: %w", err))
		return
	}
	size = min(size, maxPageSize)

	respond(s, w, r, http.StatusOK, s.coordinator.ListUsers(claims.Subject, filter), func(users []user.User) any {
		return paginate(users, page, size)
	})
}

func paginate(users []user.User, page, size int) UserPage {
	result := UserPage{Users: []UserView{}, Total: len(users), Page: page, PageSize: size}
	// Compare page numbers rather than offsets; page*size can overflow.
	if len(users) == 0 || page-1 > (len(users)-1)/size {
		return result
	}
	start := (page - 1) * size
	end := start + min(size, len(users)-start)
	for _, u := range users[start:end] {
		result.Users = append(result.Users, userView(u))
	}
	return result
}

func positiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return value, nil
}

func (s *Server) handleUsersCreate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	role := user.RoleStandard
	if req.Role != "" {
		parsed, err := user.ParseRole(req.Role)
		if err != nil {
			s.writeBadRequest(w, r, err)
			return
		}
		role = parsed
	}
	respond(s, w, r, http.StatusCreated, s.coordinator.CreateUser(claims.Subject, req.Name, role), viewUser)
}

func (s *Server) handleUsersGet(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.FindUser(claims.Subject, r.PathValue("name")), viewUser)
}

func (s *Server) handleUsersDelete(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.DeleteUser(claims.Subject, r.PathValue("name")), viewUser)
}

func (s *Server) handleUsersResetPassword(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.ResetPassword(claims.Subject, r.PathValue("name")), viewUser)
}

func (s *Server) handleUserTasks(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	includeFinished, err := optionalBool(r.URL.Query().Get("include_finished"))
	if err != nil {
		s.writeBadRequest(w, r, fmt.Errorf("include_finished: %w", err))
		return
	}
	respond(s, w, r, http.StatusOK, s.coordinator.TasksForUser(claims.Subject, r.PathValue("name"), includeFinished), nil)
}

func optionalBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

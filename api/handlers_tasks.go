package api

import (
	"net/http"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/task"
)

type createTaskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type assignRequest struct {
	User string `json:"user"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTasksList(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	query := r.URL.Query()
	filter := core.TaskFilter{User: query.Get("user")}
	if raw := query.Get("status"); raw != "" {
		status, err := task.ParseStatus(raw)
		if err != nil {
			s.writeBadRequest(w, r, err)
			return
		}
		filter.Status = status
	}
	respond(s, w, r, http.StatusOK, s.coordinator.ListTasks(claims.Subject, filter), nil)
}

func (s *Server) handleTasksCreate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusCreated, s.coordinator.CreateTask(claims.Subject, req.Name, req.Description), nil)
}

func (s *Server) handleTasksGet(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.FindTask(claims.Subject, r.PathValue("name")), nil)
}

func (s *Server) handleTasksDelete(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.DeleteTask(claims.Subject, r.PathValue("name")), nil)
}

func (s *Server) handleTasksAssign(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusOK, s.coordinator.AssignTask(claims.Subject, r.PathValue("name"), req.User), nil)
}

func (s *Server) handleTasksUnassign(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusOK, s.coordinator.UnassignTask(claims.Subject, r.PathValue("name"), req.User), nil)
}

func (s *Server) handleTasksComment(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	respond(s, w, r, http.StatusCreated, s.coordinator.AddComment(claims.Subject, r.PathValue("name"), req.Text), nil)
}

func (s *Server) handleTasksFinish(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.FinishTask(claims.Subject, r.PathValue("name")), nil)
}

func (s *Server) handleTasksReactivate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	respond(s, w, r, http.StatusOK, s.coordinator.ReactivateTask(claims.Subject, r.PathValue("name")), nil)
}

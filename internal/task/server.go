package task

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/m41k1204/taskflow/internal/eventbus"
	"github.com/m41k1204/taskflow/pkg/cerr"
)

type action string

const (
	actionAdd    action = "add"
	actionRemove action = "remove"
)

func parseAction(s string) (action, error) {
	switch a := action(strings.ToLower(s)); a {
	case actionAdd, actionRemove:
		return a, nil
	default:
		return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid action: %q", s), nil)
	}
}

type Server struct {
	repo     Repository
	users    UserDirectory
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, users UserDirectory, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		users:    users,
		eventBus: eventBus,
	}
}

// Routes mounts the task endpoints on r. The responses are written by the
// cerr response middleware.
func (s *Server) Routes(r chi.Router) {
	r.Post("/tasks", s.handleCreate)
	r.Get("/tasks", s.handleList)
	r.Get("/tasks/{taskID}", s.handleGet)
	r.Post("/tasks/{taskID}/state", s.handleUpdateState)
	r.Post("/tasks/{taskID}/users", s.handleAssignments)
	r.Post("/tasks/{taskID}/dependencies", s.handleDependencies)
}

type createRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	UserEmail   *string `json:"user_email"`
	Role        *string `json:"role"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"name", req.Name},
		{"description", req.Description},
		{"user_email", req.UserEmail},
		{"role", req.Role},
	} {
		if f.value == nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("missing required field %q", f.name), nil)
			return
		}
	}

	u, err := s.users.FindUserByEmail(ctx, *req.UserEmail)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	assignment, err := NewAssignment(u.Email, *req.Role)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t := New(*req.Name, *req.Description)
	if err := t.AddAssignment(assignment); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.AddTask(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.TypeTaskCreated, t.ID, map[string]string{"assignee": u.Email})

	cerr.SetJSONCreated(ctx, t)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cerr.SetJSONResponse(ctx, s.repo.ListTasks(ctx))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.repo.FindTaskByID(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type updateStateRequest struct {
	State *string `json:"state"`
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")

	if _, err := s.repo.FindTaskByID(ctx, taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.State == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, `missing required field "state"`, nil)
		return
	}
	state, err := ParseState(*req.State)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.repo.UpdateTask(ctx, taskID, func(t *Task) error {
		return t.SetState(state)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.TypeTaskStateChanged, t.ID, map[string]string{"state": string(t.State)})

	cerr.SetJSONResponse(ctx, t)
}

type assignmentRequest struct {
	UserEmail *string `json:"user_email"`
	Role      *string `json:"role"`
	Action    *string `json:"action"`
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")

	if _, err := s.repo.FindTaskByID(ctx, taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.UserEmail == nil || req.Action == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "missing required fields", nil)
		return
	}
	act, err := parseAction(*req.Action)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	u, err := s.users.FindUserByEmail(ctx, *req.UserEmail)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var eventType eventbus.Type
	t, err := s.repo.UpdateTask(ctx, taskID, func(t *Task) error {
		if act == actionAdd {
			role := ""
			if req.Role != nil {
				role = *req.Role
			}
			assignment, err := NewAssignment(u.Email, role)
			if err != nil {
				return err
			}
			eventType = eventbus.TypeTaskAssignmentAdded
			return t.AddAssignment(assignment)
		}
		eventType = eventbus.TypeTaskAssignmentRemoved
		return t.RemoveAssignment(u.Email)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventType, t.ID, map[string]string{"user": u.Email})

	cerr.SetJSONResponse(ctx, t)
}

type dependencyRequest struct {
	DependencyTaskID *string `json:"dependency_task_id"`
	Action           *string `json:"action"`
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")

	if _, err := s.repo.FindTaskByID(ctx, taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req dependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.DependencyTaskID == nil || req.Action == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "missing required fields", nil)
		return
	}
	act, err := parseAction(*req.Action)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// The dependency is kept as a plain id; this existence check is the only
	// referential-integrity enforcement.
	if _, err := s.repo.FindTaskByID(ctx, *req.DependencyTaskID); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			err = cerr.NewError(cerr.NotFound, "dependency task not found", nil)
		}
		cerr.SetJSONError(ctx, err)
		return
	}

	var eventType eventbus.Type
	t, err := s.repo.UpdateTask(ctx, taskID, func(t *Task) error {
		if act == actionAdd {
			eventType = eventbus.TypeTaskDependencyAdded
			return t.AddDependency(*req.DependencyTaskID)
		}
		eventType = eventbus.TypeTaskDependencyRemoved
		return t.RemoveDependency(*req.DependencyTaskID)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventType, t.ID, map[string]string{"dependency": *req.DependencyTaskID})

	cerr.SetJSONResponse(ctx, t)
}

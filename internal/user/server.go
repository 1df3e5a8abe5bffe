package user

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/m41k1204/taskflow/internal/eventbus"
	"github.com/m41k1204/taskflow/pkg/cerr"
)

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		eventBus: eventBus,
	}
}

// Routes mounts the user endpoints on r. The responses are written by the
// cerr response middleware.
func (s *Server) Routes(r chi.Router) {
	r.Post("/users", s.handleCreate)
	r.Get("/users", s.handleList)
	r.Get("/users/{alias}", s.handleFindByAlias)
}

type createRequest struct {
	ID    *string `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	for field, v := range map[string]*string{"id": req.ID, "name": req.Name, "email": req.Email} {
		if v == nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("missing required field %q", field), nil)
			return
		}
	}

	u := New(*req.ID, *req.Name, *req.Email)
	if err := s.repo.AddUser(ctx, u); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.TypeUserCreated, u.ID, map[string]string{"email": u.Email})

	cerr.SetJSONCreated(ctx, u)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cerr.SetJSONResponse(ctx, s.repo.ListUsers(ctx))
}

func (s *Server) handleFindByAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := s.repo.FindUserByEmail(ctx, chi.URLParam(r, "alias"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, u)
}

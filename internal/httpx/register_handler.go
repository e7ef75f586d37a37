package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserAdmin interface {
	List(ctx context.Context) ([]upstream.Account, error)
	Register(ctx context.Context, r upstream.Registration) (string, error)
}

type registerHandler struct {
	users UserAdmin
	log   *zap.Logger
}

func (h *registerHandler) register(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/users", h.createUser)
}

func (h *registerHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, h.log, apperr.Upstream("Failed to fetch users", err))
		return
	}
	if users == nil {
		users = []upstream.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *registerHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req upstream.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Name == "" || req.Role == "" || req.Password == "" {
		writeError(w, h.log, apperr.Validation("Name, role and password are required"))
		return
	}
	msg, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, passThrough(err, "Registration failed"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": msg})
}

// passThrough keeps an upstream 4xx (with its message) as the client's status;
// anything else becomes a 502.
func passThrough(err error, def string) error {
	var se *upstream.StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		return apperr.New(se.Status, upstream.ServerMessage(err, def), err)
	}
	return apperr.Upstream(upstream.ServerMessage(err, def), err)
}

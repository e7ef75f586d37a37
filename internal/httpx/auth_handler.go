package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/auth"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type loginReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authHandler struct {
	auth     *auth.Authenticator
	notices  *notify.Queue
	loginURL string
	forget   func(sessionID string) // drops per-session viewer state
	log      *zap.Logger
}

func (h *authHandler) register(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
	r.Get("/notices", h.drainNotices)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, h.log, apperr.Validation("Name and password are required"))
		return
	}
	landing, err := h.auth.Login(r.Context(), sessionOf(r), req.Name, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"redirect": landing,
		"user":     auth.IdentityOf(sessionOf(r)),
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	s := sessionOf(r)
	err := h.auth.Logout(r.Context(), s)
	h.forget(s.ID)
	session.ExpireCookie(w)
	if err != nil && !errors.Is(err, apperr.ErrUpstream) {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": h.loginURL})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.IdentityOf(sessionOf(r)))
}

func (h *authHandler) drainNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notices": h.notices.Drain(sessionOf(r).ID)})
}

package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/history"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type historyHandler struct {
	history *history.Service
	log     *zap.Logger
}

func (h *historyHandler) register(r chi.Router) {
	r.Get("/history", h.page)
	r.Get("/history/next", h.next)
	r.Get("/history/prev", h.prev)
	r.Get("/history/state", h.state)
	r.Post("/history/search", h.search)
	r.Post("/history/clear", h.clear)
	r.Get("/history/suggestions", h.suggestions)
	r.Post("/history/suggestions/select", h.selectSuggestion)
	r.Get("/history/export", h.export)
}

func (h *historyHandler) viewer(r *http.Request) *history.Viewer {
	return h.history.Viewer(sessionOf(r).ID)
}

// writeState answers with the viewer state; on failure the error rides along.
func (h *historyHandler) writeState(w http.ResponseWriter, st history.State, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, st)
		return
	}
	code, msg := apperr.Status(err)
	if code >= 500 {
		h.log.Error("history request failed", zap.Error(err))
	}
	writeJSON(w, code, map[string]any{"error": msg, "state": st})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("%s must be a number", name))
	}
	return n, nil
}

func (h *historyHandler) page(w http.ResponseWriter, r *http.Request) {
	v := h.viewer(r)
	n, err := intParam(r, "page", v.State().Page)
	if err != nil {
		h.writeState(w, v.State(), err)
		return
	}
	st, err := v.GoTo(r.Context(), n)
	h.writeState(w, st, err)
}

func (h *historyHandler) next(w http.ResponseWriter, r *http.Request) {
	st, err := h.viewer(r).Next(r.Context())
	h.writeState(w, st, err)
}

func (h *historyHandler) prev(w http.ResponseWriter, r *http.Request) {
	st, err := h.viewer(r).Prev(r.Context())
	h.writeState(w, st, err)
}

func (h *historyHandler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.viewer(r).State())
}

func (h *historyHandler) search(w http.ResponseWriter, r *http.Request) {
	var q history.Query
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, h.log, err)
		return
	}
	st, err := h.viewer(r).Search(r.Context(), q)
	h.writeState(w, st, err)
}

func (h *historyHandler) clear(w http.ResponseWriter, r *http.Request) {
	st, err := h.viewer(r).Clear(r.Context())
	h.writeState(w, st, err)
}

func (h *historyHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	out, err := h.viewer(r).Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func (h *historyHandler) selectSuggestion(w http.ResponseWriter, r *http.Request) {
	var s history.Suggestion
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, h.viewer(r).SelectSuggestion(s))
}

func (h *historyHandler) export(w http.ResponseWriter, r *http.Request) {
	scope := history.Scope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = history.ScopePage
	}
	start, err1 := intParam(r, "start", 0)
	end, err2 := intParam(r, "end", 0)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, h.log, err)
		return
	}
	f, err := h.viewer(r).Export(r.Context(), scope, start, end)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

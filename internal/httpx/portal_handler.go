package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/cart"
	"github.com/ariefcatur/go-waste-portal.git/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type quantityReq struct {
	Quantity *float64 `json:"quantity"`
}

type stepReq struct {
	Delta float64 `json:"delta"`
}

type portalHandler struct {
	catalog *catalog.Browser
	carts   *cart.Service
	log     *zap.Logger
}

func (h *portalHandler) register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/cart", h.getCart)
	r.Put("/cart/items/{id}", h.setQuantity)
	r.Post("/cart/items/{id}/step", h.step)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Patch("/cart/lines/{id}", h.updateLine)
	r.Post("/cart/submit", h.submit)
	r.Get("/cart/saved", h.saved)
}

func (h *portalHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Products(r.Context(), sessionOf(r).ID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *portalHandler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Load(r.Context(), sessionOf(r).ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.ViewOf(c))
}

func readQuantity(r *http.Request) (float64, error) {
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		return 0, err
	}
	if req.Quantity == nil {
		return 0, apperr.Validation("quantity is required")
	}
	return *req.Quantity, nil
}

func (h *portalHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	qty, err := readQuantity(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	v, err := h.catalog.SetQuantity(r.Context(), sessionOf(r).ID, chi.URLParam(r, "id"), qty)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *portalHandler) step(w http.ResponseWriter, r *http.Request) {
	var req stepReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	v, err := h.catalog.Step(r.Context(), sessionOf(r).ID, chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *portalHandler) updateLine(w http.ResponseWriter, r *http.Request) {
	qty, err := readQuantity(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	c, _, err := h.carts.UpdateLine(r.Context(), sessionOf(r).ID, chi.URLParam(r, "id"), qty)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.ViewOf(c))
}

func (h *portalHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Remove(r.Context(), sessionOf(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.ViewOf(c))
}

func (h *portalHandler) submit(w http.ResponseWriter, r *http.Request) {
	s := sessionOf(r)
	if err := h.carts.Submit(r.Context(), s.ID, s.UserID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/portal"})
}

func (h *portalHandler) saved(w http.ResponseWriter, r *http.Request) {
	sum, err := h.carts.Saved(r.Context(), sessionOf(r).UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

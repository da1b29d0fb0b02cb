package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	view, err := h.Tracking.View(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) searchTracking(w http.ResponseWriter, r *http.Request) {
	res, err := h.Tracking.Search(r.Context(), chi.URLParam(r, "query"), r.URL.Query().Get("phone"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

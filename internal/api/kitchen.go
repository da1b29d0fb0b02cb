package api

import (
	"net/http"

	"dinepos/m/internal/kds"
)

// kitchenOrders returns the board as cards, oldest first.
func (h *Handler) kitchenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.Kitchen(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, kds.BuildCards(orders, h.Now(), h.UrgentAfter))
}

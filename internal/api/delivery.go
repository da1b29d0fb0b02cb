package api

import (
	"net/http"

	"dinepos/m/domain"
	"dinepos/m/internal/wire"
)

func (h *Handler) activeRiders(w http.ResponseWriter, r *http.Request) {
	areaID, err := optionalID(r, "area_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	riders, err := h.Delivery.Riders(r.Context(), areaID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, riders)
}

func (h *Handler) createRider(w http.ResponseWriter, r *http.Request) {
	var rider domain.Rider
	if err := decodeJSON(r, &rider); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.Delivery.CreateRider(r.Context(), rider)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) assignRider(w http.ResponseWriter, r *http.Request) {
	var req wire.AssignRiderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.OrderID == 0 || req.RiderID == 0 {
		respondError(w, http.StatusBadRequest, "order_id and rider_id are required")
		return
	}
	o, err := h.Delivery.AssignRider(r.Context(), req.OrderID, req.RiderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) listAreas(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") != "false"
	areas, err := h.Delivery.Areas(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, areas)
}

func (h *Handler) createArea(w http.ResponseWriter, r *http.Request) {
	area := domain.DeliveryArea{Active: true}
	if err := decodeJSON(r, &area); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.Delivery.CreateArea(r.Context(), area)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) calcDeliveryCharge(w http.ResponseWriter, r *http.Request) {
	var req wire.DeliveryChargeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	quote, err := h.Delivery.Calculate(r.Context(), req.AreaID, req.Subtotal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

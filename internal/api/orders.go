package api

import (
	"net/http"
	"strconv"

	"dinepos/m/domain"
	"dinepos/m/internal/order"
	"dinepos/m/internal/receipt"
	"dinepos/m/internal/wire"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	in := order.CreateInput{
		CashierID:           userID(r),
		OrderType:           req.OrderType,
		Status:              req.Status,
		PaymentType:         req.PaymentType,
		Discount:            req.Discount,
		Subtotal:            req.Subtotal,
		Total:               req.Total,
		CashReceived:        req.CashReceived,
		SpecialInstructions: req.SpecialInstructions,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, order.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if req.Delivery != nil {
		in.Delivery = &order.DeliveryInput{
			AreaID:        req.Delivery.AreaID,
			CustomerName:  req.Delivery.CustomerName,
			CustomerPhone: req.Delivery.CustomerPhone,
			Address:       req.Delivery.Address,
		}
	}

	o, err := h.Orders.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{}
	if raw := q.Get("status"); raw != "" {
		st, err := domain.ParseOrderStatus(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.Status = st
	}
	sessionID, err := optionalID(r, "session_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.SessionID = sessionID
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = limit
	}

	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.Orders.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// applyStatus routes a requested status to the operation that owns it, so
// cancellation and delivery keep their extra checks.
func (h *Handler) applyStatus(r *http.Request, id int64, to domain.OrderStatus) (domain.Order, error) {
	actor := userID(r)
	switch to {
	case domain.StatusCancelled:
		return h.Orders.Cancel(r.Context(), id, &actor)
	case domain.StatusReplacement:
		return h.Orders.MarkReplacement(r.Context(), id, &actor)
	case domain.StatusDelivered:
		return h.Orders.MarkDelivered(r.Context(), id, &actor)
	case "":
		return domain.Order{}, domain.Invalid("status is required")
	}
	return h.Orders.Transition(r.Context(), id, to, &actor)
}

func (h *Handler) statusChange(w http.ResponseWriter, r *http.Request, kitchenOnly bool) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req wire.StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if kitchenOnly {
		switch req.Status {
		case domain.StatusConfirmed, domain.StatusCooking, domain.StatusReady, domain.StatusCompleted, domain.StatusDispatched:
		default:
			respondError(w, http.StatusForbidden, "kitchen staff can only move orders forward")
			return
		}
	}
	o, err := h.applyStatus(r, id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// updateOrderStatus is the kitchen's route. Kitchen staff may only take the
// forward actions of the board; cashiers and managers may do anything.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.statusChange(w, r, role(r) == domain.RoleKitchen)
}

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.statusChange(w, r, false)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req wire.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.MarkPaid(r.Context(), id, req.Method)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actor := userID(r)
	o, err := h.Orders.MarkDelivered(r.Context(), id, &actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) markCODReceived(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.MarkCODReceived(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) receiptFor(r *http.Request) (receipt.Receipt, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return receipt.Receipt{}, err
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		return receipt.Receipt{}, err
	}
	rc := receipt.Receipt{Header: h.ReceiptHeader, Order: o}
	if o.TrackingToken != "" {
		rc.TrackingURL = h.Tracking.URL(o.TrackingToken)
	}
	return rc, nil
}

func (h *Handler) orderReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.receiptFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rc.Text()))
}

func (h *Handler) orderReceiptQR(w http.ResponseWriter, r *http.Request) {
	rc, err := h.receiptFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	size := receipt.QRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}
	png, err := receipt.QRCode(rc.TrackingURL, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"dinepos/m/domain"
	"dinepos/m/internal/delivery"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/order"
	"dinepos/m/internal/shift"
	"dinepos/m/internal/tracking"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB            *sqlx.DB
	Secret        string
	Orders        *order.Service
	Shifts        *shift.Service
	Delivery      *delivery.Service
	Tracking      *tracking.Service
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
	CORSOrigins   []string
	UrgentAfter   time.Duration
	ReceiptHeader string
	Now           func() time.Time
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	Deps
}

// New constructs a Handler.
func New(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	d.Logger = logging.Component(d.Logger, "api")
	return &Handler{Deps: d}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(h.Logger))
	r.Use(h.Metrics.Instrument)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.With(h.requireRole(domain.RoleManager)).Post("/register", h.register)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	// Public tracking for customers.
	r.Get("/track/order/{query}", h.searchTracking)
	r.Get("/track/{token}", h.track)

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Get("/products", h.listProducts)
		pr.Get("/categories", h.listCategories)
		pr.With(h.requireRole(domain.RoleManager)).Post("/products", h.createProduct)

		pr.Get("/kds/orders", h.kitchenOrders)

		pr.Route("/orders", func(r chi.Router) {
			// Kitchen screens advance orders through this one route.
			r.Put("/{id}", h.updateOrderStatus)

			r.Group(func(r chi.Router) {
				r.Use(h.requireRole(domain.RoleManager, domain.RoleCashier))
				r.Post("/", h.createOrder)
				r.Get("/", h.listOrders)
				r.Get("/{id}", h.getOrder)
				r.Get("/{id}/history", h.orderHistory)
				r.Get("/{id}/receipt", h.orderReceipt)
				r.Get("/{id}/receipt/qr.png", h.orderReceiptQR)
				r.Put("/{id}/order-status", h.setOrderStatus)
				r.Put("/{id}/payment-status", h.markPaid)
				r.Put("/{id}/mark-delivered", h.markDelivered)
				r.Put("/{id}/mark-cod-received", h.markCODReceived)
			})
		})

		pr.Group(func(r chi.Router) {
			r.Use(h.requireRole(domain.RoleManager, domain.RoleCashier))

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/current", h.currentSession)
				r.Post("/open", h.openSession)
				r.Get("/{id}", h.getSession)
				r.Get("/{id}/totals", h.sessionTotals)
				r.Get("/{id}/orders", h.sessionOrders)
				r.Get("/{id}/report.xlsx", h.sessionReport)
				r.Post("/{id}/close", h.closeSession)
			})

			r.Get("/expenses", h.listExpenses)
			r.Post("/expenses", h.addExpense)

			r.Get("/riders/active", h.activeRiders)
			r.With(h.requireRole(domain.RoleManager)).Post("/riders", h.createRider)
			r.Post("/assign-rider", h.assignRider)

			r.Get("/delivery-areas", h.listAreas)
			r.With(h.requireRole(domain.RoleManager)).Post("/delivery-areas", h.createArea)
			r.Post("/calc-delivery-charges", h.calcDeliveryCharge)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidEnum),
		errors.Is(err, domain.ErrRiderRequired),
		errors.Is(err, tracking.ErrMalformedToken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSessionAlreadyOpen),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Unexpected errors are logged and hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).
			Str(logging.FieldRequestID, middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
}

// Helpers
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid %s", name)
	}
	return id, nil
}

func optionalID(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.Invalid("invalid %s", key)
	}
	return &id, nil
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return domain.Invalid("invalid request body: %v", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

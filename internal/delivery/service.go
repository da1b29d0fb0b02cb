// Package delivery prices deliveries and manages riders and their assignment.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/repository"
)

type Service struct {
	db      *sqlx.DB
	engine  *Engine
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(db *sqlx.DB, engine *Engine, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		db:      db,
		engine:  engine,
		metrics: m,
		logger:  logging.Component(logger, "delivery"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Areas(ctx context.Context, activeOnly bool) ([]domain.DeliveryArea, error) {
	return repository.NewAreas(s.db).List(ctx, activeOnly)
}

func (s *Service) CreateArea(ctx context.Context, a domain.DeliveryArea) (domain.DeliveryArea, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return a, domain.Invalid("area name is required")
	}
	if a.DistanceKm.IsNegative() {
		return a, domain.Invalid("distance cannot be negative")
	}
	err := repository.NewAreas(s.db).Insert(ctx, &a)
	return a, err
}

// Calculate quotes the delivery charge for an area. It has no side effects.
func (s *Service) Calculate(ctx context.Context, areaID int64, subtotal decimal.Decimal) (domain.DeliveryCharge, error) {
	if subtotal.IsNegative() {
		return domain.DeliveryCharge{}, domain.Invalid("subtotal cannot be negative")
	}
	area, err := repository.NewAreas(s.db).Get(ctx, areaID)
	if err != nil {
		return domain.DeliveryCharge{}, err
	}
	if !area.Active {
		return domain.DeliveryCharge{}, domain.Invalid("delivery area %s is inactive", area.Name)
	}
	return s.engine.Quote(area, subtotal), nil
}

// Riders lists active riders ranked for dispatch. With an area the options
// carry a payout estimate for that distance.
func (s *Service) Riders(ctx context.Context, areaID *int64) ([]domain.RiderOption, error) {
	var distance *decimal.Decimal
	if areaID != nil {
		area, err := repository.NewAreas(s.db).Get(ctx, *areaID)
		if err != nil {
			return nil, err
		}
		distance = &area.DistanceKm
	}
	riders, err := repository.NewRiders(s.db).List(ctx, true)
	if err != nil {
		return nil, err
	}
	return domain.RankRiders(riders, distance), nil
}

func (s *Service) CreateRider(ctx context.Context, r domain.Rider) (domain.Rider, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return r, domain.Invalid("rider name is required")
	}
	if r.PayoutType == "" {
		r.PayoutType = domain.PayoutPerKm
	}
	if r.PerDeliveryRate.IsNegative() || r.PerKmRate.IsNegative() || r.BaseRate.IsNegative() {
		return r, domain.Invalid("rates cannot be negative")
	}
	r.Active = true
	err := repository.NewRiders(s.db).Insert(ctx, &r)
	return r, err
}

// AssignRider attaches a rider to a delivery order that has not left the
// kitchen yet. Reassigning replaces the previous rider.
func (s *Service) AssignRider(ctx context.Context, orderID, riderID int64) (domain.Order, error) {
	var o domain.Order
	err := repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		orders := repository.NewOrders(tx)
		var err error
		o, err = orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsDelivery() {
			return domain.Invalid("order %s is not a delivery order", o.OrderNumber)
		}
		if !o.Status.Active() {
			return fmt.Errorf("%w: cannot assign a rider to a %s order", domain.ErrInvalidTransition, o.Status)
		}
		rider, err := repository.NewRiders(tx).Get(ctx, riderID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("rider %d does not exist", riderID)
		}
		if err != nil {
			return err
		}
		if !rider.Active {
			return domain.Invalid("rider %s is not active", rider.Name)
		}
		if err := orders.AssignRider(ctx, orderID, riderID, o.Status, s.now()); err != nil {
			return err
		}
		o, err = orders.Get(ctx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.metrics.RiderAssignments.Inc()
	s.logger.Info().
		Int64(logging.FieldOrderID, orderID).
		Int64(logging.FieldRiderID, riderID).
		Msg("rider assigned")
	return o, nil
}

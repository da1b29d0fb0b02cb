package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dinepos/m/domain"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/notify"
	"dinepos/m/internal/repository"
)

func (s *Service) Get(ctx context.Context, id int64) (domain.Order, error) {
	return repository.NewOrders(s.db).Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id int64) ([]domain.StatusChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return repository.NewOrders(s.db).History(ctx, id)
}

type ListFilter struct {
	Status    domain.OrderStatus
	SessionID *int64
	Limit     int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	rf := repository.OrderFilter{SessionID: f.SessionID, Limit: f.Limit}
	if f.Status != "" {
		rf.Statuses = []domain.OrderStatus{f.Status}
	}
	if rf.Limit <= 0 || rf.Limit > 500 {
		rf.Limit = 50
	}
	return repository.NewOrders(s.db).List(ctx, rf)
}

// Kitchen returns the orders still in the kitchen, oldest first.
func (s *Service) Kitchen(ctx context.Context) ([]domain.Order, error) {
	return repository.NewOrders(s.db).List(ctx, repository.OrderFilter{
		Statuses:  []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed, domain.StatusCooking, domain.StatusReady},
		Ascending: true,
	})
}

// Transition moves an order to a new status. The update only applies if the
// order is still in the status it was read in; a concurrent change yields
// ErrConflict.
func (s *Service) Transition(ctx context.Context, id int64, to domain.OrderStatus, actor *int64) (domain.Order, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := domain.CheckTransition(current, to); err != nil {
		s.rejected(err)
		return domain.Order{}, err
	}

	now := s.now()
	change := domain.StatusChange{OrderID: id, From: current.Status, To: to, ChangedBy: actor, ChangedAt: now}
	err = repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		orders := repository.NewOrders(tx)
		if err := orders.UpdateStatus(ctx, id, current.Status, to, now); err != nil {
			return err
		}
		return orders.LogStatus(ctx, &change)
	})
	if err != nil {
		s.rejected(err)
		return domain.Order{}, err
	}

	s.metrics.StatusChanges.WithLabelValues(string(to)).Inc()
	s.logger.Info().
		Int64(logging.FieldOrderID, id).
		Str("from", string(current.Status)).
		Str(logging.FieldStatus, string(to)).
		Msg("order status changed")

	evt := notify.StatusEvent{
		OrderID:     id,
		OrderNumber: current.OrderNumber,
		OrderType:   current.OrderType,
		From:        current.Status,
		To:          to,
		ChangedBy:   actor,
		ChangedAt:   now,
	}
	if err := s.publisher.PublishStatus(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Int64(logging.FieldOrderID, id).Msg("status event not published")
	}
	return s.Get(ctx, id)
}

func (s *Service) rejected(err error) {
	reason := "other"
	switch {
	case errors.Is(err, domain.ErrConflict):
		reason = "conflict"
	case errors.Is(err, domain.ErrRiderRequired):
		reason = "rider_required"
	case errors.Is(err, domain.ErrInvalidTransition):
		reason = "invalid_transition"
	case errors.Is(err, domain.ErrInvalidEnum):
		reason = "invalid_status"
	}
	s.metrics.TransitionFailed.WithLabelValues(reason).Inc()
}

// Advance applies the single forward kitchen action for the order.
func (s *Service) Advance(ctx context.Context, id int64, actor *int64) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	action, ok := domain.NextKitchenAction(o)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s has left the kitchen", domain.ErrInvalidTransition, o.OrderNumber)
	}
	return s.Transition(ctx, id, action.To, actor)
}

// Cancel is only possible while the order is still in the kitchen.
func (s *Service) Cancel(ctx context.Context, id int64, actor *int64) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.Active() {
		return domain.Order{}, fmt.Errorf("%w: cannot cancel a %s order", domain.ErrInvalidTransition, o.Status)
	}
	return s.Transition(ctx, id, domain.StatusCancelled, actor)
}

func (s *Service) MarkReplacement(ctx context.Context, id int64, actor *int64) (domain.Order, error) {
	return s.Transition(ctx, id, domain.StatusReplacement, actor)
}

func (s *Service) MarkDelivered(ctx context.Context, id int64, actor *int64) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.IsDelivery() {
		return domain.Order{}, fmt.Errorf("%w: only delivery orders can be marked delivered", domain.ErrInvalidTransition)
	}
	return s.Transition(ctx, id, domain.StatusDelivered, actor)
}

// MarkPaid settles an unpaid cash-on-delivery order. Cash keeps the COD
// payment type and records it as received; online switches the payment type.
func (s *Service) MarkPaid(ctx context.Context, id int64, method domain.PaymentType) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status == domain.StatusCancelled {
		return domain.Order{}, fmt.Errorf("%w: order is cancelled", domain.ErrInvalidTransition)
	}
	if o.PaymentType != domain.PaymentCOD ||
		(o.PaymentStatus != domain.PaymentCODPending && o.PaymentStatus != domain.PaymentUnpaid) {
		return domain.Order{}, fmt.Errorf("%w: order %s is not awaiting payment", domain.ErrInvalidTransition, o.OrderNumber)
	}

	var (
		pt domain.PaymentType
		ps domain.PaymentStatus
	)
	switch method {
	case domain.PaymentCash:
		pt, ps = domain.PaymentCOD, domain.PaymentCODReceived
	case domain.PaymentOnline:
		pt, ps = domain.PaymentOnline, domain.PaymentPaid
	case domain.PaymentCOD:
		return domain.Order{}, domain.Invalid("payment method must be cash or online")
	default:
		return domain.Order{}, domain.Invalid("payment method must be cash or online")
	}
	if err := repository.NewOrders(s.db).UpdatePayment(ctx, id, o.PaymentStatus, pt, ps); err != nil {
		return domain.Order{}, err
	}
	s.logger.Info().Int64(logging.FieldOrderID, id).Str("payment_status", string(ps)).Msg("order marked paid")
	return s.Get(ctx, id)
}

// MarkCODReceived records the rider's cash for a delivered COD order.
func (s *Service) MarkCODReceived(ctx context.Context, id int64) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status != domain.StatusDelivered || o.PaymentType != domain.PaymentCOD || o.PaymentStatus != domain.PaymentCODPending {
		return domain.Order{}, fmt.Errorf("%w: only delivered COD orders pending payment", domain.ErrInvalidTransition)
	}
	if err := repository.NewOrders(s.db).UpdatePayment(ctx, id, domain.PaymentCODPending, domain.PaymentCOD, domain.PaymentCODReceived); err != nil {
		return domain.Order{}, err
	}
	s.logger.Info().Int64(logging.FieldOrderID, id).Msg("cod received")
	return s.Get(ctx, id)
}

// Package order owns order creation, pricing and status transitions.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/notify"
	"dinepos/m/internal/repository"
)

// ChargeQuoter prices delivery for an area and subtotal.
type ChargeQuoter interface {
	Quote(area domain.DeliveryArea, subtotal decimal.Decimal) domain.DeliveryCharge
}

type Service struct {
	db        *sqlx.DB
	charges   ChargeQuoter
	publisher notify.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(db *sqlx.DB, charges ChargeQuoter, pub notify.Publisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = notify.Nop{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		db:        db,
		charges:   charges,
		publisher: pub,
		metrics:   m,
		logger:    logging.Component(logger, "order"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type DeliveryInput struct {
	AreaID        int64  `json:"area_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Address       string `json:"address"`
}

// CreateInput is a checkout request. Subtotal and Total are what the terminal
// computed; when present they must agree with the server's figures.
type CreateInput struct {
	CashierID           int64
	OrderType           domain.OrderType
	Status              domain.OrderStatus
	PaymentType         domain.PaymentType
	Items               []ItemInput
	Discount            decimal.Decimal
	Subtotal            *decimal.Decimal
	Total               *decimal.Decimal
	CashReceived        decimal.Decimal
	SpecialInstructions string
	Delivery            *DeliveryInput
}

func (in *CreateInput) validate() error {
	if len(in.Items) == 0 {
		return domain.Invalid("order has no items")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return domain.Invalid("quantity for product %d must be positive", it.ProductID)
		}
	}
	if in.OrderType == "" {
		return domain.Invalid("order type is required")
	}
	switch in.Status {
	case "":
		in.Status = domain.StatusPending
	case domain.StatusPending, domain.StatusConfirmed:
	default:
		return domain.Invalid("new orders start pending or confirmed, not %s", in.Status)
	}
	if in.PaymentType == "" {
		in.PaymentType = domain.PaymentCash
	}
	if in.Discount.IsNegative() {
		return domain.Invalid("discount cannot be negative")
	}
	if in.CashReceived.IsNegative() {
		return domain.Invalid("cash received cannot be negative")
	}
	if in.OrderType == domain.OrderTypeDelivery {
		if in.Delivery == nil || in.Delivery.AreaID == 0 {
			return domain.Invalid("delivery orders need a delivery area")
		}
		if strings.TrimSpace(in.Delivery.Address) == "" {
			return domain.Invalid("delivery address is required")
		}
	}
	return nil
}

// Create prices and stores a new order in the cashier's open shift.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Order, error) {
	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}
	now := s.now()

	var o domain.Order
	err := repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		session, err := repository.NewSessions(tx).Current(ctx, in.CashierID)
		if err != nil {
			return err
		}

		items, subtotal, err := s.snapshotItems(ctx, repository.NewCatalog(tx), in.Items)
		if err != nil {
			return err
		}
		discount := domain.Money(in.Discount)
		if discount.GreaterThan(subtotal) {
			return domain.Invalid("discount %s exceeds subtotal %s", discount.StringFixed(2), subtotal.StringFixed(2))
		}

		o = domain.Order{
			SessionID:           &session.ID,
			CashierID:           &in.CashierID,
			OrderType:           in.OrderType,
			Status:              in.Status,
			PaymentType:         in.PaymentType,
			Subtotal:            subtotal,
			Discount:            discount,
			DeliveryCharge:      decimal.Zero,
			SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
			CreatedAt:           now,
			Items:               items,
		}
		if in.Status == domain.StatusConfirmed {
			o.ConfirmedAt = &now
		}
		if o.IsDelivery() {
			area, err := repository.NewAreas(tx).Get(ctx, in.Delivery.AreaID)
			if errors.Is(err, domain.ErrNotFound) || (err == nil && !area.Active) {
				return domain.Invalid("delivery area %d is not available", in.Delivery.AreaID)
			}
			if err != nil {
				return err
			}
			quote := s.charges.Quote(area, subtotal)
			o.AreaID = &area.ID
			o.DeliveryCharge = quote.DeliveryCharge
			o.CustomerName = strings.TrimSpace(in.Delivery.CustomerName)
			o.CustomerPhone = strings.TrimSpace(in.Delivery.CustomerPhone)
			o.DeliveryAddress = strings.TrimSpace(in.Delivery.Address)
		}
		o.GrandTotal = domain.Money(subtotal.Sub(discount).Add(o.DeliveryCharge))

		if in.Subtotal != nil && !domain.Money(*in.Subtotal).Equal(subtotal) {
			return domain.Invalid("stale cart: subtotal %s, current prices give %s",
				domain.Money(*in.Subtotal).StringFixed(2), subtotal.StringFixed(2))
		}
		if in.Total != nil && !domain.Money(*in.Total).Equal(o.GrandTotal) {
			return domain.Invalid("stale cart: total %s, expected %s",
				domain.Money(*in.Total).StringFixed(2), o.GrandTotal.StringFixed(2))
		}
		if err := applyPayment(&o, domain.Money(in.CashReceived)); err != nil {
			return err
		}

		orders := repository.NewOrders(tx)
		if o.OrderNumber, err = nextOrderNumber(ctx, orders, now); err != nil {
			return err
		}
		o.TrackingToken = NewTrackingToken()
		return orders.Insert(ctx, &o)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.OrdersCreated.WithLabelValues(string(o.OrderType), string(o.PaymentType)).Inc()
	s.logger.Info().
		Int64(logging.FieldOrderID, o.ID).
		Str(logging.FieldOrderNo, o.OrderNumber).
		Str("order_type", string(o.OrderType)).
		Str("grand_total", o.GrandTotal.StringFixed(2)).
		Msg("order created")
	return o, nil
}

func (s *Service) snapshotItems(ctx context.Context, catalog *repository.Catalog, in []ItemInput) ([]domain.OrderItem, decimal.Decimal, error) {
	ids := make([]int64, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.ProductID)
	}
	products, err := catalog.ProductsByID(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make([]domain.OrderItem, 0, len(in))
	subtotal := decimal.Zero
	for _, it := range in {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return nil, decimal.Zero, domain.Invalid("product %d is not available", it.ProductID)
		}
		unit := domain.Money(p.SellingPrice)
		line := domain.Money(unit.Mul(decimal.NewFromInt(it.Quantity)))
		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   unit,
			LineTotal:   line,
		})
		subtotal = subtotal.Add(line)
	}
	return items, domain.Money(subtotal), nil
}

func applyPayment(o *domain.Order, cashReceived decimal.Decimal) error {
	switch o.PaymentType {
	case domain.PaymentCash:
		if cashReceived.LessThan(o.GrandTotal) {
			return domain.Invalid("cash received %s is less than total %s",
				cashReceived.StringFixed(2), o.GrandTotal.StringFixed(2))
		}
		o.CashReceived = cashReceived
		o.ChangeDue = domain.Money(cashReceived.Sub(o.GrandTotal))
		o.PaymentStatus = domain.PaymentPaid
	case domain.PaymentCOD:
		o.PaymentStatus = domain.PaymentCODPending
	case domain.PaymentOnline:
		o.PaymentStatus = domain.PaymentPaid
	default:
		return fmt.Errorf("%w: payment type %q", domain.ErrInvalidEnum, o.PaymentType)
	}
	return nil
}

func nextOrderNumber(ctx context.Context, orders *repository.Orders, now time.Time) (string, error) {
	prefix := "ORD-" + now.Format("20060102") + "-"
	n, err := orders.NextForDay(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("order sequence: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, n), nil
}

// NewTrackingToken returns 32 lowercase hex characters.
func NewTrackingToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

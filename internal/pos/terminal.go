package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/wire"
)

// Checkout problems detected before anything is sent to the server.
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoOrderType      = errors.New("select an order type")
	ErrInsufficientCash = errors.New("cash received is less than the total")
	ErrDiscountTooLarge = errors.New("discount is larger than the subtotal")
	ErrNoDeliveryArea   = errors.New("select a delivery area")
	ErrNotConfirmed     = errors.New("closing a shift must be confirmed")
)

// API is the part of the POS backend a terminal uses.
type API interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
	OpenSession(ctx context.Context, req wire.OpenSessionRequest) (domain.Session, error)
	SessionTotals(ctx context.Context, id int64) (domain.SessionTotals, error)
	CloseSession(ctx context.Context, id int64, req wire.CloseSessionRequest) (domain.CloseResult, error)
	AddExpense(ctx context.Context, req wire.ExpenseRequest) (domain.Expense, error)
	CalcDeliveryCharge(ctx context.Context, req wire.DeliveryChargeRequest) (domain.DeliveryCharge, error)
	CreateOrder(ctx context.Context, req wire.CreateOrderRequest) (domain.Order, error)
	ActiveRiders(ctx context.Context, areaID *int64) ([]domain.RiderOption, error)
	AssignRider(ctx context.Context, orderID, riderID int64) (domain.Order, error)
}

// Terminal is one cashier station. Each terminal owns its cart and shift, so
// several can run in one process.
type Terminal struct {
	api     API
	cart    Cart
	session *domain.Session

	orderType    domain.OrderType
	paymentType  domain.PaymentType
	discount     decimal.Decimal
	instructions string
	area         *domain.DeliveryArea
	charge       *domain.DeliveryCharge
	quotedAt     decimal.Decimal
	customer     wire.Delivery
}

func NewTerminal(api API) *Terminal {
	return &Terminal{api: api, paymentType: domain.PaymentCash}
}

func (t *Terminal) Cart() *Cart { return &t.cart }

func (t *Terminal) Session() *domain.Session { return t.session }

// EnsureSession loads the cashier's open shift. It reports false when a shift
// has to be opened before selling.
func (t *Terminal) EnsureSession(ctx context.Context) (bool, error) {
	s, err := t.api.CurrentSession(ctx)
	if err != nil {
		return false, err
	}
	t.session = s
	return s != nil, nil
}

func (t *Terminal) OpenShift(ctx context.Context, openingCash decimal.Decimal, notes string) (domain.Session, error) {
	if openingCash.IsNegative() {
		return domain.Session{}, domain.Invalid("opening cash cannot be negative")
	}
	s, err := t.api.OpenSession(ctx, wire.OpenSessionRequest{OpeningCash: openingCash, Notes: notes})
	if err != nil {
		return domain.Session{}, err
	}
	t.session = &s
	return s, nil
}

func (t *Terminal) SetOrderType(ot domain.OrderType) {
	t.orderType = ot
	if ot != domain.OrderTypeDelivery {
		t.area, t.charge = nil, nil
	}
}

func (t *Terminal) SetPaymentType(pt domain.PaymentType) { t.paymentType = pt }
func (t *Terminal) SetDiscount(d decimal.Decimal)        { t.discount = d }
func (t *Terminal) SetInstructions(s string)             { t.instructions = s }

func (t *Terminal) SetCustomer(name, phone, address string) {
	t.customer.CustomerName, t.customer.CustomerPhone, t.customer.Address = name, phone, address
}

// SelectDeliveryArea quotes the charge for the area against the current
// subtotal. On failure the charge is dropped and the error returned, but
// checkout stays possible: the server prices delivery itself.
func (t *Terminal) SelectDeliveryArea(ctx context.Context, area domain.DeliveryArea) (*domain.DeliveryCharge, error) {
	t.area = &area
	t.charge = nil
	quote, err := t.api.CalcDeliveryCharge(ctx, wire.DeliveryChargeRequest{AreaID: area.ID, Subtotal: t.cart.Subtotal()})
	if err != nil {
		return nil, fmt.Errorf("delivery charge unavailable: %w", err)
	}
	t.charge = &quote
	t.quotedAt = t.cart.Subtotal()
	return t.charge, nil
}

// DeliveryCharge is the last successful quote, or nil when there is none or
// the cart has changed since it was taken.
func (t *Terminal) DeliveryCharge() *domain.DeliveryCharge {
	if t.charge == nil || !t.quotedAt.Equal(t.cart.Subtotal()) {
		return nil
	}
	return t.charge
}

// RefreshDeliveryCharge re-quotes the selected area when the subtotal moved
// since the last quote.
func (t *Terminal) RefreshDeliveryCharge(ctx context.Context) (*domain.DeliveryCharge, error) {
	if t.area == nil {
		return nil, ErrNoDeliveryArea
	}
	if c := t.DeliveryCharge(); c != nil {
		return c, nil
	}
	return t.SelectDeliveryArea(ctx, *t.area)
}

func (t *Terminal) Totals() Totals {
	charge := decimal.Zero
	if c := t.DeliveryCharge(); t.orderType == domain.OrderTypeDelivery && c != nil {
		charge = c.DeliveryCharge
	}
	return t.cart.Totals(t.discount, charge)
}

type CheckoutResult struct {
	Order      domain.Order
	ChangeDue  decimal.Decimal
	NeedsRider bool
}

// Validate runs the local checkout checks without contacting the server.
func (t *Terminal) Validate(cashReceived decimal.Decimal) error {
	if t.session == nil {
		return domain.ErrNoActiveSession
	}
	if t.cart.Empty() {
		return ErrEmptyCart
	}
	if t.orderType == "" {
		return ErrNoOrderType
	}
	totals := t.Totals()
	if t.discount.IsNegative() {
		return domain.Invalid("discount cannot be negative")
	}
	if t.discount.GreaterThan(totals.Subtotal) {
		return ErrDiscountTooLarge
	}
	if t.orderType == domain.OrderTypeDelivery && t.area == nil {
		return ErrNoDeliveryArea
	}
	if t.paymentType == domain.PaymentCash && cashReceived.LessThan(totals.Total) {
		return ErrInsufficientCash
	}
	return nil
}

// Checkout submits the cart. The cart is kept when the server refuses so the
// cashier can retry; on success it is cleared.
func (t *Terminal) Checkout(ctx context.Context, cashReceived decimal.Decimal) (CheckoutResult, error) {
	if t.orderType == domain.OrderTypeDelivery && t.area != nil && t.DeliveryCharge() == nil {
		// A failed re-quote leaves the charge unknown; the server prices it.
		_, _ = t.RefreshDeliveryCharge(ctx)
	}
	if err := t.Validate(cashReceived); err != nil {
		return CheckoutResult{}, err
	}
	totals := t.Totals()

	req := wire.CreateOrderRequest{
		Subtotal:            &totals.Subtotal,
		Discount:            totals.Discount,
		CashReceived:        cashReceived,
		ChangeDue:           ChangeDue(cashReceived, totals.Total),
		Status:              domain.StatusPending,
		OrderType:           t.orderType,
		PaymentType:         t.paymentType,
		SpecialInstructions: strings.TrimSpace(t.instructions),
	}
	// Without a quote the terminal does not know the total; the server prices it.
	if t.orderType != domain.OrderTypeDelivery || t.DeliveryCharge() != nil {
		req.Total = &totals.Total
		req.DeliveryCharge = &totals.DeliveryCharge
	}
	if t.paymentType != domain.PaymentCash {
		req.CashReceived, req.ChangeDue = decimal.Zero, decimal.Zero
	}
	for _, l := range t.cart.Lines() {
		req.Items = append(req.Items, wire.OrderItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: domain.Money(l.Product.SellingPrice),
			LineTotal: l.Total(),
		})
	}
	if t.orderType == domain.OrderTypeDelivery {
		d := t.customer
		d.AreaID = t.area.ID
		req.Delivery = &d
	}

	o, err := t.api.CreateOrder(ctx, req)
	if err != nil {
		return CheckoutResult{}, err
	}
	res := CheckoutResult{Order: o, ChangeDue: o.ChangeDue, NeedsRider: o.IsDelivery()}
	t.resetCheckout()
	return res, nil
}

func (t *Terminal) resetCheckout() {
	t.cart.Clear()
	t.orderType = ""
	t.paymentType = domain.PaymentCash
	t.discount = decimal.Zero
	t.instructions = ""
	t.area, t.charge = nil, nil
	t.customer = wire.Delivery{}
}

// RiderOptions lists riders for a delivery order, ranked for the dispatcher.
func (t *Terminal) RiderOptions(ctx context.Context, o domain.Order) ([]domain.RiderOption, error) {
	return t.api.ActiveRiders(ctx, o.AreaID)
}

// AssignRider confirms the dispatcher's pick. Not calling it leaves the order
// unassigned for later.
func (t *Terminal) AssignRider(ctx context.Context, orderID, riderID int64) (domain.Order, error) {
	if riderID == 0 {
		return domain.Order{}, domain.Invalid("select a rider")
	}
	return t.api.AssignRider(ctx, orderID, riderID)
}

func (t *Terminal) AddExpense(ctx context.Context, amount decimal.Decimal, category domain.ExpenseCategory, riderID *int64, description string) (domain.Expense, error) {
	if t.session == nil {
		return domain.Expense{}, domain.ErrNoActiveSession
	}
	if !amount.IsPositive() {
		return domain.Expense{}, domain.Invalid("expense amount must be greater than zero")
	}
	if category == "" {
		return domain.Expense{}, domain.Invalid("expense category is required")
	}
	if category == domain.ExpenseRiderPayout && riderID == nil {
		return domain.Expense{}, domain.Invalid("rider payouts need a rider")
	}
	return t.api.AddExpense(ctx, wire.ExpenseRequest{
		SessionID:   t.session.ID,
		Amount:      amount,
		Category:    category,
		RiderID:     riderID,
		Description: description,
	})
}

// ShiftTotals fetches the figures the cashier sees before counting the drawer.
func (t *Terminal) ShiftTotals(ctx context.Context) (domain.SessionTotals, error) {
	if t.session == nil {
		return domain.SessionTotals{}, domain.ErrNoActiveSession
	}
	return t.api.SessionTotals(ctx, t.session.ID)
}

// CloseShift closes the shift after explicit confirmation and forgets it
// locally, so the next sale asks for a new shift.
func (t *Terminal) CloseShift(ctx context.Context, closingCash decimal.Decimal, notes string, confirmed bool) (domain.CloseResult, error) {
	if t.session == nil {
		return domain.CloseResult{}, domain.ErrNoActiveSession
	}
	if !confirmed {
		return domain.CloseResult{}, ErrNotConfirmed
	}
	if closingCash.IsNegative() {
		return domain.CloseResult{}, domain.Invalid("closing cash cannot be negative")
	}
	res, err := t.api.CloseSession(ctx, t.session.ID, wire.CloseSessionRequest{ClosingCash: closingCash, Notes: notes, Confirm: true})
	if err != nil {
		return domain.CloseResult{}, err
	}
	t.session = nil
	t.resetCheckout()
	return res, nil
}

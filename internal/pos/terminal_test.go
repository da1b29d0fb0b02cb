package pos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/client"
	"dinepos/m/internal/pos"
	"dinepos/m/internal/wire"
)

var _ pos.API = (*client.Client)(nil)

type fakeAPI struct {
	session   *domain.Session
	quote     domain.DeliveryCharge
	freeAbove decimal.Decimal
	quotes    int
	quoteErr  error
	createErr error
	created   []wire.CreateOrderRequest
	closed    []wire.CloseSessionRequest
	expenses  []wire.ExpenseRequest
}

func (f *fakeAPI) CurrentSession(context.Context) (*domain.Session, error) { return f.session, nil }

func (f *fakeAPI) OpenSession(_ context.Context, req wire.OpenSessionRequest) (domain.Session, error) {
	f.session = &domain.Session{ID: 7, OpeningCash: req.OpeningCash, Status: domain.SessionOpen}
	return *f.session, nil
}

func (f *fakeAPI) SessionTotals(_ context.Context, id int64) (domain.SessionTotals, error) {
	return domain.SessionTotals{SessionID: id}, nil
}

func (f *fakeAPI) CloseSession(_ context.Context, id int64, req wire.CloseSessionRequest) (domain.CloseResult, error) {
	f.closed = append(f.closed, req)
	return domain.CloseResult{Session: domain.Session{ID: id, Status: domain.SessionClosed}}, nil
}

func (f *fakeAPI) AddExpense(_ context.Context, req wire.ExpenseRequest) (domain.Expense, error) {
	f.expenses = append(f.expenses, req)
	return domain.Expense{ID: 1, SessionID: req.SessionID, Amount: req.Amount, Category: req.Category}, nil
}

func (f *fakeAPI) CalcDeliveryCharge(_ context.Context, req wire.DeliveryChargeRequest) (domain.DeliveryCharge, error) {
	if f.quoteErr != nil {
		return domain.DeliveryCharge{}, f.quoteErr
	}
	f.quotes++
	q := f.quote
	q.AreaID = req.AreaID
	if f.freeAbove.IsPositive() && req.Subtotal.GreaterThanOrEqual(f.freeAbove) {
		q.DeliveryCharge, q.IsFree, q.RuleType = decimal.Zero, true, "free_above"
	}
	return q, nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, req wire.CreateOrderRequest) (domain.Order, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return domain.Order{}, f.createErr
	}
	return domain.Order{ID: 1, OrderNumber: "ORD-20240309-0001", OrderType: req.OrderType, ChangeDue: req.ChangeDue}, nil
}

func (f *fakeAPI) ActiveRiders(context.Context, *int64) ([]domain.RiderOption, error) {
	return []domain.RiderOption{{Rider: domain.Rider{ID: 3, Name: "Rae"}}}, nil
}

func (f *fakeAPI) AssignRider(_ context.Context, orderID, riderID int64) (domain.Order, error) {
	return domain.Order{ID: orderID, RiderID: &riderID}, nil
}

func openTerminal(t *testing.T) (*pos.Terminal, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{session: &domain.Session{ID: 7, Status: domain.SessionOpen}}
	term := pos.NewTerminal(api)
	ok, err := term.EnsureSession(context.Background())
	if err != nil || !ok {
		t.Fatalf("EnsureSession = %v, %v", ok, err)
	}
	return term, api
}

func fillCart(term *pos.Terminal) {
	burger := product(1, "Burger", "10")
	term.Cart().AddItem(burger)
	term.Cart().AddItem(burger)
	term.Cart().AddItem(product(2, "Fries", "5"))
}

func TestEnsureSessionWithoutShift(t *testing.T) {
	term := pos.NewTerminal(&fakeAPI{})
	ok, err := term.EnsureSession(context.Background())
	if err != nil || ok {
		t.Fatalf("EnsureSession = %v, %v; want false, nil", ok, err)
	}
	fillCart(term)
	term.SetOrderType(domain.OrderTypeDineIn)
	if _, err := term.Checkout(context.Background(), decimal.NewFromInt(100)); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	if _, err := term.OpenShift(context.Background(), decimal.NewFromInt(-1), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative opening cash: %v", err)
	}
	if _, err := term.OpenShift(context.Background(), decimal.NewFromInt(200), "morning"); err != nil {
		t.Fatal(err)
	}
	if term.Session() == nil {
		t.Fatal("session not kept after opening")
	}
}

func TestCheckoutCash(t *testing.T) {
	term, api := openTerminal(t)
	fillCart(term)
	term.SetOrderType(domain.OrderTypeDineIn)
	term.SetDiscount(decimal.NewFromInt(5))

	res, err := term.Checkout(context.Background(), decimal.NewFromInt(25))
	if err != nil {
		t.Fatal(err)
	}
	if len(api.created) != 1 {
		t.Fatalf("orders sent = %d", len(api.created))
	}
	req := api.created[0]
	if !req.Total.Equal(decimal.NewFromInt(20)) || !req.Subtotal.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("request totals = %s / %s", req.Subtotal, req.Total)
	}
	if !res.ChangeDue.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("change = %s", res.ChangeDue)
	}
	if res.NeedsRider {
		t.Fatal("dine-in order should not need a rider")
	}
	if !term.Cart().Empty() {
		t.Fatal("cart not cleared after checkout")
	}
}

func TestCheckoutLocalValidation(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(*pos.Terminal)
		cash    int64
		want    error
	}{
		{"empty cart", func(term *pos.Terminal) { term.SetOrderType(domain.OrderTypeDineIn) }, 100, pos.ErrEmptyCart},
		{"no order type", func(term *pos.Terminal) { fillCart(term) }, 100, pos.ErrNoOrderType},
		{"short cash", func(term *pos.Terminal) {
			fillCart(term)
			term.SetOrderType(domain.OrderTypeTakeaway)
			term.SetDiscount(decimal.NewFromInt(5))
		}, 15, pos.ErrInsufficientCash},
		{"discount above subtotal", func(term *pos.Terminal) {
			fillCart(term)
			term.SetOrderType(domain.OrderTypeTakeaway)
			term.SetDiscount(decimal.NewFromInt(30))
		}, 100, pos.ErrDiscountTooLarge},
		{"delivery without area", func(term *pos.Terminal) {
			fillCart(term)
			term.SetOrderType(domain.OrderTypeDelivery)
		}, 100, pos.ErrNoDeliveryArea},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			term, api := openTerminal(t)
			tc.prepare(term)
			_, err := term.Checkout(context.Background(), decimal.NewFromInt(tc.cash))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if len(api.created) != 0 {
				t.Fatal("invalid checkout reached the server")
			}
		})
	}
}

func TestCheckoutOnlineSkipsCashCheck(t *testing.T) {
	term, api := openTerminal(t)
	fillCart(term)
	term.SetOrderType(domain.OrderTypeTakeaway)
	term.SetPaymentType(domain.PaymentOnline)
	if _, err := term.Checkout(context.Background(), decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if !api.created[0].CashReceived.IsZero() {
		t.Fatal("online order should not carry cash received")
	}
}

func TestCheckoutKeepsCartOnServerError(t *testing.T) {
	term, api := openTerminal(t)
	api.createErr = &client.APIError{StatusCode: 409, Message: "cart is stale"}
	fillCart(term)
	term.SetOrderType(domain.OrderTypeDineIn)

	_, err := term.Checkout(context.Background(), decimal.NewFromInt(100))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := client.Message(err); got != "cart is stale" {
		t.Fatalf("message = %q", got)
	}
	if term.Cart().Len() != 2 {
		t.Fatal("cart should survive a failed checkout")
	}
}

func TestDeliveryQuoteAndRider(t *testing.T) {
	term, api := openTerminal(t)
	api.quote = domain.DeliveryCharge{DeliveryCharge: decimal.NewFromInt(50), RuleType: "flat"}
	fillCart(term)
	term.SetOrderType(domain.OrderTypeDelivery)
	term.SetCustomer("Ann", "555", "1 Main St")

	quote, err := term.SelectDeliveryArea(context.Background(), domain.DeliveryArea{ID: 4, Name: "Center"})
	if err != nil {
		t.Fatal(err)
	}
	if quote.AreaID != 4 || !term.Totals().Total.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("quote = %+v, total = %s", quote, term.Totals().Total)
	}

	res, err := term.Checkout(context.Background(), decimal.NewFromInt(100))
	if err != nil {
		t.Fatal(err)
	}
	req := api.created[0]
	if req.Delivery == nil || req.Delivery.AreaID != 4 || req.Delivery.CustomerName != "Ann" {
		t.Fatalf("delivery = %+v", req.Delivery)
	}
	if !res.NeedsRider {
		t.Fatal("delivery order should ask for a rider")
	}

	opts, err := term.RiderOptions(context.Background(), res.Order)
	if err != nil || len(opts) != 1 {
		t.Fatalf("options = %v, %v", opts, err)
	}
	o, err := term.AssignRider(context.Background(), res.Order.ID, opts[0].Rider.ID)
	if err != nil || o.RiderID == nil || *o.RiderID != 3 {
		t.Fatalf("assign = %+v, %v", o, err)
	}
}

func TestDeliveryQuoteFollowsCart(t *testing.T) {
	term, api := openTerminal(t)
	api.quote = domain.DeliveryCharge{DeliveryCharge: decimal.NewFromInt(50), RuleType: "flat"}
	api.freeAbove = decimal.NewFromInt(1000)
	term.Cart().AddItem(product(2, "Fries", "10"))
	term.SetOrderType(domain.OrderTypeDelivery)
	term.SetPaymentType(domain.PaymentCOD)

	if _, err := term.SelectDeliveryArea(context.Background(), domain.DeliveryArea{ID: 4}); err != nil {
		t.Fatal(err)
	}
	if !term.Totals().Total.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("total = %s", term.Totals().Total)
	}

	if err := term.Cart().SetQuantity(0, 150); err != nil {
		t.Fatal(err)
	}
	if term.DeliveryCharge() != nil {
		t.Fatal("quote taken at the old subtotal is still offered")
	}
	if !term.Totals().Total.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("total with stale quote = %s", term.Totals().Total)
	}

	if _, err := term.Checkout(context.Background(), decimal.Zero); err != nil {
		t.Fatal(err)
	}
	req := api.created[0]
	if api.quotes != 2 {
		t.Fatalf("quotes = %d, want a re-quote at checkout", api.quotes)
	}
	if req.Total == nil || !req.Total.Equal(decimal.NewFromInt(1500)) || req.DeliveryCharge == nil || !req.DeliveryCharge.IsZero() {
		t.Fatalf("total = %v, charge = %v", req.Total, req.DeliveryCharge)
	}
}

func TestDeliveryRequoteFailureLeavesTotalToServer(t *testing.T) {
	term, api := openTerminal(t)
	api.quote = domain.DeliveryCharge{DeliveryCharge: decimal.NewFromInt(50)}
	term.Cart().AddItem(product(2, "Fries", "10"))
	term.SetOrderType(domain.OrderTypeDelivery)
	term.SetPaymentType(domain.PaymentOnline)
	if _, err := term.SelectDeliveryArea(context.Background(), domain.DeliveryArea{ID: 4}); err != nil {
		t.Fatal(err)
	}

	term.Cart().AddItem(product(1, "Burger", "10"))
	api.quoteErr = errors.New("network down")
	if _, err := term.Checkout(context.Background(), decimal.Zero); err != nil {
		t.Fatal(err)
	}
	if req := api.created[0]; req.Total != nil || req.DeliveryCharge != nil {
		t.Fatalf("stale charge sent: total %v, charge %v", req.Total, req.DeliveryCharge)
	}
}

func TestDeliveryQuoteFailureDoesNotBlock(t *testing.T) {
	term, api := openTerminal(t)
	api.quoteErr = errors.New("network down")
	fillCart(term)
	term.SetOrderType(domain.OrderTypeDelivery)

	if _, err := term.SelectDeliveryArea(context.Background(), domain.DeliveryArea{ID: 4}); err == nil {
		t.Fatal("expected quote error")
	}
	if term.DeliveryCharge() != nil {
		t.Fatal("failed quote must not leave a charge behind")
	}
	if _, err := term.Checkout(context.Background(), decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if api.created[0].Total != nil {
		t.Fatal("total should be left to the server when the charge is unknown")
	}
}

func TestCloseShiftNeedsConfirmation(t *testing.T) {
	term, api := openTerminal(t)
	if _, err := term.CloseShift(context.Background(), decimal.NewFromInt(400), "", false); !errors.Is(err, pos.ErrNotConfirmed) {
		t.Fatalf("err = %v", err)
	}
	if len(api.closed) != 0 {
		t.Fatal("unconfirmed close reached the server")
	}
	if _, err := term.CloseShift(context.Background(), decimal.NewFromInt(400), "done", true); err != nil {
		t.Fatal(err)
	}
	if term.Session() != nil {
		t.Fatal("session should be forgotten after close")
	}
}

func TestAddExpenseValidation(t *testing.T) {
	term, api := openTerminal(t)
	ctx := context.Background()
	if _, err := term.AddExpense(ctx, decimal.Zero, domain.ExpenseSupplies, nil, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero amount: %v", err)
	}
	if _, err := term.AddExpense(ctx, decimal.NewFromInt(40), domain.ExpenseRiderPayout, nil, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("payout without rider: %v", err)
	}
	rider := int64(3)
	if _, err := term.AddExpense(ctx, decimal.NewFromInt(40), domain.ExpenseRiderPayout, &rider, "evening run"); err != nil {
		t.Fatal(err)
	}
	if len(api.expenses) != 1 || api.expenses[0].SessionID != 7 {
		t.Fatalf("expenses = %+v", api.expenses)
	}
}

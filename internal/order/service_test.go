package order_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/delivery"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/notify"
	"dinepos/m/internal/order"
	"dinepos/m/internal/repository"
	"dinepos/m/internal/testutil"
)

type fixture struct {
	db       *sqlx.DB
	svc      *order.Service
	events   *notify.Recorder
	clock    *testutil.Clock
	cashier  domain.User
	burger   domain.Product
	fries    domain.Product
	area     domain.DeliveryArea
	rider    domain.Rider
	delivery *delivery.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &fixture{db: db, events: &notify.Recorder{}, clock: testutil.NewClock(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))}
	engine := delivery.NewEngine(delivery.DefaultRules())
	f.svc = order.NewService(db, engine, f.events, metrics.New(), zerolog.Nop()).WithClock(f.clock.Now)
	f.delivery = delivery.NewService(db, engine, metrics.New(), zerolog.Nop()).WithClock(f.clock.Now)
	f.cashier = testutil.CreateUser(t, db, "cashier@example.com", domain.RoleCashier)
	f.burger = testutil.CreateProduct(t, db, "Burger", "10")
	f.fries = testutil.CreateProduct(t, db, "Fries", "5")
	f.area = testutil.CreateArea(t, db, "Center", "2")
	f.rider = testutil.CreateRider(t, db, domain.Rider{Name: "Rae", PayoutType: domain.PayoutPerDelivery, PerDeliveryRate: decimal.NewFromInt(40)})

	s := domain.Session{CashierID: f.cashier.ID, OpeningCash: decimal.NewFromInt(100), OpenedAt: f.clock.Now()}
	if err := repository.NewSessions(db).Open(context.Background(), &s); err != nil {
		t.Fatal(err)
	}
	return f
}

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func (f *fixture) cashOrder(t *testing.T) domain.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), order.CreateInput{
		CashierID:    f.cashier.ID,
		OrderType:    domain.OrderTypeTakeaway,
		Items:        []order.ItemInput{{ProductID: f.burger.ID, Quantity: 2}, {ProductID: f.fries.ID, Quantity: 1}},
		Discount:     decimal.NewFromInt(5),
		Total:        dec("20"),
		CashReceived: decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestCreateCashOrder(t *testing.T) {
	f := setup(t)
	o := f.cashOrder(t)

	if !o.Subtotal.Equal(decimal.NewFromInt(25)) || !o.GrandTotal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("subtotal=%s total=%s", o.Subtotal, o.GrandTotal)
	}
	if !o.ChangeDue.Equal(decimal.NewFromInt(5)) || o.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("change=%s payment=%s", o.ChangeDue, o.PaymentStatus)
	}
	if o.OrderNumber != "ORD-20240309-0001" {
		t.Fatalf("order number = %s", o.OrderNumber)
	}
	if len(o.TrackingToken) != 32 || strings.Contains(o.TrackingToken, "-") {
		t.Fatalf("tracking token = %q", o.TrackingToken)
	}
	if len(o.Items) != 2 || o.Items[0].ProductName != "Burger" || !o.Items[0].LineTotal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("items = %+v", o.Items)
	}

	second := f.cashOrder(t)
	if second.OrderNumber != "ORD-20240309-0002" {
		t.Fatalf("second order number = %s", second.OrderNumber)
	}
}

func TestCreateSnapshotsPrices(t *testing.T) {
	f := setup(t)
	o := f.cashOrder(t)
	if _, err := f.db.Exec(`UPDATE products SET selling_price = 99 WHERE id = ?`, f.burger.ID); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Get(context.Background(), o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unit price changed with catalog: %s", got.Items[0].UnitPrice)
	}
}

func TestCreateRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := func() order.CreateInput {
		return order.CreateInput{
			CashierID:    f.cashier.ID,
			OrderType:    domain.OrderTypeDineIn,
			Items:        []order.ItemInput{{ProductID: f.burger.ID, Quantity: 2}},
			CashReceived: decimal.NewFromInt(100),
		}
	}
	cases := map[string]struct {
		mutate func(*order.CreateInput)
		want   error
	}{
		"empty cart":        {func(in *order.CreateInput) { in.Items = nil }, domain.ErrValidation},
		"zero quantity":     {func(in *order.CreateInput) { in.Items[0].Quantity = 0 }, domain.ErrValidation},
		"missing type":      {func(in *order.CreateInput) { in.OrderType = "" }, domain.ErrValidation},
		"insufficient cash": {func(in *order.CreateInput) { in.CashReceived = decimal.NewFromInt(15) }, domain.ErrValidation},
		"discount too big":  {func(in *order.CreateInput) { in.Discount = decimal.NewFromInt(21) }, domain.ErrValidation},
		"stale total":       {func(in *order.CreateInput) { in.Total = dec("18") }, domain.ErrValidation},
		"unknown product":   {func(in *order.CreateInput) { in.Items[0].ProductID = 404 }, domain.ErrValidation},
		"delivery no area":  {func(in *order.CreateInput) { in.OrderType = domain.OrderTypeDelivery }, domain.ErrValidation},
		"no shift": {func(in *order.CreateInput) {
			in.CashierID = testutil.CreateUser(t, f.db, "other@example.com", domain.RoleCashier).ID
		}, domain.ErrNoActiveSession},
	}
	for name, c := range cases {
		in := base()
		c.mutate(&in)
		if _, err := f.svc.Create(ctx, in); !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v, want %v", name, err, c.want)
		}
	}
}

func TestCreateDeliveryOrderRecomputesCharge(t *testing.T) {
	f := setup(t)
	o, err := f.svc.Create(context.Background(), order.CreateInput{
		CashierID:   f.cashier.ID,
		OrderType:   domain.OrderTypeDelivery,
		PaymentType: domain.PaymentCOD,
		Items:       []order.ItemInput{{ProductID: f.burger.ID, Quantity: 1}},
		Delivery:    &order.DeliveryInput{AreaID: f.area.ID, CustomerName: "Ann", CustomerPhone: "555", Address: "1 Main St"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !o.DeliveryCharge.Equal(decimal.NewFromInt(50)) || !o.GrandTotal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("charge=%s total=%s", o.DeliveryCharge, o.GrandTotal)
	}
	if o.PaymentStatus != domain.PaymentCODPending {
		t.Fatalf("payment status = %s", o.PaymentStatus)
	}
}

func TestKitchenFlowAndHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.cashOrder(t)
	actor := f.cashier.ID

	for _, want := range []domain.OrderStatus{domain.StatusCooking, domain.StatusReady, domain.StatusCompleted} {
		f.clock.Advance(time.Minute)
		got, err := f.svc.Advance(ctx, o.ID, &actor)
		if err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if got.Status != want {
			t.Fatalf("status = %s, want %s", got.Status, want)
		}
	}
	if _, err := f.svc.Advance(ctx, o.ID, &actor); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("advance past completed err = %v", err)
	}

	hist, err := f.svc.History(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 || hist[0].From != domain.StatusPending || hist[2].To != domain.StatusCompleted {
		t.Fatalf("history = %+v", hist)
	}
	if events := f.events.Events(); len(events) != 3 || events[1].To != domain.StatusReady {
		t.Fatalf("events = %+v", events)
	}
	got, _ := f.svc.Get(ctx, o.ID)
	if got.CookingStartedAt == nil || got.ReadyAt == nil || got.CompletedAt == nil {
		t.Fatalf("timestamps not stamped: %+v", got)
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.cashOrder(t)
	if _, err := f.svc.Transition(ctx, o.ID, domain.StatusReady, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending -> ready err = %v", err)
	}
	if _, err := f.svc.Transition(ctx, 12345, domain.StatusCooking, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order err = %v", err)
	}
}

func TestDeliveryLifecycleAndCOD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, order.CreateInput{
		CashierID:   f.cashier.ID,
		OrderType:   domain.OrderTypeDelivery,
		PaymentType: domain.PaymentCOD,
		Items:       []order.ItemInput{{ProductID: f.fries.ID, Quantity: 2}},
		Delivery:    &order.DeliveryInput{AreaID: f.area.ID, Address: "2 Side St"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Advance(ctx, o.ID, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Advance(ctx, o.ID, nil); !errors.Is(err, domain.ErrRiderRequired) {
		t.Fatalf("dispatch without rider err = %v", err)
	}
	if _, err := f.svc.MarkCODReceived(ctx, o.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cod received before delivery err = %v", err)
	}
	if _, err := f.delivery.AssignRider(ctx, o.ID, f.rider.ID); err != nil {
		t.Fatal(err)
	}
	if got, err := f.svc.Advance(ctx, o.ID, nil); err != nil || got.Status != domain.StatusDispatched {
		t.Fatalf("dispatch: %v %s", err, got.Status)
	}
	if _, err := f.svc.Cancel(ctx, o.ID, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel dispatched err = %v", err)
	}
	if got, err := f.svc.MarkDelivered(ctx, o.ID, nil); err != nil || got.Status != domain.StatusDelivered {
		t.Fatalf("deliver: %v", err)
	}
	got, err := f.svc.MarkCODReceived(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentType != domain.PaymentCOD || got.PaymentStatus != domain.PaymentCODReceived {
		t.Fatalf("payment = %s/%s", got.PaymentType, got.PaymentStatus)
	}
	if got, err := f.svc.MarkReplacement(ctx, o.ID, nil); err != nil || got.Status != domain.StatusReplacement {
		t.Fatalf("replacement: %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mk := func() domain.Order {
		o, err := f.svc.Create(ctx, order.CreateInput{
			CashierID:   f.cashier.ID,
			OrderType:   domain.OrderTypeTakeaway,
			PaymentType: domain.PaymentCOD,
			Items:       []order.ItemInput{{ProductID: f.fries.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatal(err)
		}
		return o
	}

	cash, err := f.svc.MarkPaid(ctx, mk().ID, domain.PaymentCash)
	if err != nil || cash.PaymentType != domain.PaymentCOD || cash.PaymentStatus != domain.PaymentCODReceived {
		t.Fatalf("cash: %v %s/%s", err, cash.PaymentType, cash.PaymentStatus)
	}
	online, err := f.svc.MarkPaid(ctx, mk().ID, domain.PaymentOnline)
	if err != nil || online.PaymentType != domain.PaymentOnline || online.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("online: %v %s/%s", err, online.PaymentType, online.PaymentStatus)
	}
	if _, err := f.svc.MarkPaid(ctx, cash.ID, domain.PaymentCash); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("paying twice err = %v", err)
	}
	if _, err := f.svc.MarkPaid(ctx, f.cashOrder(t).ID, domain.PaymentOnline); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cash order err = %v", err)
	}
}

func TestKitchenListsOnlyActiveOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.cashOrder(t)
	b := f.cashOrder(t)
	if _, err := f.svc.Cancel(ctx, b.ID, nil); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Kitchen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != a.ID || len(got[0].Items) != 2 {
		t.Fatalf("kitchen = %+v", got)
	}
}

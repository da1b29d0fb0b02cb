package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/delivery"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/repository"
	"dinepos/m/internal/testutil"
)

func newService(t *testing.T) (*delivery.Service, *repository.Orders, func(domain.OrderType, domain.OrderStatus) domain.Order) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := delivery.NewService(db, delivery.NewEngine(delivery.DefaultRules()), metrics.New(), zerolog.Nop())
	cashier := testutil.CreateUser(t, db, "c@example.com", domain.RoleCashier)
	p := testutil.CreateProduct(t, db, "Pizza", "10")
	s := domain.Session{CashierID: cashier.ID, OpenedAt: time.Now().UTC()}
	if err := repository.NewSessions(db).Open(context.Background(), &s); err != nil {
		t.Fatal(err)
	}
	orders := repository.NewOrders(db)
	n := 0
	mk := func(ot domain.OrderType, st domain.OrderStatus) domain.Order {
		n++
		o := domain.Order{
			OrderNumber: "ORD-T-" + string(rune('A'+n)), SessionID: &s.ID, OrderType: ot, Status: st,
			PaymentType: domain.PaymentCOD, PaymentStatus: domain.PaymentCODPending,
			Subtotal: decimal.NewFromInt(10), GrandTotal: decimal.NewFromInt(10),
			TrackingToken: "tok" + string(rune('A'+n)), CreatedAt: time.Now().UTC(),
			Items: []domain.OrderItem{{ProductID: p.ID, ProductName: p.Name, Quantity: 1, UnitPrice: p.SellingPrice, LineTotal: p.SellingPrice}},
		}
		if err := orders.Insert(context.Background(), &o); err != nil {
			t.Fatal(err)
		}
		return o
	}
	return svc, orders, mk
}

func TestAssignRider(t *testing.T) {
	svc, _, mk := newService(t)
	ctx := context.Background()
	rider, err := svc.CreateRider(ctx, domain.Rider{Name: "Sam", PayoutType: domain.PayoutHybrid,
		PerDeliveryRate: decimal.NewFromInt(50), PerKmRate: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatal(err)
	}

	o := mk(domain.OrderTypeDelivery, domain.StatusReady)
	got, err := svc.AssignRider(ctx, o.ID, rider.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RiderID == nil || *got.RiderID != rider.ID || got.AssignedAt == nil {
		t.Fatalf("rider not recorded: %+v", got)
	}

	dineIn := mk(domain.OrderTypeDineIn, domain.StatusPending)
	if _, err := svc.AssignRider(ctx, dineIn.ID, rider.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("dine-in assign err = %v", err)
	}
	gone := mk(domain.OrderTypeDelivery, domain.StatusDispatched)
	if _, err := svc.AssignRider(ctx, gone.ID, rider.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("dispatched assign err = %v", err)
	}
	if _, err := svc.AssignRider(ctx, o.ID, 999); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown rider err = %v", err)
	}
	if _, err := svc.AssignRider(ctx, 999, rider.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order err = %v", err)
	}
}

func TestRidersRankedWithEstimates(t *testing.T) {
	svc, _, mk := newService(t)
	ctx := context.Background()
	a, err := svc.CreateArea(ctx, domain.DeliveryArea{Name: "North", DistanceKm: decimal.NewFromInt(5), Active: true})
	if err != nil {
		t.Fatal(err)
	}
	busy, _ := svc.CreateRider(ctx, domain.Rider{Name: "Busy", PayoutType: domain.PayoutPerDelivery, PerDeliveryRate: decimal.NewFromInt(1)})
	_, _ = svc.CreateRider(ctx, domain.Rider{Name: "Free", PayoutType: domain.PayoutPerKm, BaseRate: decimal.NewFromInt(20), PerKmRate: decimal.NewFromInt(10)})
	for i := 0; i < 4; i++ {
		o := mk(domain.OrderTypeDelivery, domain.StatusCooking)
		if _, err := svc.AssignRider(ctx, o.ID, busy.ID); err != nil {
			t.Fatal(err)
		}
	}

	opts, err := svc.Riders(ctx, &a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts[0].Name != "Free" || opts[1].Workload != domain.WorkloadHigh {
		t.Fatalf("options = %+v", opts)
	}
	if opts[0].EstimatedPayout == nil || !opts[0].EstimatedPayout.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("estimate = %v", opts[0].EstimatedPayout)
	}
}

func TestCalculate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	a, _ := svc.CreateArea(ctx, domain.DeliveryArea{Name: "Near", DistanceKm: decimal.NewFromInt(2), Active: true})

	got, err := svc.Calculate(ctx, a.ID, decimal.NewFromInt(200))
	if err != nil {
		t.Fatal(err)
	}
	if !got.DeliveryCharge.Equal(decimal.NewFromInt(50)) || got.IsFree {
		t.Fatalf("charge = %+v", got)
	}
	if _, err := svc.Calculate(ctx, 404, decimal.NewFromInt(1)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown area err = %v", err)
	}
	if _, err := svc.Calculate(ctx, a.ID, decimal.NewFromInt(-1)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative subtotal err = %v", err)
	}
}

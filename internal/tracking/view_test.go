package tracking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/repository"
	"dinepos/m/internal/testutil"
)

func TestViewAndSearch(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	cashier := testutil.CreateUser(t, db, "c@example.com", domain.RoleCashier)
	p := testutil.CreateProduct(t, db, "Curry", "9")
	area := testutil.CreateArea(t, db, "Harbour", "4")
	rider := testutil.CreateRider(t, db, domain.Rider{Name: "Mo", Phone: "0300", PayoutType: domain.PayoutPerKm})

	now := time.Date(2024, 2, 2, 18, 0, 0, 0, time.UTC)
	s := domain.Session{CashierID: cashier.ID, OpenedAt: now}
	if err := repository.NewSessions(db).Open(ctx, &s); err != nil {
		t.Fatal(err)
	}
	cooking := now.Add(2 * time.Minute)
	o := domain.Order{
		OrderNumber: "ORD-20240202-0001", SessionID: &s.ID, CashierID: &cashier.ID, CustomerPhone: "+1 (555) 010-0123",
		OrderType: domain.OrderTypeDelivery, Status: domain.StatusCooking,
		PaymentType: domain.PaymentCOD, PaymentStatus: domain.PaymentCODPending,
		Subtotal: decimal.NewFromInt(9), GrandTotal: decimal.NewFromInt(59), DeliveryCharge: decimal.NewFromInt(50),
		TrackingToken: "00112233445566778899aabbccddeeff", RiderID: &rider.ID, AreaID: &area.ID,
		CreatedAt: now, CookingStartedAt: &cooking,
		Items: []domain.OrderItem{{ProductID: p.ID, ProductName: p.Name, Quantity: 1, UnitPrice: p.SellingPrice, LineTotal: p.SellingPrice}},
	}
	if err := repository.NewOrders(db).Insert(ctx, &o); err != nil {
		t.Fatal(err)
	}

	clock := fixedClock{cooking.Add(5 * time.Minute)}
	svc := NewService(db, "https://pos.example.com/track/", nil).WithClock(clock)

	v, err := svc.View(ctx, strings.ToUpper(o.TrackingToken))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Success || v.Number != 2 || v.Label != "Preparing" {
		t.Fatalf("view = %+v", v)
	}
	if v.Order.RiderName != "Mo" || v.Order.RiderPhone != "0300" || v.Order.LocationName != "Harbour" {
		t.Fatalf("order = %+v", v.Order)
	}
	if v.Order.CashierID != nil || v.Order.SessionID != nil {
		t.Fatal("staff fields leaked into the public view")
	}
	if v.Countdown == nil || v.Countdown.Display != "15:00 remaining" {
		t.Fatalf("countdown = %+v", v.Countdown)
	}
	if v.ServerUTCMs != clock.t.UnixMilli() {
		t.Fatalf("server time = %d", v.ServerUTCMs)
	}

	if _, err := svc.View(ctx, "xyz"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("malformed err = %v", err)
	}
	if _, err := svc.View(ctx, strings.Repeat("f", 32)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown err = %v", err)
	}

	res, err := svc.Search(ctx, "ord-20240202-0001", "0123")
	if err != nil {
		t.Fatal(err)
	}
	if res.TrackingURL != "https://pos.example.com/track/"+o.TrackingToken || res.OrderNumber != o.OrderNumber {
		t.Fatalf("search = %+v", res)
	}
	if res, err := svc.Search(ctx, o.TrackingToken, ""); err != nil || res.OrderNumber != o.OrderNumber {
		t.Fatalf("search by token = %+v, %v", res, err)
	}
	if _, err := svc.Search(ctx, o.OrderNumber, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("search without phone err = %v", err)
	}
	if _, err := svc.Search(ctx, o.OrderNumber, "12"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short phone err = %v", err)
	}
	if _, err := svc.Search(ctx, o.OrderNumber, "9999"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong phone err = %v", err)
	}
	if _, err := svc.Search(ctx, "ORD-19990101-0001", "0123"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("search unknown err = %v", err)
	}
}

package kds

import (
	"testing"
	"time"

	"dinepos/m/domain"
)

func TestBuildCards(t *testing.T) {
	now := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{ID: 1, Status: domain.StatusPending, OrderType: domain.OrderTypeDineIn, CreatedAt: now.Add(-16 * time.Minute)},
		{ID: 2, Status: domain.StatusCooking, OrderType: domain.OrderTypeDineIn, CreatedAt: now.Add(-15 * time.Minute)},
		{ID: 3, Status: domain.StatusReady, OrderType: domain.OrderTypeDelivery, CreatedAt: now.Add(-time.Minute)},
		{ID: 4, Status: domain.StatusCompleted, OrderType: domain.OrderTypeDineIn, CreatedAt: now},
	}
	cards := BuildCards(orders, now, 0)
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}
	if !cards[0].Urgent || cards[1].Urgent {
		t.Fatalf("urgency: 16m=%v 15m=%v", cards[0].Urgent, cards[1].Urgent)
	}
	if cards[0].Column != ColumnNew || cards[0].Action.To != domain.StatusCooking {
		t.Fatalf("new card = %+v", cards[0])
	}
	if cards[1].Action.Label != "Mark ready" {
		t.Fatalf("cooking action = %+v", cards[1].Action)
	}
	if cards[2].Action.Label != "Dispatch" || cards[2].ElapsedSeconds != 60 {
		t.Fatalf("ready delivery card = %+v", cards[2])
	}
}

func TestCardsNeverOfferBackwardActions(t *testing.T) {
	rank := map[domain.OrderStatus]int{
		domain.StatusPending: 0, domain.StatusConfirmed: 0, domain.StatusCooking: 1, domain.StatusReady: 2,
		domain.StatusCompleted: 3, domain.StatusDispatched: 3,
	}
	for _, ot := range []domain.OrderType{domain.OrderTypeDineIn, domain.OrderTypeDelivery} {
		for _, st := range []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed, domain.StatusCooking, domain.StatusReady} {
			cards := BuildCards([]domain.Order{{Status: st, OrderType: ot}}, time.Now(), time.Hour)
			a := cards[0].Action
			if a == nil || rank[a.To] != rank[st]+1 {
				t.Errorf("%s %s offers %+v", ot, st, a)
			}
		}
	}
}

// Package kds builds the kitchen display: cards for active orders, their
// urgency and the one forward action each offers.
package kds

import (
	"time"

	"dinepos/m/domain"
)

const DefaultUrgentAfter = 15 * time.Minute

type Column string

const (
	ColumnNew     Column = "new"
	ColumnCooking Column = "cooking"
	ColumnReady   Column = "ready"
)

type Card struct {
	Order          domain.Order          `json:"order"`
	Column         Column                `json:"column"`
	ElapsedSeconds int64                 `json:"elapsed_seconds"`
	Urgent         bool                  `json:"urgent"`
	Action         *domain.KitchenAction `json:"action,omitempty"`
}

// ColumnFor places an order on the board, or returns false when it has left
// the kitchen.
func ColumnFor(s domain.OrderStatus) (Column, bool) {
	switch s {
	case domain.StatusPending, domain.StatusConfirmed:
		return ColumnNew, true
	case domain.StatusCooking:
		return ColumnCooking, true
	case domain.StatusReady:
		return ColumnReady, true
	case domain.StatusDispatched, domain.StatusDelivered, domain.StatusCompleted,
		domain.StatusCancelled, domain.StatusReplacement:
		return "", false
	}
	return "", false
}

// Urgent reports whether the order has waited longer than after since it was
// placed. Urgency is display only.
func Urgent(o domain.Order, now time.Time, after time.Duration) bool {
	return now.Sub(o.CreatedAt) > after
}

// BuildCards turns active orders into cards, skipping anything not in the
// kitchen, in the order given.
func BuildCards(orders []domain.Order, now time.Time, urgentAfter time.Duration) []Card {
	if urgentAfter <= 0 {
		urgentAfter = DefaultUrgentAfter
	}
	cards := make([]Card, 0, len(orders))
	for _, o := range orders {
		col, ok := ColumnFor(o.Status)
		if !ok {
			continue
		}
		elapsed := now.Sub(o.CreatedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		c := Card{
			Order:          o,
			Column:         col,
			ElapsedSeconds: int64(elapsed / time.Second),
			Urgent:         Urgent(o, now, urgentAfter),
		}
		if action, ok := domain.NextKitchenAction(o); ok {
			c.Action = &action
		}
		cards = append(cards, c)
	}
	return cards
}

// Package pos holds the cashier terminal: the cart, checkout validation and
// the shift flow around it.
package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
)

type Line struct {
	Product  domain.Product `json:"product"`
	Quantity int64          `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return domain.Money(l.Product.SellingPrice.Mul(decimal.NewFromInt(l.Quantity)))
}

// Cart is an in-memory list of lines owned by one terminal.
type Cart struct {
	lines []Line
}

// AddItem increments the line for the product or appends one with quantity 1.
func (c *Cart) AddItem(p domain.Product) {
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// RemoveOrDecrement lowers the quantity of a line, removing it below 1.
func (c *Cart) RemoveOrDecrement(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("cart has no line %d", index)
	}
	c.lines[index].Quantity--
	if c.lines[index].Quantity < 1 {
		c.lines = append(c.lines[:index], c.lines[index+1:]...)
	}
	return nil
}

// SetQuantity overwrites a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(index int, qty int64) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("cart has no line %d", index)
	}
	if qty <= 0 {
		c.lines = append(c.lines[:index], c.lines[index+1:]...)
		return nil
	}
	c.lines[index].Quantity = qty
	return nil
}

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

func (c *Cart) Lines() []Line { return append([]Line(nil), c.lines...) }

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return domain.Money(sum)
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total"`
}

// Totals computes subtotal - discount + delivery charge. The result is not
// clamped; checkout rejects discounts above the subtotal.
func (c *Cart) Totals(discount, deliveryCharge decimal.Decimal) Totals {
	sub := c.Subtotal()
	return Totals{
		Subtotal:       sub,
		Discount:       domain.Money(discount),
		DeliveryCharge: domain.Money(deliveryCharge),
		Total:          domain.Money(sub.Sub(discount).Add(deliveryCharge)),
	}
}

// ChangeDue is the change to hand back, never negative.
func ChangeDue(cashReceived, total decimal.Decimal) decimal.Decimal {
	if cashReceived.LessThan(total) {
		return decimal.Zero
	}
	return domain.Money(cashReceived.Sub(total))
}

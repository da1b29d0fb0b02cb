// Package wire holds the JSON request and response bodies shared by the HTTP
// API and its Go client.
package wire

import (
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type RegisterRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type ResetPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// OrderItem is a cart line as submitted. Prices are informational; the
// server snapshots its own.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Delivery struct {
	AreaID        int64  `json:"area_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Address       string `json:"address"`
}

type CreateOrderRequest struct {
	Subtotal            *decimal.Decimal   `json:"subtotal,omitempty"`
	Discount            decimal.Decimal    `json:"discount"`
	DeliveryCharge      *decimal.Decimal   `json:"delivery_charge,omitempty"`
	Total               *decimal.Decimal   `json:"total,omitempty"`
	CashReceived        decimal.Decimal    `json:"cash_received"`
	ChangeDue           decimal.Decimal    `json:"change_due"`
	Status              domain.OrderStatus `json:"status,omitempty"`
	OrderType           domain.OrderType   `json:"order_type"`
	PaymentType         domain.PaymentType `json:"payment_type,omitempty"`
	SpecialInstructions string             `json:"special_instructions"`
	Items               []OrderItem        `json:"items"`
	Delivery            *Delivery          `json:"delivery,omitempty"`
}

type StatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type PaymentRequest struct {
	Method domain.PaymentType `json:"method"`
}

type OpenSessionRequest struct {
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Notes       string          `json:"notes"`
}

type CloseSessionRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
	Notes       string          `json:"notes"`
	Confirm     bool            `json:"confirm"`
}

type ExpenseRequest struct {
	SessionID   int64                  `json:"session_id"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    domain.ExpenseCategory `json:"category"`
	RiderID     *int64                 `json:"rider_id,omitempty"`
	Description string                 `json:"description"`
}

type AssignRiderRequest struct {
	OrderID int64 `json:"order_id"`
	RiderID int64 `json:"rider_id"`
}

type DeliveryChargeRequest struct {
	AreaID   int64           `json:"area_id"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending     OrderStatus = "pending"
	StatusConfirmed   OrderStatus = "confirmed"
	StatusCooking     OrderStatus = "cooking"
	StatusReady       OrderStatus = "ready"
	StatusDispatched  OrderStatus = "dispatched"
	StatusDelivered   OrderStatus = "delivered"
	StatusCompleted   OrderStatus = "completed"
	StatusCancelled   OrderStatus = "cancelled"
	StatusReplacement OrderStatus = "replacement"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCooking, StatusReady, StatusDispatched,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusReplacement:
		return true
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	return parseEnum[OrderStatus]("order status", s)
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error { return unmarshalEnum("order status", b, s) }
func (s *OrderStatus) Scan(src any) error           { return scanEnum("order status", src, s) }
func (s OrderStatus) Value() (driver.Value, error)  { return string(s), nil }

// Active reports whether the order is still moving through the kitchen.
func (s OrderStatus) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCooking, StatusReady:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusReplacement
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

func ParseOrderType(s string) (OrderType, error) { return parseEnum[OrderType]("order type", s) }

func (t *OrderType) UnmarshalJSON(b []byte) error { return unmarshalEnum("order type", b, t) }
func (t *OrderType) Scan(src any) error           { return scanEnum("order type", src, t) }
func (t OrderType) Value() (driver.Value, error)  { return string(t), nil }

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentCOD    PaymentType = "cod"
	PaymentOnline PaymentType = "online"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentCOD, PaymentOnline:
		return true
	}
	return false
}

func ParsePaymentType(s string) (PaymentType, error) {
	return parseEnum[PaymentType]("payment type", s)
}

func (p *PaymentType) UnmarshalJSON(b []byte) error { return unmarshalEnum("payment type", b, p) }
func (p *PaymentType) Scan(src any) error           { return scanEnum("payment type", src, p) }
func (p PaymentType) Value() (driver.Value, error)  { return string(p), nil }

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "unpaid"
	PaymentPaid        PaymentStatus = "paid"
	PaymentCODPending  PaymentStatus = "cod_pending"
	PaymentCODReceived PaymentStatus = "cod_received"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentCODPending, PaymentCODReceived:
		return true
	}
	return false
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parseEnum[PaymentStatus]("payment status", s)
}

func (p *PaymentStatus) UnmarshalJSON(b []byte) error { return unmarshalEnum("payment status", b, p) }
func (p *PaymentStatus) Scan(src any) error           { return scanEnum("payment status", src, p) }
func (p PaymentStatus) Value() (driver.Value, error)  { return string(p), nil }

// OrderItem is a line of an order. Prices are a snapshot taken at checkout.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

type Order struct {
	ID                  int64           `db:"id" json:"id"`
	OrderNumber         string          `db:"order_number" json:"order_number"`
	SessionID           *int64          `db:"session_id" json:"session_id,omitempty"`
	CashierID           *int64          `db:"cashier_id" json:"cashier_id,omitempty"`
	OrderType           OrderType       `db:"order_type" json:"order_type"`
	Status              OrderStatus     `db:"status" json:"status"`
	PaymentType         PaymentType     `db:"payment_type" json:"payment_type"`
	PaymentStatus       PaymentStatus   `db:"payment_status" json:"payment_status"`
	Subtotal            decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount            decimal.Decimal `db:"discount" json:"discount"`
	DeliveryCharge      decimal.Decimal `db:"delivery_charge" json:"delivery_charge"`
	GrandTotal          decimal.Decimal `db:"grand_total" json:"grand_total"`
	CashReceived        decimal.Decimal `db:"cash_received" json:"cash_received"`
	ChangeDue           decimal.Decimal `db:"change_due" json:"change_due"`
	SpecialInstructions string          `db:"special_instructions" json:"special_instructions"`
	TrackingToken       string          `db:"tracking_token" json:"tracking_token,omitempty"`
	RiderID             *int64          `db:"rider_id" json:"rider_id,omitempty"`
	AreaID              *int64          `db:"area_id" json:"area_id,omitempty"`
	CustomerName        string          `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone       string          `db:"customer_phone" json:"customer_phone,omitempty"`
	DeliveryAddress     string          `db:"delivery_address" json:"delivery_address,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt         *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CookingStartedAt    *time.Time      `db:"cooking_started_at" json:"cooking_started_at,omitempty"`
	ReadyAt             *time.Time      `db:"ready_at" json:"ready_at,omitempty"`
	DispatchedAt        *time.Time      `db:"dispatched_at" json:"dispatched_at,omitempty"`
	DeliveredAt         *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CompletedAt         *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt         *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	AssignedAt          *time.Time      `db:"assigned_at" json:"assigned_at,omitempty"`
	Items               []OrderItem     `db:"-" json:"items"`
}

// IsDelivery reports whether the order goes out with a rider.
func (o Order) IsDelivery() bool { return o.OrderType == OrderTypeDelivery }

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:     {StatusConfirmed, StatusCooking, StatusCancelled},
	StatusConfirmed:   {StatusCooking, StatusCancelled},
	StatusCooking:     {StatusReady, StatusCancelled},
	StatusReady:       {StatusCompleted, StatusDispatched, StatusCancelled, StatusReplacement},
	StatusDispatched:  {StatusDelivered, StatusReplacement},
	StatusDelivered:   {StatusReplacement},
	StatusCompleted:   {StatusReplacement},
	StatusCancelled:   nil,
	StatusReplacement: nil,
}

// CheckTransition validates moving o to the given status. Transitions only go
// forward and never skip a kitchen phase.
func CheckTransition(o Order, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidEnum, to)
	}
	allowed := false
	for _, next := range transitions[o.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	switch to {
	case StatusCompleted:
		if o.IsDelivery() {
			return fmt.Errorf("%w: delivery orders are dispatched, not completed", ErrInvalidTransition)
		}
	case StatusDispatched:
		if !o.IsDelivery() {
			return fmt.Errorf("%w: only delivery orders can be dispatched", ErrInvalidTransition)
		}
		if o.RiderID == nil {
			return ErrRiderRequired
		}
	}
	return nil
}

// KitchenAction is the single forward action a kitchen card offers.
type KitchenAction struct {
	Label string      `json:"label"`
	To    OrderStatus `json:"to"`
}

// NextKitchenAction returns the forward action for an order on the kitchen
// display, or false when the order has left the kitchen.
func NextKitchenAction(o Order) (KitchenAction, bool) {
	switch o.Status {
	case StatusPending, StatusConfirmed:
		return KitchenAction{Label: "Start cooking", To: StatusCooking}, true
	case StatusCooking:
		return KitchenAction{Label: "Mark ready", To: StatusReady}, true
	case StatusReady:
		if o.IsDelivery() {
			return KitchenAction{Label: "Dispatch", To: StatusDispatched}, true
		}
		return KitchenAction{Label: "Complete", To: StatusCompleted}, true
	case StatusDispatched, StatusDelivered, StatusCompleted, StatusCancelled, StatusReplacement:
		return KitchenAction{}, false
	}
	return KitchenAction{}, false
}

// TimestampColumn names the column stamped when an order enters status s.
func TimestampColumn(s OrderStatus) string {
	switch s {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusCooking:
		return "cooking_started_at"
	case StatusReady:
		return "ready_at"
	case StatusDispatched:
		return "dispatched_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusPending, StatusReplacement:
		return ""
	}
	return ""
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	ID        int64       `db:"id" json:"id"`
	OrderID   int64       `db:"order_id" json:"order_id"`
	From      OrderStatus `db:"from_status" json:"from"`
	To        OrderStatus `db:"to_status" json:"to"`
	ChangedBy *int64      `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt time.Time   `db:"changed_at" json:"changed_at"`
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dinepos/m/domain"
)

const orderColumns = `id, order_number, session_id, cashier_id, order_type, status, payment_type, payment_status,
	subtotal, discount, delivery_charge, grand_total, cash_received, change_due, special_instructions,
	tracking_token, rider_id, area_id, customer_name, customer_phone, delivery_address, created_at,
	confirmed_at, cooking_started_at, ready_at, dispatched_at, delivered_at, completed_at, cancelled_at, assigned_at`

type Orders struct {
	db DB
}

func NewOrders(db DB) *Orders { return &Orders{db: db} }

// Insert stores the order and its items and fills in the generated ids.
func (r *Orders) Insert(ctx context.Context, o *domain.Order) error {
	id, err := insert(ctx, r.db, `INSERT INTO orders (order_number, session_id, cashier_id, order_type, status,
		payment_type, payment_status, subtotal, discount, delivery_charge, grand_total, cash_received, change_due,
		special_instructions, tracking_token, rider_id, area_id, customer_name, customer_phone, delivery_address,
		created_at, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.SessionID, o.CashierID, o.OrderType, o.Status,
		o.PaymentType, o.PaymentStatus, o.Subtotal, o.Discount, o.DeliveryCharge, o.GrandTotal, o.CashReceived, o.ChangeDue,
		o.SpecialInstructions, o.TrackingToken, o.RiderID, o.AreaID, o.CustomerName, o.CustomerPhone, o.DeliveryAddress,
		o.CreatedAt, o.ConfirmedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: duplicate order number or tracking token", domain.ErrConflict)
		}
		return err
	}
	o.ID = id

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = id
		itemID, err := insert(ctx, r.db, `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", item.ProductID, err)
		}
		item.ID = itemID
	}
	return nil
}

// NextForDay claims the next order sequence number for the day prefix. The
// row lock taken by the upsert serialises concurrent checkouts. A day's
// first claim starts after any orders already numbered with that prefix.
func (r *Orders) NextForDay(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := get(ctx, r.db, &n, `INSERT INTO order_sequences (day, seq)
		VALUES (?, (SELECT COUNT(*) FROM orders WHERE order_number LIKE ?) + 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_sequences.seq + 1
		RETURNING seq`, prefix, prefix+"%")
	return n, err
}

func (r *Orders) Get(ctx context.Context, id int64) (domain.Order, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *Orders) ByTrackingToken(ctx context.Context, token string) (domain.Order, error) {
	return r.getOne(ctx, `WHERE tracking_token = ?`, strings.ToLower(token))
}

func (r *Orders) ByNumber(ctx context.Context, number string) (domain.Order, error) {
	return r.getOne(ctx, `WHERE order_number = ?`, strings.ToUpper(strings.TrimSpace(number)))
}

func (r *Orders) getOne(ctx context.Context, where string, args ...any) (domain.Order, error) {
	var o domain.Order
	if err := get(ctx, r.db, &o, `SELECT `+orderColumns+` FROM orders `+where, args...); err != nil {
		return domain.Order{}, err
	}
	orders := []domain.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

type OrderFilter struct {
	Statuses  []domain.OrderStatus
	SessionID *int64
	Limit     int
	// Oldest first when true, newest first otherwise.
	Ascending bool
}

// List returns orders with their items loaded in a single extra query.
func (r *Orders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	var (
		clauses []string
		args    []any
	)
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "status IN (?)")
		args = append(args, f.Statuses)
	}
	if f.SessionID != nil {
		clauses = append(clauses, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if f.Ascending {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if len(f.Statuses) > 0 {
		var err error
		if query, args, err = sqlx.In(query, args...); err != nil {
			return nil, err
		}
	}

	orders := []domain.Order{}
	if err := list(ctx, r.db, &orders, query, args...); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Orders) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderItem{}
	}
	query, args, err := sqlx.In(`SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
		FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	var items []domain.OrderItem
	if err := list(ctx, r.db, &items, query, args...); err != nil {
		return err
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// UpdateStatus moves an order from one status to another only if it is still
// in the expected status. It returns ErrConflict when another writer won.
func (r *Orders) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, at time.Time) error {
	set := "status = ?"
	args := []any{to}
	if col := domain.TimestampColumn(to); col != "" {
		set += ", " + col + " = ?"
		args = append(args, at)
	}
	args = append(args, id, from)
	n, err := exec(ctx, r.db, `UPDATE orders SET `+set+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", domain.ErrConflict, id, from)
	}
	return nil
}

// UpdatePayment changes payment type and status if the payment status is still
// the expected one.
func (r *Orders) UpdatePayment(ctx context.Context, id int64, from domain.PaymentStatus, pt domain.PaymentType, ps domain.PaymentStatus) error {
	n, err := exec(ctx, r.db, `UPDATE orders SET payment_type = ?, payment_status = ? WHERE id = ? AND payment_status = ?`,
		pt, ps, id, from)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: payment of order %d is no longer %s", domain.ErrConflict, id, from)
	}
	return nil
}

// AssignRider sets the rider while the order is still in the expected status.
func (r *Orders) AssignRider(ctx context.Context, id, riderID int64, status domain.OrderStatus, at time.Time) error {
	n, err := exec(ctx, r.db, `UPDATE orders SET rider_id = ?, assigned_at = ? WHERE id = ? AND status = ?`,
		riderID, at, id, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d changed while assigning rider", domain.ErrConflict, id)
	}
	return nil
}

func (r *Orders) LogStatus(ctx context.Context, c *domain.StatusChange) error {
	id, err := insert(ctx, r.db, `INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?)`, c.OrderID, c.From, c.To, c.ChangedBy, c.ChangedAt)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *Orders) History(ctx context.Context, orderID int64) ([]domain.StatusChange, error) {
	out := []domain.StatusChange{}
	err := list(ctx, r.db, &out, `SELECT id, order_id, from_status, to_status, changed_by, changed_at
		FROM order_status_log WHERE order_id = ? ORDER BY id`, orderID)
	return out, err
}

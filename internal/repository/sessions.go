package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
)

const sessionColumns = `id, cashier_id, opening_cash, closing_cash, expected_cash, discrepancy,
	opening_notes, closing_notes, opened_at, closed_at, status`

type Sessions struct {
	db DB
}

func NewSessions(db DB) *Sessions { return &Sessions{db: db} }

// Open inserts an open session. The partial unique index on open sessions
// turns a second open shift for the same cashier into ErrSessionAlreadyOpen.
func (r *Sessions) Open(ctx context.Context, s *domain.Session) error {
	id, err := insert(ctx, r.db, `INSERT INTO sessions (cashier_id, opening_cash, opening_notes, opened_at, status)
		VALUES (?, ?, ?, ?, ?)`, s.CashierID, s.OpeningCash, s.OpeningNotes, s.OpenedAt, domain.SessionOpen)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionAlreadyOpen
		}
		return err
	}
	s.ID = id
	s.Status = domain.SessionOpen
	return nil
}

func (r *Sessions) Get(ctx context.Context, id int64) (domain.Session, error) {
	var s domain.Session
	err := get(ctx, r.db, &s, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return s, err
}

// Current returns the cashier's open session or ErrNoActiveSession.
func (r *Sessions) Current(ctx context.Context, cashierID int64) (domain.Session, error) {
	var s domain.Session
	err := get(ctx, r.db, &s, `SELECT `+sessionColumns+` FROM sessions WHERE cashier_id = ? AND status = ?`,
		cashierID, domain.SessionOpen)
	if err == domain.ErrNotFound {
		return s, domain.ErrNoActiveSession
	}
	return s, err
}

// Close stores the reconciliation figures if the session is still open.
func (r *Sessions) Close(ctx context.Context, id int64, closing, expected, discrepancy decimal.Decimal, notes string, at time.Time) error {
	n, err := exec(ctx, r.db, `UPDATE sessions SET closing_cash = ?, expected_cash = ?, discrepancy = ?,
		closing_notes = ?, closed_at = ?, status = ? WHERE id = ? AND status = ?`,
		closing, expected, discrepancy, notes, at, domain.SessionClosed, id, domain.SessionOpen)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionClosed
	}
	return nil
}

type orderSums struct {
	CashSales      decimal.Decimal `db:"cash_sales"`
	CODCollected   decimal.Decimal `db:"cod_collected"`
	CODPending     decimal.Decimal `db:"cod_pending"`
	OnlinePayments decimal.Decimal `db:"online_payments"`
	OrderCount     int64           `db:"order_count"`
}

// Totals aggregates the session's orders and expenses. Cancelled orders never
// count towards the drawer.
func (r *Sessions) Totals(ctx context.Context, s domain.Session) (domain.SessionTotals, error) {
	var sums orderSums
	err := get(ctx, r.db, &sums, `SELECT
		COALESCE(SUM(CASE WHEN payment_type = 'cash' AND payment_status = 'paid' THEN grand_total ELSE 0 END), 0) AS cash_sales,
		COALESCE(SUM(CASE WHEN payment_type = 'cod' AND payment_status = 'cod_received' THEN grand_total ELSE 0 END), 0) AS cod_collected,
		COALESCE(SUM(CASE WHEN payment_type = 'cod' AND payment_status = 'cod_pending' THEN grand_total ELSE 0 END), 0) AS cod_pending,
		COALESCE(SUM(CASE WHEN payment_type = 'online' AND payment_status = 'paid' THEN grand_total ELSE 0 END), 0) AS online_payments,
		COUNT(*) AS order_count
		FROM orders WHERE session_id = ? AND status <> ?`, s.ID, domain.StatusCancelled)
	if err != nil {
		return domain.SessionTotals{}, err
	}

	var expenses decimal.Decimal
	if err := get(ctx, r.db, &expenses, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE session_id = ?`, s.ID); err != nil {
		return domain.SessionTotals{}, err
	}

	t := domain.SessionTotals{
		SessionID:      s.ID,
		OpeningCash:    domain.Money(s.OpeningCash),
		CashSales:      domain.Money(sums.CashSales),
		CODCollected:   domain.Money(sums.CODCollected),
		CODPending:     domain.Money(sums.CODPending),
		OnlinePayments: domain.Money(sums.OnlinePayments),
		Expenses:       domain.Money(expenses),
		OrderCount:     sums.OrderCount,
	}
	t.ExpectedCash = domain.ExpectedCash(t.OpeningCash, t.CashSales, t.CODCollected, t.Expenses)
	return t, nil
}

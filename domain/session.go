package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

func (s SessionStatus) Valid() bool { return s == SessionOpen || s == SessionClosed }

func (s *SessionStatus) UnmarshalJSON(b []byte) error { return unmarshalEnum("session status", b, s) }
func (s *SessionStatus) Scan(src any) error           { return scanEnum("session status", src, s) }
func (s SessionStatus) Value() (driver.Value, error)  { return string(s), nil }

// Session is a cashier shift bracketed by an opening and a closing cash count.
type Session struct {
	ID           int64               `db:"id" json:"id"`
	CashierID    int64               `db:"cashier_id" json:"cashier_id"`
	OpeningCash  decimal.Decimal     `db:"opening_cash" json:"opening_cash"`
	ClosingCash  decimal.NullDecimal `db:"closing_cash" json:"closing_cash"`
	ExpectedCash decimal.NullDecimal `db:"expected_cash" json:"expected_cash"`
	Discrepancy  decimal.NullDecimal `db:"discrepancy" json:"discrepancy"`
	OpeningNotes string              `db:"opening_notes" json:"opening_notes"`
	ClosingNotes string              `db:"closing_notes" json:"closing_notes"`
	OpenedAt     time.Time           `db:"opened_at" json:"opened_at"`
	ClosedAt     *time.Time          `db:"closed_at" json:"closed_at,omitempty"`
	Status       SessionStatus       `db:"status" json:"status"`
}

// SessionTotals aggregates the sales figures of one shift.
type SessionTotals struct {
	SessionID      int64           `json:"session_id"`
	OpeningCash    decimal.Decimal `json:"opening_cash"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CODCollected   decimal.Decimal `json:"cod_collected"`
	CODPending     decimal.Decimal `json:"cod_pending"`
	OnlinePayments decimal.Decimal `json:"online_payments"`
	Expenses       decimal.Decimal `json:"expenses"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	OrderCount     int64           `json:"order_count"`
}

// ExpectedCash is the cash that should be in the drawer. Online payments never
// touch the drawer and are left out.
func ExpectedCash(opening, cashSales, codCollected, expenses decimal.Decimal) decimal.Decimal {
	return Money(opening.Add(cashSales).Add(codCollected).Sub(expenses))
}

type DiscrepancyKind string

const (
	DiscrepancyOverage  DiscrepancyKind = "Overage"
	DiscrepancyShortage DiscrepancyKind = "Shortage"
	DiscrepancyExact    DiscrepancyKind = "Exact"
)

// Discrepancy is the difference between counted and expected cash at close.
type Discrepancy struct {
	Amount decimal.Decimal `json:"amount"`
	Kind   DiscrepancyKind `json:"kind"`
	Label  string          `json:"label"`
}

func ClassifyDiscrepancy(closing, expected decimal.Decimal) Discrepancy {
	diff := Money(closing.Sub(expected))
	d := Discrepancy{Amount: diff}
	switch diff.Sign() {
	case 1:
		d.Kind = DiscrepancyOverage
		d.Label = fmt.Sprintf("+%s (%s)", diff.StringFixed(2), d.Kind)
	case -1:
		d.Kind = DiscrepancyShortage
		d.Label = fmt.Sprintf("%s (%s)", diff.StringFixed(2), d.Kind)
	default:
		d.Kind = DiscrepancyExact
		d.Label = fmt.Sprintf("%s (%s)", decimal.Zero.StringFixed(2), d.Kind)
	}
	return d
}

type ExpenseCategory string

const (
	ExpenseSupplies    ExpenseCategory = "supplies"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseFood        ExpenseCategory = "food"
	ExpenseRiderPayout ExpenseCategory = "rider_payout"
	ExpenseOther       ExpenseCategory = "other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseSupplies, ExpenseUtilities, ExpenseMaintenance, ExpenseFood, ExpenseRiderPayout, ExpenseOther:
		return true
	}
	return false
}

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	return parseEnum[ExpenseCategory]("expense category", s)
}

func (c *ExpenseCategory) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("expense category", b, c)
}
func (c *ExpenseCategory) Scan(src any) error          { return scanEnum("expense category", src, c) }
func (c ExpenseCategory) Value() (driver.Value, error) { return string(c), nil }

// Expense is money paid out of the drawer during a shift. Expenses are append-only.
type Expense struct {
	ID          int64           `db:"id" json:"id"`
	SessionID   int64           `db:"session_id" json:"session_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Category    ExpenseCategory `db:"category" json:"category"`
	RiderID     *int64          `db:"rider_id" json:"rider_id,omitempty"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// CloseResult is what the cashier sees after closing a shift.
type CloseResult struct {
	Session     Session       `json:"session"`
	Totals      SessionTotals `json:"totals"`
	Discrepancy Discrepancy   `json:"discrepancy"`
}

// Package shift manages cashier sessions, expenses and cash reconciliation.
package shift

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/logging"
	"dinepos/m/internal/metrics"
	"dinepos/m/internal/repository"
)

type Service struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(db *sqlx.DB, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		db:      db,
		metrics: m,
		logger:  logging.Component(logger, "shift"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Current returns the cashier's open session or ErrNoActiveSession.
func (s *Service) Current(ctx context.Context, cashierID int64) (domain.Session, error) {
	return repository.NewSessions(s.db).Current(ctx, cashierID)
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Session, error) {
	return repository.NewSessions(s.db).Get(ctx, id)
}

func (s *Service) Open(ctx context.Context, cashierID int64, openingCash decimal.Decimal, notes string) (domain.Session, error) {
	if openingCash.IsNegative() {
		return domain.Session{}, domain.Invalid("opening cash cannot be negative")
	}
	sess := domain.Session{
		CashierID:    cashierID,
		OpeningCash:  domain.Money(openingCash),
		OpeningNotes: strings.TrimSpace(notes),
		OpenedAt:     s.now(),
	}
	if err := repository.NewSessions(s.db).Open(ctx, &sess); err != nil {
		return domain.Session{}, err
	}
	s.logger.Info().
		Int64(logging.FieldSessionID, sess.ID).
		Int64("cashier_id", cashierID).
		Str("opening_cash", sess.OpeningCash.StringFixed(2)).
		Msg("shift opened")
	return sess, nil
}

func (s *Service) Totals(ctx context.Context, sessionID int64) (domain.SessionTotals, error) {
	sessions := repository.NewSessions(s.db)
	sess, err := sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionTotals{}, err
	}
	return sessions.Totals(ctx, sess)
}

// Close reconciles the counted cash against the expected cash and closes the
// session. It cannot be undone.
func (s *Service) Close(ctx context.Context, sessionID int64, closingCash decimal.Decimal, notes string) (domain.CloseResult, error) {
	if closingCash.IsNegative() {
		return domain.CloseResult{}, domain.Invalid("closing cash cannot be negative")
	}
	closing := domain.Money(closingCash)
	now := s.now()

	var res domain.CloseResult
	err := repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		sessions := repository.NewSessions(tx)
		sess, err := sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionOpen {
			return domain.ErrSessionClosed
		}
		totals, err := sessions.Totals(ctx, sess)
		if err != nil {
			return err
		}
		disc := domain.ClassifyDiscrepancy(closing, totals.ExpectedCash)
		if err := sessions.Close(ctx, sessionID, closing, totals.ExpectedCash, disc.Amount, strings.TrimSpace(notes), now); err != nil {
			return err
		}
		if sess, err = sessions.Get(ctx, sessionID); err != nil {
			return err
		}
		res = domain.CloseResult{Session: sess, Totals: totals, Discrepancy: disc}
		return nil
	})
	if err != nil {
		return domain.CloseResult{}, err
	}

	s.metrics.ShiftsClosed.WithLabelValues(string(res.Discrepancy.Kind)).Inc()
	s.logger.Info().
		Int64(logging.FieldSessionID, sessionID).
		Str("expected_cash", res.Totals.ExpectedCash.StringFixed(2)).
		Str("closing_cash", closing.StringFixed(2)).
		Str("discrepancy", res.Discrepancy.Label).
		Msg("shift closed")
	return res, nil
}

type ExpenseInput struct {
	SessionID   int64
	Amount      decimal.Decimal
	Category    domain.ExpenseCategory
	RiderID     *int64
	Description string
}

// AddExpense records money paid out of an open session's drawer.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (domain.Expense, error) {
	if !in.Amount.IsPositive() {
		return domain.Expense{}, domain.Invalid("expense amount must be greater than zero")
	}
	if in.Category == "" {
		return domain.Expense{}, domain.Invalid("expense category is required")
	}
	if in.Category == domain.ExpenseRiderPayout && in.RiderID == nil {
		return domain.Expense{}, domain.Invalid("rider payouts need a rider")
	}

	e := domain.Expense{
		SessionID:   in.SessionID,
		Amount:      domain.Money(in.Amount),
		Category:    in.Category,
		RiderID:     in.RiderID,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	}
	err := repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		sess, err := repository.NewSessions(tx).Get(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionOpen {
			return domain.ErrSessionClosed
		}
		if in.RiderID != nil {
			if _, err := repository.NewRiders(tx).Get(ctx, *in.RiderID); errors.Is(err, domain.ErrNotFound) {
				return domain.Invalid("rider %d does not exist", *in.RiderID)
			} else if err != nil {
				return err
			}
		}
		return repository.NewExpenses(tx).Insert(ctx, &e)
	})
	if err != nil {
		return domain.Expense{}, err
	}
	s.logger.Info().
		Int64(logging.FieldSessionID, e.SessionID).
		Str("category", string(e.Category)).
		Str("amount", e.Amount.StringFixed(2)).
		Msg("expense recorded")
	return e, nil
}

func (s *Service) Expenses(ctx context.Context, sessionID int64) ([]domain.Expense, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return repository.NewExpenses(s.db).BySession(ctx, sessionID)
}

// Orders lists the session's orders oldest first, for reports.
func (s *Service) Orders(ctx context.Context, sessionID int64) ([]domain.Order, error) {
	return repository.NewOrders(s.db).List(ctx, repository.OrderFilter{SessionID: &sessionID, Ascending: true})
}

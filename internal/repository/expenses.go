package repository

import (
	"context"

	"dinepos/m/domain"
)

type Expenses struct {
	db DB
}

func NewExpenses(db DB) *Expenses { return &Expenses{db: db} }

// Insert appends an expense. Expenses are never updated or deleted.
func (r *Expenses) Insert(ctx context.Context, e *domain.Expense) error {
	id, err := insert(ctx, r.db, `INSERT INTO expenses (session_id, amount, category, rider_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, e.SessionID, e.Amount, e.Category, e.RiderID, e.Description, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *Expenses) BySession(ctx context.Context, sessionID int64) ([]domain.Expense, error) {
	out := []domain.Expense{}
	err := list(ctx, r.db, &out, `SELECT id, session_id, amount, category, rider_id, description, created_at
		FROM expenses WHERE session_id = ? ORDER BY id`, sessionID)
	return out, err
}

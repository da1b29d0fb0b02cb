package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dinepos/m/domain"
)

const queryTimeout = 3 * time.Second

// DB is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside a caller's transaction.
type DB interface {
	sqlx.ExtContext
}

// InTx runs fn in a transaction, committing when it returns nil.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func get(ctx context.Context, db DB, dest any, query string, args ...any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	err := sqlx.GetContext(ctx, db, dest, db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func list(ctx context.Context, db DB, dest any, query string, args ...any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return sqlx.SelectContext(ctx, db, dest, db.Rebind(query), args...)
}

func exec(ctx context.Context, db DB, query string, args ...any) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an INSERT ... RETURNING id statement.
func insert(ctx context.Context, db DB, query string, args ...any) (int64, error) {
	var id int64
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := sqlx.GetContext(ctx, db, &id, db.Rebind(query+" RETURNING id"), args...); err != nil {
		return 0, err
	}
	return id, nil
}

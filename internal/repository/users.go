package repository

import (
	"context"
	"strings"
	"time"

	"dinepos/m/domain"
)

type Users struct {
	db DB
}

func NewUsers(db DB) *Users { return &Users{db: db} }

// Create stores a user whose password is already hashed.
func (r *Users) Create(ctx context.Context, u *domain.User) error {
	id, err := insert(ctx, r.db,
		`INSERT INTO users (username, email, password, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Username, strings.ToLower(u.Email), u.Password, u.Role, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	u.ID = id
	return nil
}

func (r *Users) ByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := get(ctx, r.db, &u, `SELECT id, username, email, password, role, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return u, err
}

func (r *Users) ByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := get(ctx, r.db, &u, `SELECT id, username, email, password, role, created_at FROM users WHERE id = ?`, id)
	return u, err
}

func (r *Users) UpdatePassword(ctx context.Context, id int64, hash string) error {
	n, err := exec(ctx, r.db, `UPDATE users SET password = ? WHERE id = ?`, hash, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

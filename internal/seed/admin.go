package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"dinepos/m/domain"
	"dinepos/m/internal/repository"
)

// EnsureAdmin creates the bootstrap manager account if no user with that email
// exists yet. Empty credentials disable the bootstrap.
func EnsureAdmin(ctx context.Context, db *sqlx.DB, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	users := repository.NewUsers(db)
	if _, err := users.ByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u := domain.User{
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
		Password: string(hash),
		Role:     domain.RoleManager,
	}
	if err := users.Create(ctx, &u); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("email", u.Email).Msg("bootstrap manager created")
	return nil
}

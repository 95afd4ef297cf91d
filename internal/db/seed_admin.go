package db

import (
	"context"
	"errors"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/security"
)

// AdminStore is the slice of the user repository needed for seeding.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

// EnsureAdminUser creates the configured admin account once. A no-op without credentials.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetByEmail(ctx, user.NormalizeEmail(cfg.AdminEmail))
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	u := user.New(cfg.AdminName, cfg.AdminEmail, hash, user.Role(cfg.AdminRole))

	err = store.Create(ctx, u)
	if errors.Is(err, user.ErrEmailTaken) {
		// another replica won the race
		return nil
	}
	return err
}

// Package service holds the user directory and the per-user movie list logic.
// Both resolve users through a UserStore and surface typed errors from
// package domain; neither logs.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_store.go -package=mocks

// UserStore is the document store holding users keyed by unique username.
// Implementations report a missing user with domain.ErrNotFound and a taken
// username or stale version with domain.ErrConflict.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
	Delete(ctx context.Context, username string) error
	DeleteAll(ctx context.Context) error
}

// Options tunes both services.
type Options struct {
	// Timeout bounds every store round trip of a single operation. Zero disables it.
	Timeout time.Duration
	// HashCost is the bcrypt cost for new passwords.
	HashCost int
}

func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// storeError keeps NotFound and Conflict as they are and files everything
// else under domain.ErrStorage.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

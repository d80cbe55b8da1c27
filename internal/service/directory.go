package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

// Registration is the input for a new account.
type Registration struct {
	Username string
	Password string
	Email    string
}

// Directory registers, authenticates, lists and deletes user accounts.
type Directory struct {
	store UserStore
	opts  Options
	newID func() string
	// dummyHash is compared against when the username is unknown, so a miss
	// costs the same as a wrong password.
	dummyHash []byte
}

// NewDirectory builds a Directory on top of store.
func NewDirectory(store UserStore, opts Options) (*Directory, error) {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("mymovielist-no-such-user"), opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hashing: %w", err)
	}
	return &Directory{
		store:     store,
		opts:      opts,
		newID:     uuid.NewString,
		dummyHash: dummy,
	}, nil
}

// Register stores a new user with an empty movie list. Username uniqueness is
// left to the store, which reports duplicates as domain.ErrConflict.
func (d *Directory) Register(ctx context.Context, reg Registration) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), d.opts.HashCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	user, err := d.store.Create(ctx, domain.User{
		ID:           d.newID(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		MovieEntries: []domain.MovieEntry{},
	})
	if err != nil {
		return domain.User{}, storeError("register user", err)
	}
	return user, nil
}

// Authenticate returns the user when username exists and password matches.
// An unknown username and a wrong password both yield ok=false with a nil
// error and are otherwise indistinguishable.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (user domain.User, ok bool, err error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	user, err = d.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
			return domain.User{}, false, nil
		}
		return domain.User{}, false, storeError("load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, false, nil
	}
	return user, true, nil
}

// Get returns the user with username.
func (d *Directory) Get(ctx context.Context, username string) (domain.User, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	user, err := d.store.GetByUsername(ctx, username)
	if err != nil {
		return domain.User{}, storeError("load user", err)
	}
	return user, nil
}

// FindByEmail returns the user registered with email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	user, err := d.store.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, storeError("load user by email", err)
	}
	return user, nil
}

// List returns every user, unfiltered.
func (d *Directory) List(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	users, err := d.store.List(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return users, nil
}

// Delete removes the user with username. Unknown usernames are ignored.
func (d *Directory) Delete(ctx context.Context, username string) error {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	if err := d.store.Delete(ctx, username); err != nil {
		return storeError("delete user", err)
	}
	return nil
}

// DeleteAll removes every user.
func (d *Directory) DeleteAll(ctx context.Context) error {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	if err := d.store.DeleteAll(ctx); err != nil {
		return storeError("delete all users", err)
	}
	return nil
}

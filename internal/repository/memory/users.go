// Package memory is a process-local user store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

// UsersRepository keeps users in a map keyed by username. Returned users never
// share memory with the stored copies.
type UsersRepository struct {
	sync.RWMutex
	data map[string]domain.User
	now  func() time.Time
}

// New returns an empty repository.
func New() *UsersRepository {
	return &UsersRepository{
		data: map[string]domain.User{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck always succeeds.
func (r *UsersRepository) HealthCheck(context.Context) error {
	return nil
}

// Create inserts a new user. A taken username yields domain.ErrConflict.
func (r *UsersRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.data[user.Username]; ok {
		return domain.User{}, fmt.Errorf("username %q: %w", user.Username, domain.ErrConflict)
	}
	now := r.now()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	user = clone(user)
	r.data[user.Username] = user
	return clone(user), nil
}

// GetByUsername fetches a user by its unique username.
func (r *UsersRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.RLock()
	defer r.RUnlock()
	user, ok := r.data[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return clone(user), nil
}

// GetByEmail fetches the oldest user registered with email.
func (r *UsersRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.RLock()
	defer r.RUnlock()
	for _, user := range r.sorted() {
		if user.Email == email {
			return clone(user), nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

// List returns every user ordered by registration time.
func (r *UsersRepository) List(_ context.Context) ([]domain.User, error) {
	r.RLock()
	defer r.RUnlock()
	users := r.sorted()
	for i := range users {
		users[i] = clone(users[i])
	}
	return users, nil
}

// Save replaces the stored user if its version is still current.
func (r *UsersRepository) Save(_ context.Context, user domain.User) (domain.User, error) {
	r.Lock()
	defer r.Unlock()
	current, ok := r.data[user.Username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if current.Version != user.Version {
		return domain.User{}, fmt.Errorf("user %q modified concurrently: %w", user.Username, domain.ErrConflict)
	}
	user.ID = current.ID
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.now()
	user.Version = current.Version + 1
	user = clone(user)
	r.data[user.Username] = user
	return clone(user), nil
}

// Delete removes the user with username; deleting an absent user is a no-op.
func (r *UsersRepository) Delete(_ context.Context, username string) error {
	r.Lock()
	defer r.Unlock()
	delete(r.data, username)
	return nil
}

// DeleteAll removes every user.
func (r *UsersRepository) DeleteAll(_ context.Context) error {
	r.Lock()
	defer r.Unlock()
	r.data = map[string]domain.User{}
	return nil
}

func (r *UsersRepository) sorted() []domain.User {
	users := make([]domain.User, 0, len(r.data))
	for _, user := range r.data {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Username < users[j].Username
	})
	return users
}

func clone(user domain.User) domain.User {
	entries := make([]domain.MovieEntry, len(user.MovieEntries))
	for i, entry := range user.MovieEntries {
		if entry.Score != nil {
			score := *entry.Score
			entry.Score = &score
		}
		entries[i] = entry
	}
	user.MovieEntries = entries
	return user
}

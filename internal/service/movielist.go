package service

import (
	"context"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

// DefaultScore is stored on newly added entries. It marks "not yet rated",
// not a review.
const DefaultScore = 0.0

// MovieList manages the ordered movie entries embedded in each user.
//
// Every operation is one read-modify-write of the user document. The store's
// version check turns a lost update between two concurrent writers into a
// domain.ErrConflict for the slower one.
type MovieList struct {
	store UserStore
	opts  Options
}

// NewMovieList builds a MovieList on top of store.
func NewMovieList(store UserStore, opts Options) *MovieList {
	return &MovieList{store: store, opts: opts}
}

// Add appends movieID with status "Plan To Watch" and the default score.
// Adding a movie already on the list returns the user unchanged without
// writing.
func (m *MovieList) Add(ctx context.Context, username, movieID string) (domain.User, error) {
	ctx, cancel := m.opts.withTimeout(ctx)
	defer cancel()

	user, err := m.load(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if indexOf(user.MovieEntries, movieID) >= 0 {
		return user, nil
	}

	score := DefaultScore
	user.MovieEntries = append(cloneEntries(user.MovieEntries), domain.MovieEntry{
		MovieID: movieID,
		Status:  domain.StatusPlanToWatch,
		Score:   &score,
	})
	return m.save(ctx, user)
}

// List returns the user's entries in insertion order; never nil.
func (m *MovieList) List(ctx context.Context, username string) ([]domain.MovieEntry, error) {
	ctx, cancel := m.opts.withTimeout(ctx)
	defer cancel()

	user, err := m.load(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.MovieEntries == nil {
		return []domain.MovieEntry{}, nil
	}
	return user.MovieEntries, nil
}

// Update overwrites status and score of the entry for movieID in place. An
// unknown movieID changes nothing, but the user is still written back and
// returned.
func (m *MovieList) Update(ctx context.Context, username, movieID, status string, score *float64) (domain.User, error) {
	ctx, cancel := m.opts.withTimeout(ctx)
	defer cancel()

	user, err := m.load(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	user.MovieEntries = cloneEntries(user.MovieEntries)
	if i := indexOf(user.MovieEntries, movieID); i >= 0 {
		user.MovieEntries[i].Status = status
		user.MovieEntries[i].Score = copyScore(score)
	}
	return m.save(ctx, user)
}

// Remove drops every entry whose movieID equals movieID exactly. Removing an
// absent movie still writes the user back.
func (m *MovieList) Remove(ctx context.Context, username, movieID string) (domain.User, error) {
	ctx, cancel := m.opts.withTimeout(ctx)
	defer cancel()

	user, err := m.load(ctx, username)
	if err != nil {
		return domain.User{}, err
	}

	kept := make([]domain.MovieEntry, 0, len(user.MovieEntries))
	for _, entry := range user.MovieEntries {
		if entry.MovieID != movieID {
			kept = append(kept, entry)
		}
	}
	user.MovieEntries = kept
	return m.save(ctx, user)
}

func (m *MovieList) load(ctx context.Context, username string) (domain.User, error) {
	user, err := m.store.GetByUsername(ctx, username)
	if err != nil {
		return domain.User{}, storeError("load user", err)
	}
	return user, nil
}

func (m *MovieList) save(ctx context.Context, user domain.User) (domain.User, error) {
	saved, err := m.store.Save(ctx, user)
	if err != nil {
		return domain.User{}, storeError("save user", err)
	}
	return saved, nil
}

func indexOf(entries []domain.MovieEntry, movieID string) int {
	for i, entry := range entries {
		if entry.MovieID == movieID {
			return i
		}
	}
	return -1
}

func cloneEntries(entries []domain.MovieEntry) []domain.MovieEntry {
	return append(make([]domain.MovieEntry, 0, len(entries)+1), entries...)
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}

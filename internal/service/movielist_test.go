package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/Clark-Hu/mymovielist/internal/domain"
	"github.com/Clark-Hu/mymovielist/internal/repository/memory"
	"github.com/Clark-Hu/mymovielist/internal/service/mocks"
)

func newMemoryMovieList(t testing.TB, usernames ...string) (*MovieList, *memory.UsersRepository) {
	t.Helper()
	repo := memory.New()
	for _, name := range usernames {
		if _, err := repo.Create(context.Background(), domain.User{ID: name, Username: name}); err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
	}
	return NewMovieList(repo, Options{}), repo
}

func ptr(v float64) *float64 { return &v }

func movieIDs(entries []domain.MovieEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.MovieID)
	}
	return ids
}

func TestMovieList_MissingUserIsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockUserStore(ctrl)
	store.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(domain.User{}, domain.ErrNotFound).Times(4)
	// Save must never be reached.
	list := NewMovieList(store, Options{})
	ctx := context.Background()

	if _, err := list.Add(ctx, "ghost", "550"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Add error = %v, want ErrNotFound", err)
	}
	if _, err := list.Update(ctx, "ghost", "550", domain.StatusWatched, ptr(9)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update error = %v, want ErrNotFound", err)
	}
	if _, err := list.Remove(ctx, "ghost", "550"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Remove error = %v, want ErrNotFound", err)
	}
	if _, err := list.List(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("List error = %v, want ErrNotFound", err)
	}
}

func TestMovieList_StorageErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("read", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockUserStore(ctrl)
		store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(domain.User{}, boom)

		_, err := NewMovieList(store, Options{}).Add(context.Background(), "alice", "550")
		if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, boom) {
			t.Fatalf("Add error = %v, want ErrStorage wrapping cause", err)
		}
	})

	t.Run("write", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockUserStore(ctrl)
		store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(domain.User{Username: "alice", Version: 3}, nil)
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(domain.User{}, boom)

		_, err := NewMovieList(store, Options{}).Add(context.Background(), "alice", "550")
		if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, boom) {
			t.Fatalf("Add error = %v, want ErrStorage wrapping cause", err)
		}
	})

	t.Run("conflict passes through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockUserStore(ctrl)
		store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(domain.User{Username: "alice"}, nil)
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(domain.User{}, fmt.Errorf("stale: %w", domain.ErrConflict))

		_, err := NewMovieList(store, Options{}).Remove(context.Background(), "alice", "550")
		if !errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrStorage) {
			t.Fatalf("Remove error = %v, want bare ErrConflict", err)
		}
	})
}

func TestMovieList_AddSavesDefaultEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockUserStore(ctrl)
	existing := domain.User{
		Username:     "alice",
		Version:      4,
		MovieEntries: []domain.MovieEntry{{MovieID: "13", Status: domain.StatusWatched, Score: ptr(8)}},
	}
	store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(existing, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u domain.User) (domain.User, error) {
		if u.Version != 4 {
			t.Errorf("saved with version %d, want the loaded version 4", u.Version)
		}
		u.Version++
		return u, nil
	})

	user, err := NewMovieList(store, Options{}).Add(context.Background(), "alice", "550")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := movieIDs(user.MovieEntries); len(got) != 2 || got[0] != "13" || got[1] != "550" {
		t.Fatalf("entries = %v, want [13 550]", got)
	}
	added := user.MovieEntries[1]
	if added.Status != domain.StatusPlanToWatch || added.Score == nil || *added.Score != DefaultScore {
		t.Fatalf("added entry = %+v, want Plan To Watch with score 0", added)
	}
	if len(existing.MovieEntries) != 1 {
		t.Fatalf("loaded user mutated: %+v", existing.MovieEntries)
	}
}

func TestMovieList_AddIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockUserStore(ctrl)
	existing := domain.User{
		Username:     "alice",
		MovieEntries: []domain.MovieEntry{{MovieID: "550", Status: domain.StatusWatched, Score: ptr(9)}},
	}
	store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(existing, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	user, err := NewMovieList(store, Options{}).Add(context.Background(), "alice", "550")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(user.MovieEntries) != 1 || user.MovieEntries[0].Status != domain.StatusWatched {
		t.Fatalf("entries = %+v, want the untouched existing entry", user.MovieEntries)
	}
}

func TestMovieList_UpdateUnknownMovieStillSaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockUserStore(ctrl)
	existing := domain.User{
		Username:     "alice",
		MovieEntries: []domain.MovieEntry{{MovieID: "550", Status: domain.StatusWatching}},
	}
	store.EXPECT().GetByUsername(gomock.Any(), "alice").Return(existing, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u domain.User) (domain.User, error) {
		return u, nil
	})

	user, err := NewMovieList(store, Options{}).Update(context.Background(), "alice", "999", domain.StatusWatched, ptr(5))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(user.MovieEntries) != 1 || user.MovieEntries[0].Status != domain.StatusWatching {
		t.Fatalf("entries = %+v, want unchanged", user.MovieEntries)
	}
}

func TestMovieList_UpdateChangesOnlyTargetEntry(t *testing.T) {
	list, _ := newMemoryMovieList(t, "alice")
	ctx := context.Background()
	for _, id := range []string{"13", "550", "680"} {
		if _, err := list.Add(ctx, "alice", id); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	if _, err := list.Update(ctx, "alice", "550", domain.StatusWatched, ptr(9.0)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	entries, err := list.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := movieIDs(entries); fmt.Sprint(got) != "[13 550 680]" {
		t.Fatalf("order = %v, want [13 550 680]", got)
	}
	for _, entry := range entries {
		switch entry.MovieID {
		case "550":
			if entry.Status != domain.StatusWatched || *entry.Score != 9.0 {
				t.Fatalf("updated entry = %+v", entry)
			}
		default:
			if entry.Status != domain.StatusPlanToWatch || *entry.Score != 0 {
				t.Fatalf("untouched entry changed: %+v", entry)
			}
		}
	}
}

func TestMovieList_UpdateAcceptsAnyStatusAndNullScore(t *testing.T) {
	list, _ := newMemoryMovieList(t, "alice")
	ctx := context.Background()
	if _, err := list.Add(ctx, "alice", "550"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, status := range []string{domain.StatusDropped, "Rewatching", domain.StatusPlanToWatch} {
		user, err := list.Update(ctx, "alice", "550", status, nil)
		if err != nil {
			t.Fatalf("Update(%s): %v", status, err)
		}
		if user.MovieEntries[0].Status != status || user.MovieEntries[0].Score != nil {
			t.Fatalf("entry = %+v, want status %s and nil score", user.MovieEntries[0], status)
		}
	}
}

func TestMovieList_RemoveExactMatch(t *testing.T) {
	list, _ := newMemoryMovieList(t, "alice")
	ctx := context.Background()
	for _, id := range []string{"55", "550", "5500"} {
		if _, err := list.Add(ctx, "alice", id); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	user, err := list.Remove(ctx, "alice", "55")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := movieIDs(user.MovieEntries); fmt.Sprint(got) != "[550 5500]" {
		t.Fatalf("entries = %v, want [550 5500]", got)
	}

	user, err = list.Remove(ctx, "alice", "404")
	if err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	if len(user.MovieEntries) != 2 {
		t.Fatalf("absent remove changed entries: %v", movieIDs(user.MovieEntries))
	}
}

func TestMovieList_ListEmpty(t *testing.T) {
	list, _ := newMemoryMovieList(t, "alice")
	entries, err := list.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("entries = %#v, want empty non-nil slice", entries)
	}
}

func TestMovieList_Scenario(t *testing.T) {
	repo := memory.New()
	dir, err := NewDirectory(repo, Options{HashCost: 4})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	list := NewMovieList(repo, Options{})
	ctx := context.Background()

	if _, err := dir.Register(ctx, Registration{Username: "alice", Password: "pw1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := list.Add(ctx, "alice", "550"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, err := list.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].MovieID != "550" || entries[0].Status != domain.StatusPlanToWatch || *entries[0].Score != 0 {
		t.Fatalf("after add = %+v", entries)
	}

	if _, err := list.Update(ctx, "alice", "550", domain.StatusWatched, ptr(9.5)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	entries, _ = list.List(ctx, "alice")
	if len(entries) != 1 || entries[0].Status != domain.StatusWatched || *entries[0].Score != 9.5 {
		t.Fatalf("after update = %+v", entries)
	}

	if _, err := list.Remove(ctx, "alice", "550"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	entries, _ = list.List(ctx, "alice")
	if len(entries) != 0 {
		t.Fatalf("after remove = %+v, want empty", entries)
	}
}

func TestMovieList_ConcurrentAddsNeverLoseSilently(t *testing.T) {
	list, _ := newMemoryMovieList(t, "alice")
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded = map[string]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := list.Add(ctx, "alice", id)
			switch {
			case err == nil:
				mu.Lock()
				succeeded[id] = true
				mu.Unlock()
			case errors.Is(err, domain.ErrConflict):
			default:
				t.Errorf("Add(%s): %v", id, err)
			}
		}(fmt.Sprint(i))
	}
	wg.Wait()

	entries, err := list.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	stored := map[string]bool{}
	for _, entry := range entries {
		stored[entry.MovieID] = true
	}
	for id := range succeeded {
		if !stored[id] {
			t.Fatalf("Add(%s) reported success but the entry is missing", id)
		}
	}
}

func BenchmarkMovieListAdd(b *testing.B) {
	list, _ := newMemoryMovieList(b, "bench")
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := list.Add(ctx, "bench", fmt.Sprint(i%500)); err != nil {
			b.Fatalf("Add: %v", err)
		}
	}
}

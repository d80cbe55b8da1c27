package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

const uniqueViolation = "23505"

// UsersRepository stores one row per user with the movie list embedded as JSONB.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    username,
    email,
    password_hash,
    movie_entries,
    version,
    created_at,
    updated_at
`

// Create inserts a new user. A taken username yields domain.ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	entries, err := marshalEntries(user.MovieEntries)
	if err != nil {
		return domain.User{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO users (id, username, email, password_hash, movie_entries)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, userColumns)

	created, err := scanUser(r.pool.QueryRow(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, entries))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("username %q: %w", user.Username, domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// GetByUsername fetches a user by its unique username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.getOne(ctx, query, username)
}

// GetByEmail fetches the oldest user registered with email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 ORDER BY created_at, username LIMIT 1`, userColumns)
	return r.getOne(ctx, query, email)
}

func (r *UsersRepository) getOne(ctx context.Context, query string, arg string) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// List returns every user ordered by registration time.
func (r *UsersRepository) List(ctx context.Context) ([]domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at, username`, userColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Save overwrites the mutable fields of user if its version is still current,
// and returns the stored document with the bumped version. A concurrent writer
// that got there first makes this call fail with domain.ErrConflict.
func (r *UsersRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	entries, err := marshalEntries(user.MovieEntries)
	if err != nil {
		return domain.User{}, err
	}

	query := fmt.Sprintf(`
        UPDATE users
        SET email = $3,
            password_hash = $4,
            movie_entries = $5,
            version = version + 1,
            updated_at = now()
        WHERE username = $1 AND version = $2
        RETURNING %s
    `, userColumns)

	saved, err := scanUser(r.pool.QueryRow(ctx, query, user.Username, user.Version, user.Email, user.PasswordHash, entries))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, user.Username).Scan(&exists); err != nil {
		return domain.User{}, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return domain.User{}, domain.ErrNotFound
	}
	return domain.User{}, fmt.Errorf("user %q modified concurrently: %w", user.Username, domain.ErrConflict)
}

// Delete removes the user with username; deleting an absent user is a no-op.
func (r *UsersRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// DeleteAll removes every user.
func (r *UsersRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user        domain.User
		entriesJSON []byte
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&entriesJSON,
		&user.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = updatedAt.UTC()
	user.MovieEntries = make([]domain.MovieEntry, 0)
	if len(entriesJSON) > 0 {
		if err := json.Unmarshal(entriesJSON, &user.MovieEntries); err != nil {
			return domain.User{}, fmt.Errorf("decode movie entries: %w", err)
		}
	}
	return user, nil
}

func marshalEntries(entries []domain.MovieEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.MovieEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode movie entries: %w", err)
	}
	return payload, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/mymovielist/internal/store"
)

// Repository aggregates all Postgres-backed repositories.
type Repository struct {
	Users *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Postgres) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Users: &UsersRepository{pool: pool},
	}
}

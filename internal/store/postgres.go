package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options controls connection-pool behaviour.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *log.Logger
}

// Postgres owns the connection pool backing the users table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

// NewPostgres initializes a connection pool and validates connectivity with Ping.
// Schema changes are applied separately through Migrate.
func NewPostgres(ctx context.Context, dbURL string, opts Options) (*Postgres, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("store: initializing postgres pool (max=%d, min=%d, idle=%s, life=%s, stmt_cache=%d)",
		opts.MaxConns, opts.MinConns, opts.MaxConnIdleTime, opts.MaxConnLifetime, opts.StatementCacheCapacity)

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}

	connCtx, cancel := withOptionalTimeout(ctx, opts.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Println("store: postgres connection established")
	return &Postgres{pool: pool, logger: logger, opts: opts}, nil
}

// Close releases database resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	stat := p.pool.Stat()
	p.logger.Printf("store: closing postgres pool (total=%d, idle=%d, acquired=%d, acquire_count=%d)",
		stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns(), stat.AcquireCount())
	p.pool.Close()
}

// HealthCheck verifies the database is reachable.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("postgres store not initialized")
	}
	checkCtx, cancel := withOptionalTimeout(ctx, p.opts.ConnTimeout)
	defer cancel()
	return p.pool.Ping(checkCtx)
}

// Pool exposes the underlying pgx pool for repositories.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

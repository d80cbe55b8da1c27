package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Clark-Hu/mymovielist/internal/config"
	httpserver "github.com/Clark-Hu/mymovielist/internal/http"
	"github.com/Clark-Hu/mymovielist/internal/repository"
	"github.com/Clark-Hu/mymovielist/internal/repository/memory"
	"github.com/Clark-Hu/mymovielist/internal/repository/mongodb"
	"github.com/Clark-Hu/mymovielist/internal/service"
	"github.com/Clark-Hu/mymovielist/internal/store"
)

// backend is the document store selected by STORE_DRIVER.
type backend struct {
	users  service.UserStore
	health httpserver.HealthChecker
	close  func()
}

func openBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := store.Migrate(cfg.DBURL, logger); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		st, err := store.NewPostgres(ctx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return &backend{users: repository.New(st).Users, health: st, close: st.Close}, nil

	case config.DriverMongo:
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, time.Duration(cfg.StoreTimeoutSecs)*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		users, err := mongodb.NewUsersRepository(ctx, m)
		if err != nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("prepare mongo collection: %w", err)
		}
		closeMongo := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Close(ctx); err != nil {
				logger.Printf("close mongo: %v", err)
			}
		}
		return &backend{users: users, health: m, close: closeMongo}, nil

	case config.DriverMemory:
		logger.Printf("using in-memory store, data is lost on exit")
		repo := memory.New()
		return &backend{users: repo, health: repo, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/mymovielist/internal/config"
	httpserver "github.com/Clark-Hu/mymovielist/internal/http"
	"github.com/Clark-Hu/mymovielist/internal/service"
	"github.com/Clark-Hu/mymovielist/internal/store"
	"github.com/Clark-Hu/mymovielist/internal/tmdb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "mymovielist",
		Short:         "Personal movie list API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFiles...)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres driver only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})
	return root
}

func newLogger() *log.Logger {
	return log.New(os.Stdout, "[mymovielist] ", log.LstdFlags|log.Lshortfile)
}

func migrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to the %s driver only, STORE_DRIVER=%s", config.DriverPostgres, cfg.StoreDriver)
	}
	return store.Migrate(cfg.DBURL, newLogger())
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := newLogger()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	backend, err := openBackend(dbCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	opts := service.Options{
		Timeout:  time.Duration(cfg.StoreTimeoutSecs) * time.Second,
		HashCost: cfg.BcryptCost,
	}
	directory, err := service.NewDirectory(backend.users, opts)
	if err != nil {
		return fmt.Errorf("init user directory: %w", err)
	}
	movies := service.NewMovieList(backend.users, opts)

	catalog, err := tmdb.NewHTTPClient(cfg.TMDBURL, cfg.TMDBAPIKey, cfg.TMDBLanguage, time.Duration(cfg.TMDBTimeoutSecs)*time.Second, logger)
	if err != nil {
		return fmt.Errorf("init tmdb client: %w", err)
	}

	server := httpserver.New(cfg, backend.health, directory, movies, catalog, logger)
	logger.Printf("listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var runErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Printf("server error: %v", err)
			runErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("graceful shutdown error: %v", err)
	}
	return runErr
}

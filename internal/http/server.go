package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/mymovielist/internal/config"
	"github.com/Clark-Hu/mymovielist/internal/service"
	"github.com/Clark-Hu/mymovielist/internal/tmdb"
)

// HealthChecker reports whether the backing document store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	health    HealthChecker
	directory *service.Directory
	movies    *service.MovieList
	catalog   tmdb.Client
	logger    *log.Logger
	validate  *validator.Validate
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, health HealthChecker, directory *service.Directory, movies *service.MovieList, catalog tmdb.Client, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(newCORS(cfg.CORSAllowedOrigins))

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:       cfg,
		health:    health,
		directory: directory,
		movies:    movies,
		catalog:   catalog,
		logger:    logger,
		validate:  newValidator(),
		router:    r,
	}
	s.registerRoutes()
	return s
}

// newValidator adds "pathsegment": the value must be usable as a single URL
// path segment, so it can later be addressed as /users/{username} or
// /users/{username}/movies/{movieId}.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pathsegment", func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		return val != "." && val != ".." && !strings.ContainsAny(val, "/?#%")
	})
	return v
}

// Handler exposes the routed handler, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Delete("/all", s.handleDeleteAllUsers)
		r.Route("/{username}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Delete("/", s.handleDeleteUser)
			r.Route("/movies", func(r chi.Router) {
				r.Get("/", s.handleListUserMovies)
				r.Post("/", s.handleAddUserMovie)
				r.Put("/{movieId}", s.handleUpdateUserMovie)
				r.Delete("/{movieId}", s.handleRemoveUserMovie)
			})
		})
	})
	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/trending", s.handleTrendingMovies)
		r.Get("/search", s.handleSearchMovies)
		r.Get("/{movieId}", s.handleGetMovie)
		r.Get("/{movieId}/videos", s.handleMovieVideos)
	})
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Printf("health check failed: %v", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

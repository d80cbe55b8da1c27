package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// catalogCall bounds one upstream catalog request. The client has its own
// transport timeout; this also covers slow bodies.
func (s *Server) catalogCall(w http.ResponseWriter, r *http.Request, op string, fetch func(ctx context.Context) (json.RawMessage, error)) {
	ctx := r.Context()
	if s.cfg.TMDBTimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TMDBTimeoutSecs)*time.Second)
		defer cancel()
	}

	body, err := fetch(ctx)
	if err != nil {
		s.respondServiceError(w, op, err)
		return
	}
	s.respondRawJSON(w, body)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")
	s.catalogCall(w, r, "fetch movie "+movieID, func(ctx context.Context) (json.RawMessage, error) {
		return s.catalog.Movie(ctx, movieID)
	})
}

func (s *Server) handleMovieVideos(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")
	s.catalogCall(w, r, "fetch videos "+movieID, func(ctx context.Context) (json.RawMessage, error) {
		return s.catalog.Videos(ctx, movieID)
	})
}

func (s *Server) handleTrendingMovies(w http.ResponseWriter, r *http.Request) {
	s.catalogCall(w, r, "fetch trending movies", s.catalog.Trending)
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "query parameter is required")
		return
	}
	s.catalogCall(w, r, "search movies", func(ctx context.Context) (json.RawMessage, error) {
		return s.catalog.Search(ctx, query)
	})
}

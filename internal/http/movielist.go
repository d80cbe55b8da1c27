package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

type addMovieRequest struct {
	MovieID string `json:"movieId" validate:"required,max=64,pathsegment"`
}

// updateMovieRequest carries the new status and score. Status is free-form
// but must be present; a missing or null score clears the stored one.
type updateMovieRequest struct {
	Status string   `json:"status" validate:"required,max=64"`
	Score  *float64 `json:"score"`
}

type movieEntryResponse struct {
	MovieID string   `json:"movieId"`
	Status  string   `json:"status"`
	Score   *float64 `json:"score"`
}

type messageResponse struct {
	Message string `json:"message"`
	Added   bool   `json:"added,omitempty"`
}

func (s *Server) handleListUserMovies(w http.ResponseWriter, r *http.Request) {
	entries, err := s.movies.List(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.respondServiceError(w, "list user movies", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieEntryResponses(entries))
}

func (s *Server) handleAddUserMovie(w http.ResponseWriter, r *http.Request) {
	var req addMovieRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.MovieID = strings.TrimSpace(req.MovieID)
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	if _, err := s.movies.Add(r.Context(), chi.URLParam(r, "username"), req.MovieID); err != nil {
		s.respondServiceError(w, "add user movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Movie added successfully", Added: true})
}

func (s *Server) handleUpdateUserMovie(w http.ResponseWriter, r *http.Request) {
	var req updateMovieRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	_, err := s.movies.Update(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "movieId"), req.Status, req.Score)
	if err != nil {
		s.respondServiceError(w, "update user movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Movie updated successfully"})
}

func (s *Server) handleRemoveUserMovie(w http.ResponseWriter, r *http.Request) {
	user, err := s.movies.Remove(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "movieId"))
	if err != nil {
		s.respondServiceError(w, "remove user movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func toMovieEntryResponses(entries []domain.MovieEntry) []movieEntryResponse {
	items := make([]movieEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, movieEntryResponse{
			MovieID: e.MovieID,
			Status:  e.Status,
			Score:   e.Score,
		})
	}
	return items
}

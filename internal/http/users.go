package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/mymovielist/internal/domain"
	"github.com/Clark-Hu/mymovielist/internal/service"
)

// maxPasswordBytes is the longest password bcrypt accepts.
const maxPasswordBytes = 72

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64,pathsegment"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type userResponse struct {
	ID           string               `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	MovieEntries []movieEntryResponse `json:"movieEntries"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}
	if len(req.Password) > maxPasswordBytes {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Password must be at most 72 bytes")
		return
	}

	user, err := s.directory.Register(r.Context(), service.Registration{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		s.respondServiceError(w, "register user", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, loginResponse{Success: false, Message: "Invalid credentials"})
		return
	}

	user, ok, err := s.directory.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondServiceError(w, "authenticate user", err)
		return
	}
	if !ok {
		s.respondJSON(w, http.StatusBadRequest, loginResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	s.respondJSON(w, http.StatusOK, loginResponse{Success: true, Username: user.Username})
}

// handleListUsers returns every user, or the 0 or 1 users owning ?email=.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if email := strings.TrimSpace(r.URL.Query().Get("email")); email != "" {
		user, err := s.directory.FindByEmail(r.Context(), email)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respondJSON(w, http.StatusOK, []userResponse{})
		case err != nil:
			s.respondServiceError(w, "find user by email", err)
		default:
			s.respondJSON(w, http.StatusOK, []userResponse{toUserResponse(user)})
		}
		return
	}

	users, err := s.directory.List(r.Context())
	if err != nil {
		s.respondServiceError(w, "list users", err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.directory.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.respondServiceError(w, "get user", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.Delete(r.Context(), chi.URLParam(r, "username")); err != nil {
		s.respondServiceError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteAll(r.Context()); err != nil {
		s.respondServiceError(w, "delete all users", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		MovieEntries: toMovieEntryResponses(user.MovieEntries),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

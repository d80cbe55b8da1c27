package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/mymovielist/internal/domain"
	"github.com/Clark-Hu/mymovielist/internal/tmdb"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// decodeJSONBody decodes a single JSON object. Unknown fields are tolerated:
// the web client sends status and score along with movieId when adding.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

// respondRawJSON writes an upstream document as is.
func (s *Server) respondRawJSON(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Printf("failed to write response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "BAD_REQUEST", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to parse request body")
	}
}

// respondValidationError reports the first failing field.
func (s *Server) respondValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input data")
		return
	}
	fe := ve[0]
	field := fe.Field()
	var message string
	switch fe.Tag() {
	case "required":
		message = field + " is required"
	case "email":
		message = "Please provide a valid email address"
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "pathsegment":
		message = field + " must not be . or .. or contain / ? # %"
	case "gte", "lte":
		message = fmt.Sprintf("%s is out of range", field)
	default:
		message = "Invalid value for " + field
	}
	s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
// Server-side failures are logged here and nowhere else.
func (s *Server) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, tmdb.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", conflictMessage(op))
	case errors.Is(err, domain.ErrUpstreamTimeout):
		s.logger.Printf("%s: %v", op, err)
		s.respondError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Movie catalog did not respond in time")
	case errors.Is(err, domain.ErrUpstream):
		s.logger.Printf("%s: %v", op, err)
		s.respondError(w, http.StatusInternalServerError, "UPSTREAM_ERROR", "Failed to fetch movie data")
	default:
		s.logger.Printf("%s: %v", op, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func conflictMessage(op string) string {
	if strings.HasPrefix(op, "register") {
		return "Username already exists"
	}
	return "The user was modified concurrently, retry the request"
}

package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL+"/3/", "secret-key", "en-US", timeout, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestHTTPClientRequests(t *testing.T) {
	tests := []struct {
		name      string
		call      func(c *HTTPClient) (json.RawMessage, error)
		wantPath  string
		wantQuery map[string]string
	}{
		{
			name:      "movie",
			call:      func(c *HTTPClient) (json.RawMessage, error) { return c.Movie(context.Background(), "550") },
			wantPath:  "/3/movie/550",
			wantQuery: map[string]string{"api_key": "secret-key", "language": "en-US"},
		},
		{
			name:      "search",
			call:      func(c *HTTPClient) (json.RawMessage, error) { return c.Search(context.Background(), "fight club") },
			wantPath:  "/3/search/movie",
			wantQuery: map[string]string{"api_key": "secret-key", "query": "fight club", "language": "en-US"},
		},
		{
			name:      "trending",
			call:      func(c *HTTPClient) (json.RawMessage, error) { return c.Trending(context.Background()) },
			wantPath:  "/3/trending/movie/week",
			wantQuery: map[string]string{"api_key": "secret-key"},
		},
		{
			name:      "videos",
			call:      func(c *HTTPClient) (json.RawMessage, error) { return c.Videos(context.Background(), "550") },
			wantPath:  "/3/movie/550/videos",
			wantQuery: map[string]string{"api_key": "secret-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %s, want GET", r.Method)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.wantPath)
				}
				for k, v := range tt.wantQuery {
					if got := r.URL.Query().Get(k); got != v {
						t.Errorf("query %s = %q, want %q", k, got, v)
					}
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club"}`))
			}, time.Second)

			body, err := tt.call(client)
			if err != nil {
				t.Fatalf("call error: %v", err)
			}
			if string(body) != `{"id":550,"title":"Fight Club"}` {
				t.Fatalf("body = %s, want passthrough", body)
			}
		})
	}
}

func TestHTTPClientNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_code":34}`, http.StatusNotFound)
	}, time.Second)

	_, err := client.Movie(context.Background(), "999999")
	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrUpstream and ErrNotFound", err)
	}
}

func TestHTTPClientInvalidMovieID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call to %s", r.URL.Path)
	}, time.Second)

	for _, id := range []string{"", "..", "550/credits", "550?x=1"} {
		if _, err := client.Videos(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Videos(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestHTTPClientStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, time.Second)

	_, err := client.Trending(context.Background())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("error = %v, want StatusError 401", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestHTTPClientInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, time.Second)

	if _, err := client.Search(context.Background(), "x"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := client.Movie(context.Background(), "550")
	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("error = %v, want ErrUpstreamTimeout", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestHTTPClientContextDeadline(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 5*time.Second)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Trending(ctx); !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("error = %v, want ErrUpstreamTimeout", err)
	}
}

func TestNewHTTPClientValidation(t *testing.T) {
	if _, err := NewHTTPClient("https://api.themoviedb.org/3", "", "en-US", time.Second, nil); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := NewHTTPClient("not a url", "key", "en-US", time.Second, nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

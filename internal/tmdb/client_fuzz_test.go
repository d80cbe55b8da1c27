package tmdb

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func FuzzMovieIDStaysInPath(f *testing.F) {
	f.Add("550")
	f.Add("../search/movie")
	f.Add("550?api_key=stolen")
	f.Add("%2e%2e")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/3/movie/") {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		if len(r.URL.Query()["api_key"]) != 1 || r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	f.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL+"/3", "key", "en-US", time.Second, log.New(io.Discard, "", 0))
	if err != nil {
		f.Fatalf("NewHTTPClient: %v", err)
	}

	f.Fuzz(func(t *testing.T, movieID string) {
		_, err := client.Movie(context.Background(), movieID)
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			t.Fatalf("movie id %q altered the request: %v", movieID, err)
		}
	})
}

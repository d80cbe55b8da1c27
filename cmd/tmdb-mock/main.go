package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed catalog.json
var defaultCatalog []byte

// catalog is the fixture served in place of the real movie database.
type catalog struct {
	Movies   map[string]json.RawMessage   `json:"movies"`
	Videos   map[string][]json.RawMessage `json:"videos"`
	Trending []string                     `json:"trending"`
}

type page struct {
	Page         int               `json:"page"`
	Results      []json.RawMessage `json:"results"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
}

func main() {
	var (
		port   = flag.String("port", "9099", "port to listen on")
		data   = flag.String("data", "", "path to a catalog file (defaults to the embedded fixture)")
		apiKey = flag.String("api-key", "", "api_key every request must carry (empty accepts any)")
		logReq = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file := defaultCatalog
	if *data != "" {
		var err error
		if file, err = os.ReadFile(*data); err != nil {
			log.Fatalf("read mock data: %v", err)
		}
	}

	var c catalog
	if err := json.Unmarshal(file, &c); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	addr := ":" + *port
	log.Printf("mock tmdb listening on %s with %d movies", addr, len(c.Movies))
	if err := http.ListenAndServe(addr, newRouter(c, *apiKey, *logReq)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newRouter(c catalog, apiKey string, logRequests bool) http.Handler {
	r := chi.NewRouter()
	if logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(requireAPIKey(apiKey))

	r.Route("/3", func(r chi.Router) {
		r.Get("/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
			movie, ok := c.Movies[chi.URLParam(r, "id")]
			if !ok {
				writeStatus(w, http.StatusNotFound, 34, "The resource you requested could not be found.")
				return
			}
			writeJSON(w, movie)
		})
		r.Get("/movie/{id}/videos", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if _, ok := c.Movies[id]; !ok {
				writeStatus(w, http.StatusNotFound, 34, "The resource you requested could not be found.")
				return
			}
			results := c.Videos[id]
			if results == nil {
				results = []json.RawMessage{}
			}
			writeJSON(w, map[string]interface{}{"id": id, "results": results})
		})
		r.Get("/search/movie", func(w http.ResponseWriter, r *http.Request) {
			query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
			results := []json.RawMessage{}
			if query != "" {
				ids := make([]string, 0, len(c.Movies))
				for id := range c.Movies {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					movie := c.Movies[id]
					var head struct {
						Title string `json:"title"`
					}
					if err := json.Unmarshal(movie, &head); err == nil && strings.Contains(strings.ToLower(head.Title), query) {
						results = append(results, movie)
					}
				}
			}
			writeJSON(w, newPage(results))
		})
		r.Get("/trending/movie/week", func(w http.ResponseWriter, r *http.Request) {
			results := make([]json.RawMessage, 0, len(c.Trending))
			for _, id := range c.Trending {
				if movie, ok := c.Movies[id]; ok {
					results = append(results, movie)
				}
			}
			writeJSON(w, newPage(results))
		})
	})
	return r
}

func requireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.URL.Query().Get("api_key")
			if got == "" || (apiKey != "" && got != apiKey) {
				writeStatus(w, http.StatusUnauthorized, 7, "Invalid API key: You must be granted a valid key.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newPage(results []json.RawMessage) page {
	return page{Page: 1, Results: results, TotalPages: 1, TotalResults: len(results)}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeStatus(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"status_code":%d,"status_message":%q}`, code, message)
}

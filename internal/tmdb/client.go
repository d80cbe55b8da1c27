// Package tmdb fetches movie metadata from a TMDB-compatible catalog API.
// Responses are passed through untouched as raw JSON.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/mymovielist/internal/domain"
)

// ErrNotFound is returned when the catalog has no record for the request.
var ErrNotFound = errors.New("tmdb: not found")

// maxBodyBytes bounds how much of an upstream response is buffered.
const maxBodyBytes = 8 << 20

// StatusError reports a non-2xx response from the catalog.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "tmdb: unexpected status"
	}
	return fmt.Sprintf("tmdb: %s returned HTTP %d", e.URL, e.StatusCode)
}

// Client defines the contract for querying the movie catalog.
type Client interface {
	Movie(ctx context.Context, movieID string) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
	Trending(ctx context.Context) (json.RawMessage, error)
	Videos(ctx context.Context, movieID string) (json.RawMessage, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL  *url.URL
	apiKey   string
	language string
	client   *http.Client
	logger   *log.Logger
}

// NewHTTPClient constructs a catalog client rooted at baseURL (for example https://api.themoviedb.org/3).
func NewHTTPClient(baseURL, apiKey, language string, timeout time.Duration, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if apiKey == "" {
		return nil, errors.New("tmdb: api key is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse tmdb url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL:  parsed,
		apiKey:   apiKey,
		language: language,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Movie returns the catalog details for one movie.
func (c *HTTPClient) Movie(ctx context.Context, movieID string) (json.RawMessage, error) {
	if err := checkMovieID(movieID); err != nil {
		return nil, err
	}
	return c.get(ctx, []string{"movie", movieID}, url.Values{"language": {c.language}})
}

// Search runs a free-text movie search.
func (c *HTTPClient) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, []string{"search", "movie"}, url.Values{"query": {query}, "language": {c.language}})
}

// Trending returns this week's trending movies.
func (c *HTTPClient) Trending(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, []string{"trending", "movie", "week"}, nil)
}

// Videos returns trailers and clips for one movie.
func (c *HTTPClient) Videos(ctx context.Context, movieID string) (json.RawMessage, error) {
	if err := checkMovieID(movieID); err != nil {
		return nil, err
	}
	return c.get(ctx, []string{"movie", movieID, "videos"}, nil)
}

func (c *HTTPClient) get(ctx context.Context, segments []string, params url.Values) (json.RawMessage, error) {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	endpoint := c.baseURL.JoinPath(escaped...)
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	// the api key travels in the query string, keep it out of errors and logs
	redacted := *endpoint
	redacted.RawQuery = ""
	target := redacted.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", domain.ErrUpstream, target, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Printf("tmdb: unexpected status %d for %s", resp.StatusCode, target)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, &StatusError{URL: target, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(target, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: decode tmdb response from %s: invalid JSON", domain.ErrUpstream, target)
	}
	return json.RawMessage(body), nil
}

// transportError classifies a failed round trip. The url.Error from the
// http client embeds the full request URL, so only its cause is kept.
func transportError(target string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: GET %s: %v", domain.ErrUpstream, domain.ErrUpstreamTimeout, target, err)
	}
	return fmt.Errorf("%w: GET %s: %w", domain.ErrUpstream, target, err)
}

func checkMovieID(movieID string) error {
	if movieID == "" || movieID == "." || movieID == ".." || strings.ContainsAny(movieID, "/?#") {
		return fmt.Errorf("%w: %w: invalid movie id %q", domain.ErrUpstream, ErrNotFound, movieID)
	}
	return nil
}

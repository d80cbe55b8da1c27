package httpserver

import (
	"net/http"
	"testing"
)

func FuzzAddUserMovieBody(f *testing.F) {
	seeds := []string{
		`{"movieId":"550"}`,
		`{"movieId":"550","status":"Watching","score":7}`,
		`{"movieId":550}`,
		`{"movieId":""}`,
		`{"movieId":"a"} {"movieId":"b"}`,
		`[]`,
		``,
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	srv, _ := buildTestServer(f, nil)
	rec := doRequest(f, srv, http.MethodPost, "/users/register", `{"username":"fuzz","password":"pw"}`)
	if rec.Code != http.StatusOK {
		f.Fatalf("register status %d", rec.Code)
	}

	f.Fuzz(func(t *testing.T, body string) {
		rec := doRequest(t, srv, http.MethodPost, "/users/fuzz/movies", body)
		switch rec.Code {
		case http.StatusOK, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		default:
			t.Fatalf("body %q produced status %d: %s", body, rec.Code, rec.Body.String())
		}
	})
}

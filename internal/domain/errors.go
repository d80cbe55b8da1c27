package domain

import "errors"

var (
	// ErrNotFound indicates the referenced user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate username or a stale version on save.
	ErrConflict = errors.New("conflict")
	// ErrStorage wraps failures of the document store.
	ErrStorage = errors.New("storage error")
	// ErrUpstream wraps failures of the movie catalog API.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamTimeout marks catalog calls that ran out of time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

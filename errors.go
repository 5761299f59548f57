package packway

import "errors"

var (
	// ErrNotFound is returned when a route, repository or file does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when a request path or body is malformed or unsafe
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when an operation is disallowed by policy or content type
	ErrForbidden = errors.New("forbidden")
	// ErrMethodNotAllowed is returned when a route matches with the wrong verb
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLaunch is returned when the git binary cannot be started
	ErrLaunch = errors.New("launch git process")
)

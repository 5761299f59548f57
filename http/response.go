package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sagarc03/packway"
)

// Realm is announced in the WWW-Authenticate header of 401 responses.
const Realm = "packway"

// WriteError writes a plain-text error response. git prints the body to the
// user as is, so it is kept to the bare status text.
func WriteError(w http.ResponseWriter, code int) {
	message := http.StatusText(code)

	h := w.Header()
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Length", strconv.Itoa(len(message)))
	w.WriteHeader(code)
	_, _ = io.WriteString(w, message)
}

// HandleError writes the response matching err.
//
// ErrMethodNotAllowed yields 405 only for HTTP/1.1 requests; older protocol
// versions have no 405 and get 400 instead.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, packway.ErrNotFound):
		WriteError(w, http.StatusNotFound)
	case errors.Is(err, packway.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest)
	case errors.Is(err, packway.ErrForbidden):
		WriteError(w, http.StatusForbidden)
	case errors.Is(err, packway.ErrMethodNotAllowed):
		if r.Proto == "HTTP/1.1" {
			WriteError(w, http.StatusMethodNotAllowed)
		} else {
			WriteError(w, http.StatusBadRequest)
		}
	case errors.Is(err, packway.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`", charset="UTF-8"`)
		WriteError(w, http.StatusUnauthorized)
	default:
		slog.ErrorContext(r.Context(), "request error", "error", err, "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError)
		return
	}

	slog.DebugContext(r.Context(), "request rejected", "error", err, "path", r.URL.Path)
}

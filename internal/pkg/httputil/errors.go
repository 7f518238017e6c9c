package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/status24/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// StatusError is implemented by errors that carry their own HTTP status,
// such as upstream API failures passed through to the caller.
type StatusError interface {
	error
	HTTPStatus() int
	Detail() string
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// Errors implementing StatusError are written with their own status and detail.
// If nothing matches, logs the error and returns 500 Internal Server Error.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			Error(w, m.Status, msg)
			return
		}
	}

	var se StatusError
	if errors.As(err, &se) {
		ctxlog.FromContext(ctx).Warn("upstream error", "status", se.HTTPStatus(), "error", err)
		Error(w, se.HTTPStatus(), se.Detail())
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

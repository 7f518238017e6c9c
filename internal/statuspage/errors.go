package statuspage

import (
	"errors"
	"net/http"

	"github.com/bissquit/status24/internal/pkg/httputil"
)

// Status page errors.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidContainer     = errors.New("invalid container")
)

// ErrorMappings maps status page errors to HTTP responses.
var ErrorMappings = []httputil.ErrorMapping{
	{Error: ErrOrganizationNotFound, Status: http.StatusNotFound, Message: "Organization not found"},
	{Error: ErrServiceNotFound, Status: http.StatusNotFound, Message: "Service not found"},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "Incident not found"},
	{Error: ErrInvalidID, Status: http.StatusBadRequest},
}

func notFoundError(c string) error {
	switch c {
	case "services":
		return ErrServiceNotFound
	case "incidents":
		return ErrIncidentNotFound
	}
	return ErrInvalidContainer
}

package clerk

import (
	"fmt"
	"strings"
)

var opDescriptions = map[string]string{
	"list_memberships":    "fetching organization memberships",
	"create_user":         "creating user",
	"create_organization": "creating organization",
	"create_membership":   "adding user to organization",
	"list_organizations":  "fetching organizations",
	"get_organization":    "fetching organization",
}

// UpstreamError is returned when Clerk answers with a non-2xx status.
// It carries the provider's status and body so callers can pass them through.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("clerk %s: status %d", e.Op, e.StatusCode)
}

// HTTPStatus returns the provider's status code.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// Detail returns a human-readable message including the provider's response body.
func (e *UpstreamError) Detail() string {
	desc, ok := opDescriptions[e.Op]
	if !ok {
		desc = strings.ReplaceAll(e.Op, "_", " ")
	}
	return fmt.Sprintf("Error %s: %s", desc, e.Body)
}

package identity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bissquit/status24/internal/pkg/httputil"
)

// Authentication errors.
var (
	ErrUnauthenticated     = errors.New("authorization header is missing")
	ErrMalformedCredential = errors.New("invalid authorization header format")
	ErrInvalidToken        = errors.New("could not validate credentials")
	ErrInvalidCredential   = errors.New("token does not contain a user id")
)

// ErrForbidden is the base of every authorization failure.
var ErrForbidden = errors.New("forbidden")

// Authorization errors.
var (
	ErrIdentityProviderUnavailable = fmt.Errorf("%w: could not fetch organization memberships", ErrForbidden)
	ErrNoMembership                = fmt.Errorf("%w: user is not a member of any organization", ErrForbidden)
	ErrNotAdmin                    = fmt.Errorf("%w: admin access required", ErrForbidden)
	ErrNotOrganizationMember       = fmt.Errorf("%w: user is not a member of the organization", ErrForbidden)
)

// ErrOrganizationNotFound is returned when the identity provider does not know an organization.
var ErrOrganizationNotFound = errors.New("organization not found")

// ErrorMappings maps identity errors to HTTP responses. Other modules append
// their own mappings to this list for routes behind the auth middleware.
var ErrorMappings = []httputil.ErrorMapping{
	{Error: ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "Authorization header is missing"},
	{Error: ErrMalformedCredential, Status: http.StatusUnauthorized, Message: "Invalid Authorization header format. Expected 'Bearer <token>'."},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
	{Error: ErrInvalidCredential, Status: http.StatusUnauthorized, Message: "User ID not found in token"},
	{Error: ErrIdentityProviderUnavailable, Status: http.StatusForbidden, Message: "Failed to fetch user organization memberships"},
	{Error: ErrNoMembership, Status: http.StatusForbidden, Message: "User is not a member of any organization"},
	{Error: ErrNotAdmin, Status: http.StatusForbidden, Message: "User is not authorized. Admin access required."},
	{Error: ErrNotOrganizationMember, Status: http.StatusForbidden, Message: "User is not authorized to act on this organization"},
	{Error: ErrForbidden, Status: http.StatusForbidden, Message: "Forbidden"},
	{Error: ErrOrganizationNotFound, Status: http.StatusNotFound, Message: "Organization not found"},
}

// Package statuspage manages the per-organization status page document:
// services, incidents and incident messages.
package statuspage

import (
	"context"
	"strings"

	"github.com/bissquit/status24/internal/domain"
)

// Repository stores one document per organization and applies field-level
// patches to it. Implementations stamp Patch.Timestamps with their own clock
// at write time.
type Repository interface {
	// EnsureContainer creates the organization document if it is absent and
	// initializes the container as an empty mapping if it is missing. Existing
	// children and sibling fields are left untouched.
	EnsureContainer(ctx context.Context, orgID string, container domain.Container) error
	GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error)
	// Patch applies p to an existing document or returns ErrOrganizationNotFound.
	Patch(ctx context.Context, orgID string, p Patch) error
	ListOrganizationIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Patch is a set of field-level changes to an organization document.
// Keys are dotted paths; intermediate mappings are created as needed.
type Patch struct {
	Set        map[string]interface{}
	Timestamps []string
	Delete     []string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Timestamps) == 0 && len(p.Delete) == 0
}

// Path joins path segments with the field separator.
func Path(segments ...string) string {
	return strings.Join(segments, ".")
}

// SplitPath splits a dotted path into segments.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

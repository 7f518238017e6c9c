package identity

import (
	"fmt"

	"github.com/bissquit/status24/internal/domain"
)

// Membership match modes.
const (
	MatchAny   = "any"
	MatchFirst = "first"
)

// AdminPolicy authorizes members of the named admin organization.
type AdminPolicy struct {
	OrgName string
}

// Authorize implements httputil.CallerPolicy.
func (p AdminPolicy) Authorize(caller *domain.Caller) error {
	for _, m := range caller.Memberships {
		if m.Organization.Name == p.OrgName {
			return nil
		}
	}
	return ErrNotAdmin
}

// MembershipPolicy authorizes callers acting on an organization they belong to.
// In MatchFirst mode only the first membership in provider order counts.
type MembershipPolicy struct {
	Mode string
}

// NewMembershipPolicy returns a policy for mode, defaulting to MatchAny.
func NewMembershipPolicy(mode string) (MembershipPolicy, error) {
	switch mode {
	case "", MatchAny:
		return MembershipPolicy{Mode: MatchAny}, nil
	case MatchFirst:
		return MembershipPolicy{Mode: MatchFirst}, nil
	default:
		return MembershipPolicy{}, fmt.Errorf("unknown membership match mode %q", mode)
	}
}

// Authorize implements httputil.CallerPolicy. It only requires at least one
// membership; the target organization is checked by AuthorizeOrganization.
func (p MembershipPolicy) Authorize(caller *domain.Caller) error {
	if len(caller.Memberships) == 0 {
		return ErrNoMembership
	}
	return nil
}

// AuthorizeOrganization checks that the caller may act on orgID.
func (p MembershipPolicy) AuthorizeOrganization(caller *domain.Caller, orgID string) error {
	if len(caller.Memberships) == 0 {
		return ErrNoMembership
	}

	if p.Mode == MatchFirst {
		if caller.Memberships[0].Organization.ID == orgID {
			return nil
		}
		return ErrNotOrganizationMember
	}

	for _, m := range caller.Memberships {
		if m.Organization.ID == orgID {
			return nil
		}
	}
	return ErrNotOrganizationMember
}

// ReadOnlyPolicy authorizes any resolved caller.
type ReadOnlyPolicy struct{}

// Authorize implements httputil.CallerPolicy.
func (ReadOnlyPolicy) Authorize(*domain.Caller) error { return nil }

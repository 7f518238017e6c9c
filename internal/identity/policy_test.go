package identity

import (
	"testing"

	"github.com/bissquit/status24/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callerWith(orgs ...domain.OrganizationInfo) *domain.Caller {
	caller := &domain.Caller{UserID: "user_1"}
	for _, org := range orgs {
		caller.Memberships = append(caller.Memberships, domain.Membership{
			ID:           "orgmem_" + org.ID,
			Role:         "org:member",
			Organization: org,
		})
	}
	return caller
}

var (
	orgAcme     = domain.OrganizationInfo{ID: "org_acme", Name: "Acme"}
	orgGlobex   = domain.OrganizationInfo{ID: "org_globex", Name: "Globex"}
	orgStatus24 = domain.OrganizationInfo{ID: "org_admin", Name: "status24"}
)

func TestAdminPolicy(t *testing.T) {
	policy := AdminPolicy{OrgName: "status24"}

	t.Run("admin membership anywhere in list", func(t *testing.T) {
		assert.NoError(t, policy.Authorize(callerWith(orgAcme, orgStatus24)))
	})

	t.Run("no admin membership", func(t *testing.T) {
		assert.ErrorIs(t, policy.Authorize(callerWith(orgAcme, orgGlobex)), ErrNotAdmin)
	})

	t.Run("no memberships", func(t *testing.T) {
		err := policy.Authorize(callerWith())
		assert.ErrorIs(t, err, ErrNotAdmin)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("matches by name not id", func(t *testing.T) {
		impostor := domain.OrganizationInfo{ID: "status24", Name: "Status 24"}
		assert.ErrorIs(t, policy.Authorize(callerWith(impostor)), ErrNotAdmin)
	})
}

func TestNewMembershipPolicy(t *testing.T) {
	p, err := NewMembershipPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MatchAny, p.Mode)

	p, err = NewMembershipPolicy(MatchFirst)
	require.NoError(t, err)
	assert.Equal(t, MatchFirst, p.Mode)

	_, err = NewMembershipPolicy("all")
	assert.Error(t, err)
}

func TestMembershipPolicy_Authorize(t *testing.T) {
	policy := MembershipPolicy{Mode: MatchAny}

	assert.NoError(t, policy.Authorize(callerWith(orgAcme)))
	assert.ErrorIs(t, policy.Authorize(callerWith()), ErrNoMembership)
}

func TestMembershipPolicy_AuthorizeOrganization(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		orgs    []domain.OrganizationInfo
		target  string
		wantErr error
	}{
		{name: "any: first matches", mode: MatchAny, orgs: []domain.OrganizationInfo{orgAcme, orgGlobex}, target: "org_acme"},
		{name: "any: later matches", mode: MatchAny, orgs: []domain.OrganizationInfo{orgAcme, orgGlobex}, target: "org_globex"},
		{name: "any: none matches", mode: MatchAny, orgs: []domain.OrganizationInfo{orgAcme, orgGlobex}, target: "org_other", wantErr: ErrNotOrganizationMember},
		{name: "any: no memberships", mode: MatchAny, target: "org_acme", wantErr: ErrNoMembership},
		{name: "first: first matches", mode: MatchFirst, orgs: []domain.OrganizationInfo{orgAcme, orgGlobex}, target: "org_acme"},
		{name: "first: later match ignored", mode: MatchFirst, orgs: []domain.OrganizationInfo{orgAcme, orgGlobex}, target: "org_globex", wantErr: ErrNotOrganizationMember},
		{name: "first: no memberships", mode: MatchFirst, target: "org_acme", wantErr: ErrNoMembership},
		{name: "empty target never matches", mode: MatchAny, orgs: []domain.OrganizationInfo{orgAcme}, target: "", wantErr: ErrNotOrganizationMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := MembershipPolicy{Mode: tt.mode}
			err := policy.AuthorizeOrganization(callerWith(tt.orgs...), tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReadOnlyPolicy(t *testing.T) {
	assert.NoError(t, ReadOnlyPolicy{}.Authorize(callerWith()))
	assert.NoError(t, ReadOnlyPolicy{}.Authorize(callerWith(orgAcme)))
}

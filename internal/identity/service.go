// Package identity resolves callers against the identity provider and
// exposes the provider's account and organization administration.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/identity/clerk"
	"github.com/bissquit/status24/internal/identity/jwt"
	"github.com/bissquit/status24/internal/pkg/ctxlog"
)

// TokenVerifier extracts the subject of a session token.
type TokenVerifier interface {
	Subject(ctx context.Context, token string) (string, error)
}

// Provider is the subset of the identity provider API used by the service.
type Provider interface {
	ListUserMemberships(ctx context.Context, userID string) ([]domain.Membership, error)
	CreateUser(ctx context.Context, email, fullName, organization string) (json.RawMessage, error)
	CreateOrganization(ctx context.Context, name string) (json.RawMessage, error)
	CreateOrganizationMembership(ctx context.Context, orgID, email, fullName string) (json.RawMessage, error)
	ListOrganizations(ctx context.Context) ([]domain.OrganizationInfo, error)
	GetOrganization(ctx context.Context, orgID string) (*domain.OrganizationInfo, error)
}

// Service implements caller resolution and the admin proxies.
type Service struct {
	verifier     TokenVerifier
	provider     Provider
	adminOrgName string
}

// NewService creates a new identity service. adminOrgName is the organization
// whose members are administrators; new users are tagged with it.
func NewService(verifier TokenVerifier, provider Provider, adminOrgName string) *Service {
	return &Service{
		verifier:     verifier,
		provider:     provider,
		adminOrgName: adminOrgName,
	}
}

// Resolve authenticates an Authorization header and fetches the caller's
// memberships. Memberships are never cached.
func (s *Service) Resolve(ctx context.Context, authorizationHeader string) (*domain.Caller, error) {
	token, err := ExtractBearerToken(authorizationHeader)
	if err != nil {
		return nil, err
	}

	userID, err := s.verifier.Subject(ctx, token)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingSubject) {
			return nil, ErrInvalidCredential
		}
		ctxlog.FromContext(ctx).Debug("token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	memberships, err := s.provider.ListUserMemberships(ctx, userID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("membership lookup failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrIdentityProviderUnavailable, err)
	}

	return &domain.Caller{UserID: userID, Memberships: memberships}, nil
}

// CreateUser creates a user tagged with the admin organization.
func (s *Service) CreateUser(ctx context.Context, email, name string) (json.RawMessage, error) {
	resp, err := s.provider.CreateUser(ctx, email, name, s.adminOrgName)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return resp, nil
}

// CreateOrganization creates an organization.
func (s *Service) CreateOrganization(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := s.provider.CreateOrganization(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return resp, nil
}

// AddUserToOrganization adds an existing user to an organization.
func (s *Service) AddUserToOrganization(ctx context.Context, orgID, email, name string) (json.RawMessage, error) {
	resp, err := s.provider.CreateOrganizationMembership(ctx, orgID, email, name)
	if err != nil {
		return nil, fmt.Errorf("add user to organization: %w", err)
	}
	return resp, nil
}

// ListOrganizations returns every organization known to the provider.
func (s *Service) ListOrganizations(ctx context.Context) ([]domain.OrganizationInfo, error) {
	orgs, err := s.provider.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganizationDetails returns the public details of an organization.
// Any provider rejection is reported as ErrOrganizationNotFound.
func (s *Service) GetOrganizationDetails(ctx context.Context, orgID string) (*domain.OrganizationInfo, error) {
	org, err := s.provider.GetOrganization(ctx, orgID)
	if err != nil {
		var upstream *clerk.UpstreamError
		if errors.As(err, &upstream) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

// Package clerk provides a client for the Clerk Backend API: organization
// membership lookup for request authorization plus the thin admin proxies.
package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/metrics"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the public Clerk Backend API base URL.
	DefaultAPIURL  = "https://api.clerk.com/v1"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Config holds Clerk client configuration.
type Config struct {
	APIURL    string        // base URL, default DefaultAPIURL
	APIKey    string        // secret key sent as bearer credential
	Timeout   time.Duration // per-request timeout
	RateLimit float64       // requests per second, 0 means unlimited
	Burst     int
}

// Client calls the Clerk Backend API with a service-level credential.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Clerk client.
func NewClient(config Config) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type listResponse[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"total_count"`
}

// ListUserMemberships returns the user's organization memberships in provider order.
func (c *Client) ListUserMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	var resp listResponse[domain.Membership]
	path := "/users/" + url.PathEscape(userID) + "/organization_memberships"
	if err := c.do(ctx, "list_memberships", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []domain.Membership{}, nil
	}
	return resp.Data, nil
}

type createUserRequest struct {
	EmailAddress   []string          `json:"email_address"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	PublicMetadata map[string]string `json:"public_metadata"`
}

// CreateUser creates a user and tags it with the owning organization in public metadata.
// The provider's response is returned unchanged.
func (c *Client) CreateUser(ctx context.Context, email, fullName, organization string) (json.RawMessage, error) {
	first, last := SplitName(fullName)
	body := createUserRequest{
		EmailAddress:   []string{email},
		FirstName:      first,
		LastName:       last,
		PublicMetadata: map[string]string{"organization": organization},
	}

	var raw json.RawMessage
	if err := c.do(ctx, "create_user", http.MethodPost, "/users", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CreateOrganization creates an organization and returns the provider's response.
func (c *Client) CreateOrganization(ctx context.Context, name string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create_organization", http.MethodPost, "/organizations", map[string]string{"name": name}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type createMembershipRequest struct {
	EmailAddress   string            `json:"email_address"`
	OrganizationID string            `json:"organization_id"`
	PublicMetadata map[string]string `json:"public_metadata"`
}

// CreateOrganizationMembership adds the user with the given email to an organization.
func (c *Client) CreateOrganizationMembership(ctx context.Context, orgID, email, fullName string) (json.RawMessage, error) {
	body := createMembershipRequest{
		EmailAddress:   email,
		OrganizationID: orgID,
		PublicMetadata: map[string]string{"full_name": fullName},
	}

	var raw json.RawMessage
	if err := c.do(ctx, "create_membership", http.MethodPost, "/organization_memberships", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ListOrganizations returns every organization known to the provider.
func (c *Client) ListOrganizations(ctx context.Context) ([]domain.OrganizationInfo, error) {
	var resp listResponse[domain.OrganizationInfo]
	if err := c.do(ctx, "list_organizations", http.MethodGet, "/organizations", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []domain.OrganizationInfo{}, nil
	}
	return resp.Data, nil
}

// GetOrganization returns a single organization by id.
func (c *Client) GetOrganization(ctx context.Context, orgID string) (*domain.OrganizationInfo, error) {
	var org domain.OrganizationInfo
	if err := c.do(ctx, "get_organization", http.MethodGet, "/organizations/"+url.PathEscape(orgID), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IdentityProviderRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%s: send request: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.IdentityProviderRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Debug("clerk request rejected", "operation", op, "status", resp.StatusCode)
		return &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// SplitName splits a display name into first name and the remainder as last name.
// The name is NFC-normalized so composed and decomposed input split alike.
func SplitName(fullName string) (first, last string) {
	fields := strings.Fields(norm.NFC.String(fullName))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

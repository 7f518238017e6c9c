// Package jwt extracts the subject of identity-provider session tokens.
package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token does not contain a subject")
)

const (
	defaultRefreshInterval = 5 * time.Minute
	defaultTimeout         = 10 * time.Second
)

var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "EdDSA"}

// Config holds JWKS verifier configuration.
type Config struct {
	JWKSURL         string
	APIKey          string // optional bearer credential for the JWKS endpoint
	Issuer          string // checked against "iss" when set
	Leeway          time.Duration
	RefreshInterval time.Duration // minimum time between key set refreshes
	Timeout         time.Duration
}

// JWKSVerifier verifies token signatures against the provider's published key set.
type JWKSVerifier struct {
	config     Config
	httpClient *http.Client

	mu        sync.RWMutex
	keys      jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewJWKSVerifier creates a verifier. Keys are fetched lazily on first use.
func NewJWKSVerifier(config Config) *JWKSVerifier {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = defaultRefreshInterval
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &JWKSVerifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Subject verifies the token signature, expiry and issuer and returns its "sub" claim.
func (v *JWKSVerifier) Subject(ctx context.Context, token string) (string, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods(validMethods),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(v.config.Leeway),
	}
	if v.config.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.config.Issuer))
	}

	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

func (v *JWKSVerifier) key(ctx context.Context, kid string) (interface{}, error) {
	if k, ok := v.lookup(kid); ok {
		return k, nil
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	if k, ok := v.lookup(kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *JWKSVerifier) lookup(kid string) (interface{}, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var candidates []jose.JSONWebKey
	if kid == "" {
		// Tokens without kid are accepted only against a single-key set.
		if len(v.keys.Keys) == 1 {
			candidates = v.keys.Keys
		}
	} else {
		candidates = v.keys.Key(kid)
	}

	for _, k := range candidates {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if !k.IsPublic() {
			k = k.Public()
		}
		if k.Key != nil {
			return k.Key, true
		}
	}
	return nil, false
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) < v.config.RefreshInterval {
		return nil
	}

	set, err := v.fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh key set: %w", err)
	}

	v.keys = set
	v.fetchedAt = time.Now()
	slog.Debug("jwks refreshed", "keys", len(set.Keys))
	return nil
}

func (v *JWKSVerifier) fetch(ctx context.Context) (jose.JSONWebKeySet, error) {
	var set jose.JSONWebKeySet

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWKSURL, nil)
	if err != nil {
		return set, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if v.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.config.APIKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return set, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return set, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return set, fmt.Errorf("decode key set: %w", err)
	}
	return set, nil
}

// UnverifiedDecoder reads the subject without checking the signature or expiry.
// Any well-formed token is accepted, so it exists only for parity testing against
// deployments that never verified tokens.
type UnverifiedDecoder struct{}

// Subject decodes the token payload and returns its "sub" claim.
func (UnverifiedDecoder) Subject(_ context.Context, token string) (string, error) {
	claims := &gojwt.RegisteredClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

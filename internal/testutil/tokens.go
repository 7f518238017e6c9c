package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// TestIssuer is the "iss" claim of tokens minted by TokenIssuer.
const TestIssuer = "https://clerk.test.local"

// TokenIssuer signs session tokens with an RSA key and serves the matching JWKS.
type TokenIssuer struct {
	Server *httptest.Server
	KeyID  string
	key    *rsa.PrivateKey
}

// NewTokenIssuer generates a signing key and starts a JWKS server.
// Use this in TestMain where *testing.T is not available; call Close when done.
func NewTokenIssuer() (*TokenIssuer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}

	issuer := &TokenIssuer{KeyID: "test-key-1", key: key}

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     issuer.KeyID,
		Algorithm: "RS256",
		Use:       "sig",
	}}})
	if err != nil {
		return nil, fmt.Errorf("marshal jwks: %w", err)
	}

	issuer.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	}))
	return issuer, nil
}

// NewTestTokenIssuer is NewTokenIssuer bound to the test lifecycle.
func NewTestTokenIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer()
	if err != nil {
		t.Fatalf("create token issuer: %v", err)
	}
	t.Cleanup(issuer.Close)
	return issuer
}

// JWKSURL returns the URL serving the issuer's key set.
func (i *TokenIssuer) JWKSURL() string {
	return i.Server.URL + "/.well-known/jwks.json"
}

// Close stops the JWKS server.
func (i *TokenIssuer) Close() {
	i.Server.Close()
}

// Sign signs arbitrary claims with the issuer key.
func (i *TokenIssuer) Sign(claims gojwt.Claims) (string, error) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.KeyID
	return token.SignedString(i.key)
}

// Mint returns a valid token for subject that expires in one hour.
func (i *TokenIssuer) Mint(subject string) (string, error) {
	now := time.Now()
	return i.Sign(gojwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    TestIssuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
	})
}

// MustMint is Mint that fails the test on error.
func (i *TokenIssuer) MustMint(t *testing.T, subject string) string {
	t.Helper()

	token, err := i.Mint(subject)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

// UnsignedToken builds a token with "alg: none", accepted only by decode-only verification.
func UnsignedToken(t *testing.T, claims gojwt.Claims) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build unsigned token: %v", err)
	}
	return token
}

package identity

import "strings"

// ExtractBearerToken parses an "Authorization: Bearer <token>" header value.
// The header must consist of exactly two space-separated parts, the first of
// which equals "bearer" case-insensitively. The token itself is not inspected.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthenticated
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", ErrMalformedCredential
	}

	return parts[1], nil
}

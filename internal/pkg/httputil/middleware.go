package httputil

import (
	"context"
	"net/http"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/ctxlog"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (originsSet[origin] || originsSet["*"]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// CallerKey is the context key under which the authenticated caller is stored.
const CallerKey contextKey = "caller"

// CallerResolver turns a raw Authorization header into an authenticated caller.
type CallerResolver interface {
	Resolve(ctx context.Context, authorizationHeader string) (*domain.Caller, error)
}

// CallerPolicy decides whether a resolved caller may use a group of routes.
type CallerPolicy interface {
	Authorize(caller *domain.Caller) error
}

// AuthMiddleware resolves the caller for every request and stores it in the context.
// Resolution failures are written through HandleError with the given mappings,
// so no handler behind this middleware runs for an unauthenticated request.
func AuthMiddleware(resolver CallerResolver, mappings []ErrorMapping) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				HandleError(r.Context(), w, err, mappings)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			ctx = ctxlog.With(ctx, "user_id", caller.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePolicy rejects requests whose caller does not satisfy policy.
// It must run after AuthMiddleware.
func RequirePolicy(policy CallerPolicy, mappings []ErrorMapping) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := GetCaller(r.Context())
			if !ok {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if err := policy.Authorize(caller); err != nil {
				HandleError(r.Context(), w, err, mappings)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetCaller extracts the authenticated caller from context.
func GetCaller(ctx context.Context) (*domain.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(*domain.Caller)
	return caller, ok && caller != nil
}

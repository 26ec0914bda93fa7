package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const identityContextKey contextKey = "identity"

// protectedPrefixes lists the routes that require a session.
var protectedPrefixes = []string{
	"/api/employees",
	"/api/items",
	"/api/auth/me",
}

// HTTPMiddleware rejects unauthenticated requests to protected routes
// before any handler runs. The token is read from the session cookie, or
// from a Bearer authorization header for non-browser clients.
func HTTPMiddleware(next http.Handler, gate *Gate, logger *zap.Logger) http.Handler {
	logger = logger.Named("auth")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := gate.Verify(extractToken(r))
		if err != nil {
			logger.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored by HTTPMiddleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func isProtectedRequest(r *http.Request) bool {
	path := strings.TrimSuffix(r.URL.Path, "/")
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"unauthorized"}`))
}

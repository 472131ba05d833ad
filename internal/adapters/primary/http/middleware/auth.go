package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lorrc/fieldservice-realtime/internal/auth"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ServiceClaimsKey stores the validated service token claims.
	ServiceClaimsKey contextKey = "serviceClaims"
	// SessionUserKey stores the user id resolved from the session cookie.
	SessionUserKey contextKey = "sessionUser"
)

// ServiceAuth validates the service JWT from the Authorization header. It
// guards the internal publish API.
func ServiceAuth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Authorization header is required")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				writeUnauthorized(w, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ServiceClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionAuth authenticates browser requests with the HTTP layer's session
// cookie.
func SessionAuth(resolver ports.SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r.Context(), CookieHeader(r))
			if err != nil {
				writeUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), SessionUserKey, userID)
			ctx = logging.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetServiceClaims returns the claims stored by ServiceAuth.
func GetServiceClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ServiceClaimsKey).(*auth.Claims)
	return claims, ok
}

// GetSessionUserID returns the user id stored by SessionAuth.
func GetSessionUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(SessionUserKey).(string)
	return userID, ok && userID != ""
}

// CookieHeader joins every Cookie header of the request.
func CookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"UNAUTHORIZED"}`))
}

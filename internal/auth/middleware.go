package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/websqlsentinel/sentinel/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
)

// RequireSession validates the bearer session token and injects its claims
// into the request context.
func RequireSession(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext extracts session claims from the request context.
// Returns nil when the request did not pass through RequireSession.
func GetUserFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

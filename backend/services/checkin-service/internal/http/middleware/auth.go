package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"suctracker/backend/services/checkin-service/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authorizer validates bearer tokens.
type Authorizer interface {
	Authorize(token string) (*auth.Claims, error)
}

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeAuthError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := authorizer.Authorize(strings.TrimSpace(parts[1]))
			if errors.Is(err, auth.ErrForbidden) {
				writeAuthError(w, http.StatusForbidden, "admin role required")
				return
			}
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the token claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}` + "\n"))
}

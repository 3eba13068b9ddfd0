package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// PrincipalContextKey is the context key for the authenticated caller
	PrincipalContextKey ContextKey = "principal"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Role    domain.Role
}

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// AuthFailureRecorder counts rejected credentials by reason.
type AuthFailureRecorder func(reason string)

// AuthMiddleware creates an authentication middleware
func AuthMiddleware(verifier TokenVerifier, onFailure AuthFailureRecorder) func(http.Handler) http.Handler {
	if onFailure == nil {
		onFailure = func(string) {}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				onFailure("missing_header")
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				onFailure("malformed_header")
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, domain.ErrExpiredToken) {
					reason = "expired_token"
				}
				onFailure(reason)
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			principal := &Principal{
				Subject: claims.Subject,
				Role:    claims.Role,
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates a middleware that checks for a specific role
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
				return
			}

			allowed := false
			switch minRole {
			case domain.RoleAdmin:
				allowed = principal.Role == domain.RoleAdmin
			case domain.RoleOperator:
				allowed = principal.Role.CanMutate()
			case domain.RoleViewer:
				allowed = principal.Role.CanView()
			}

			if !allowed {
				writeJSONError(w, http.StatusForbidden, domain.ErrInsufficientRole.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipalFromContext extracts the authenticated caller from context
func GetPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return principal, ok
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

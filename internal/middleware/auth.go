package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gladowsky-Labs/brane/internal/domain/user"
	"github.com/Gladowsky-Labs/brane/internal/service"
)

type authClaimsCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":             true,
	"/api/v1/auth/signup": true,
	"/api/v1/auth/login":  true,
}

// Auth returns middleware that validates JWT credentials. Browsers cannot
// set headers on WebSocket upgrades, so /ws accepts the token as a query
// parameter instead.
func Auth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path == "/ws" {
				tokenParam := r.URL.Query().Get("token")
				if tokenParam == "" {
					http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
					return
				}
				claims, err := authSvc.ValidateAccessToken(r.Context(), tokenParam)
				if err != nil {
					http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), authClaimsCtxKey{}, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := authSvc.ValidateAccessToken(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authClaimsCtxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the token claims of the authenticated request,
// or nil when the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *user.TokenClaims {
	claims, _ := ctx.Value(authClaimsCtxKey{}).(*user.TokenClaims)
	return claims
}

// UserFromContext returns the authenticated user derived from the token
// claims, or nil when the request is unauthenticated.
func UserFromContext(ctx context.Context) *user.User {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return nil
	}
	return &user.User{
		ID:    claims.UserID,
		Email: claims.Email,
		Name:  claims.Name,
	}
}

// AuthClaimsCtxKeyForTest returns the context key used for storing claims.
// Exported only for tests that inject an authenticated user.
func AuthClaimsCtxKeyForTest() any {
	return authClaimsCtxKey{}
}

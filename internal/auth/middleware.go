package auth

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Email  string
}

type ctxKey int

const ctxKeyPrincipal ctxKey = iota

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// OptionalUser injects the Principal when a valid Bearer token is present
// and lets the request through either way. Handlers that need identity for
// a query flag (e.g. ?mine=true) check for it themselves.
func OptionalUser(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
				if claims, err := ParseAndVerifyHS256(token, secret); err == nil && claims.Sub != "" {
					r = r.WithContext(ContextWithPrincipal(r.Context(), Principal{
						UserID: claims.Sub,
						Email:  claims.Email,
					}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser verifies the Bearer token and injects the Principal into the
// request context. Requests without a valid token get 401.
func RequireUser(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			claims, err := ParseAndVerifyHS256(token, secret)
			if err != nil || claims.Sub == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), Principal{
				UserID: claims.Sub,
				Email:  claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package middleware holds the HTTP middleware stack: bearer-token auth
// that binds each request to a member identity.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/memoirhq/memoir/internal/httputil"
)

type contextKey string

const memberIDKey contextKey = "memberID"

// MemberID returns the authenticated member id from the request context.
func MemberID(ctx context.Context) string {
	id, _ := ctx.Value(memberIDKey).(string)
	return id
}

// WithMemberID injects a member id into a context. Test helper.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberIDKey, memberID)
}

// JWT validates the Authorization bearer token with the shared secret and
// stores the memberId claim on the request context.
func JWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				httputil.Unauthorized(w, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				httputil.Unauthorized(w, "invalid token")
				return
			}

			memberID, _ := claims["memberId"].(string)
			if memberID == "" {
				// Older tokens carry the member id in the subject.
				memberID, _ = claims["sub"].(string)
			}
			if memberID == "" {
				httputil.Unauthorized(w, "token has no member identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithMemberID(r.Context(), memberID)))
		})
	}
}

package api

import (
	"net/http"

	"github.com/go-chi/jwtauth"
)

// AdminGuard rejects mutating requests unless admin mode is enabled. When tokenAuth is
// non-nil, a valid bearer token (header or "jwt" cookie) is required as well.
func AdminGuard(enabled bool, tokenAuth *jwtauth.JWTAuth) Middleware {
	return func(next http.Handler) http.Handler {
		if tokenAuth != nil {
			next = jwtauth.Verifier(tokenAuth)(requireToken(next))
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				writeError(w, r, http.StatusForbidden, "Admin mode is disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireToken answers 401 when the verifier found no token or an invalid one
func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewTokenAuth returns the HS256 verifier for secret, or nil when secret is empty.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	if secret == "" {
		return nil
	}
	return jwtauth.New("HS256", []byte(secret), nil)
}

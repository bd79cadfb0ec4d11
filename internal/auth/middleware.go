package auth

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/book-catalog-api/internal/httputil"
	"github.com/redmonkez12/book-catalog-api/internal/identity"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
)

// Middleware builds the per-request identity from the session token.
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// LoadIdentity verifies the session token, if any, and attaches the identity
// to the request context. It never rejects a request: an absent, malformed or
// expired token leaves the request anonymous.
func (m *Middleware) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := tokenFromRequest(r)
		if !ok {
			logging.GetLoggerFromContext(r.Context()).Debug("ignoring malformed authorization header")
			next.ServeHTTP(w, r)
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.tokenService.Verify(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				logging.GetLoggerFromContext(r.Context()).Debug("session token expired")
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

// RequireAuth rejects requests that LoadIdentity left anonymous.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

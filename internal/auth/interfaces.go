package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redmonkez12/book-catalog-api/internal/identity"
)

var (
	// ErrUnauthenticated means the request carries no usable session. It is
	// not fatal: the request proceeds anonymously.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrExpiredToken    = fmt.Errorf("%w: token has expired", ErrUnauthenticated)
)

// TokenService issues and verifies session tokens.
// Implementations are PasetoService (v4.local) and JWTService (HS256).
type TokenService interface {
	Issue(id identity.Identity) (string, error)
	Verify(token string) (identity.Identity, error)
}

// RateLimiter throttles credential endpoints per client IP.
type RateLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
}

// EventObserver records auth outcomes, e.g. as metrics.
type EventObserver interface {
	ObserveAuth(operation, outcome string)
}

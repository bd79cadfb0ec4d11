package auth

import (
	"fmt"
	"time"

	"github.com/redmonkez12/book-catalog-api/internal/config"
)

// NewTokenService returns the token implementation selected by format.
func NewTokenService(format string, key []byte, duration time.Duration) (TokenService, error) {
	switch format {
	case config.TokenFormatPaseto:
		return NewPasetoService(key, duration)
	case config.TokenFormatJWT:
		return NewJWTService(key, duration)
	default:
		return nil, fmt.Errorf("unsupported token format %q", format)
	}
}

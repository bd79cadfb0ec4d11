package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/redmonkez12/book-catalog-api/internal/identity"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte, duration time.Duration) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		duration:     duration,
		now:          time.Now,
	}, nil
}

// Issue generates a v4.local token carrying the identity claims.
func (s *PasetoService) Issue(id identity.Identity) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetString("id", id.ID.String())
	token.SetString("name", id.Name)
	token.SetString("email", id.Email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts a v4.local token and returns its identity. Expiry is
// checked here rather than by a parser rule so that it can be reported
// distinctly.
func (s *PasetoService) Verify(tokenStr string) (identity.Identity, error) {
	if tokenStr == "" {
		return identity.Identity{}, ErrUnauthenticated
	}

	parser := paseto.MakeParser(nil)
	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return identity.Identity{}, ErrExpiredToken
	}

	rawID, err := token.GetString("id")
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}

	name, err := token.GetString("name")
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}

	return identity.Identity{ID: userID, Name: name, Email: email}, nil
}

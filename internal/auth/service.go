package auth

import (
	"context"
	"fmt"

	"github.com/redmonkez12/book-catalog-api/internal/identity"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

// Service combines the credential store with the token service.
type Service struct {
	users  *user.Store
	tokens TokenService
}

func NewService(users *user.Store, tokens TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	return s.users.Register(ctx, name, email, password)
}

func (s *Service) Confirm(ctx context.Context, email, token string) (*user.User, error) {
	return s.users.Confirm(ctx, email, token)
}

func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	return s.users.ResendConfirmation(ctx, email)
}

// Login verifies credentials and issues a session token for the user.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	u, err := s.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(identity.Identity{ID: u.ID, Name: u.Name, Email: u.Email})
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return u, token, nil
}

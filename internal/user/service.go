package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/book-catalog-api/internal/logging"
)

const (
	minPasswordLen = 6
	// bcrypt rejects longer input.
	maxPasswordLen = 72
	maxEmailLen    = 254
	// confirmTokenBytes encodes to 32 URL-safe characters.
	confirmTokenBytes = 24
)

// ConfirmationMailer delivers the confirmation token to a new account.
type ConfirmationMailer interface {
	SendConfirmationEmail(ctx context.Context, toEmail, name, token string) error
}

// Store owns user records: registration, confirmation and credential checks.
type Store struct {
	repo      *Repository
	hasher    PasswordHasher
	mailer    ConfirmationMailer
	logger    *logging.Logger
	dummyHash string
}

// NewStore builds a Store. A dummy hash is computed up front so that a login
// for an unknown email costs the same as one with a wrong password.
func NewStore(repo *Repository, hasher PasswordHasher, mailer ConfirmationMailer, logger *logging.Logger) (*Store, error) {
	seed, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy password: %w", err)
	}
	dummyHash, err := hasher.Hash(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dummy hash: %w", err)
	}

	return &Store{
		repo:      repo,
		hasher:    hasher,
		mailer:    mailer,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// Register creates an inactive account and mails its confirmation token.
func (s *Store) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	confirmToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
	}

	newUser, err := s.repo.Create(ctx, name, email, passwordHash, confirmToken)
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(newUser)

	return newUser, nil
}

// Confirm activates the account when token matches the stored one exactly.
// Confirming an already active account with its token succeeds again.
func (s *Store) Confirm(ctx context.Context, email, token string) (*User, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidConfirmation
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if token == "" || subtle.ConstantTimeCompare([]byte(existing.ConfirmToken), []byte(token)) != 1 {
		return nil, ErrInvalidConfirmation
	}

	if existing.Active {
		return existing, nil
	}

	if err := s.repo.Activate(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	existing.Active = true

	return existing, nil
}

// VerifyCredentials returns the user for a matching email/password pair.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *Store) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Compare(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existing.Active {
		return nil, ErrAccountNotConfirmed
	}

	return existing, nil
}

// FindByID retrieves a user by id.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ResendConfirmation mails the stored token again to an inactive account.
// Always returns nil to prevent email enumeration.
func (s *Store) ResendConfirmation(ctx context.Context, email string) error {
	existing, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to get user for resend confirmation", "error", err)
		}
		return nil
	}

	if existing.Active {
		return nil
	}

	s.sendConfirmation(existing)
	return nil
}

// sendConfirmation mails in the background; a mail failure never fails the
// calling operation since the token can be re-sent.
func (s *Store) sendConfirmation(u *User) {
	if s.mailer == nil {
		return
	}
	go func(email, name, token string) {
		if err := s.mailer.SendConfirmationEmail(context.Background(), email, name, token); err != nil {
			s.logger.Warn("failed to send confirmation email", "email", email, "error", err)
		}
	}(u.Email, u.Name, u.ConfirmToken)
}

func validateRegistration(name, email, password string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(email) > maxEmailLen {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLen)
	}
	return nil
}

// generateToken creates a 32 character URL-safe random token
func generateToken() (string, error) {
	b := make([]byte, confirmTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

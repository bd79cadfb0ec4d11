package user_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/book-catalog-api/internal/database/databasetest"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

type sentMail struct {
	email, name, token string
}

type fakeMailer struct {
	sent chan sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan sentMail, 8)}
}

func (m *fakeMailer) SendConfirmationEmail(_ context.Context, toEmail, name, token string) error {
	m.sent <- sentMail{email: toEmail, name: name, token: token}
	return nil
}

func (m *fakeMailer) next(t *testing.T) sentMail {
	t.Helper()
	select {
	case s := <-m.sent:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation email sent")
		return sentMail{}
	}
}

func newTestStore(t *testing.T) (*user.Store, *user.Repository, *fakeMailer) {
	t.Helper()
	repo := user.NewRepository(databasetest.NewSQLite(t))
	mailer := newFakeMailer()
	store, err := user.NewStore(repo, user.NewBcryptHasher(bcrypt.MinCost), mailer, logging.NewNopLogger())
	require.NoError(t, err)
	return store, repo, mailer
}

func TestStore_Register(t *testing.T) {
	store, repo, mailer := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.False(t, u.Active)
	assert.Len(t, u.ConfirmToken, 32)
	assert.NotEqual(t, "pw1234", u.PasswordHash)

	stored, err := repo.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, u.ConfirmToken, stored.ConfirmToken)
	assert.False(t, stored.CreatedAt.IsZero())

	mail := mailer.next(t)
	assert.Equal(t, "ann@x.com", mail.email)
	assert.Equal(t, u.ConfirmToken, mail.token)
}

func TestStore_Register_DuplicateEmail(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	_, err = store.Register(ctx, "Other Ann", "ann@x.com", "another")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestStore_Register_Validation(t *testing.T) {
	store, _, _ := newTestStore(t)

	tests := []struct {
		name, userName, email, password string
	}{
		{"empty name", "", "a@b.com", "pw1234"},
		{"blank name", "   ", "a@b.com", "pw1234"},
		{"empty email", "Ann", "", "pw1234"},
		{"bad email", "Ann", "not-an-email", "pw1234"},
		{"display-name email", "Ann", "Ann <a@b.com>", "pw1234"},
		{"long email", "Ann", strings.Repeat("a", 250) + "@b.com", "pw1234"},
		{"short password", "Ann", "a@b.com", "pw1"},
		{"long password", "Ann", "a@b.com", strings.Repeat("p", 80)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Register(context.Background(), tc.userName, tc.email, tc.password)
			assert.ErrorIs(t, err, user.ErrValidation)
		})
	}
}

func TestStore_Confirm(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	_, err = store.Confirm(ctx, "ann@x.com", "wrong-token")
	assert.ErrorIs(t, err, user.ErrInvalidConfirmation)

	_, err = store.Confirm(ctx, "ann@x.com", strings.ToUpper(u.ConfirmToken))
	if strings.ToUpper(u.ConfirmToken) != u.ConfirmToken {
		assert.ErrorIs(t, err, user.ErrInvalidConfirmation, "comparison must be case-sensitive")
	}

	_, err = store.Confirm(ctx, "nobody@x.com", u.ConfirmToken)
	assert.ErrorIs(t, err, user.ErrInvalidConfirmation)

	_, err = store.Confirm(ctx, "ann@x.com", "")
	assert.ErrorIs(t, err, user.ErrInvalidConfirmation)

	confirmed, err := store.Confirm(ctx, "ann@x.com", u.ConfirmToken)
	require.NoError(t, err)
	assert.True(t, confirmed.Active)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestStore_Confirm_AlreadyActive(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	_, err = store.Confirm(ctx, "ann@x.com", u.ConfirmToken)
	require.NoError(t, err)

	again, err := store.Confirm(ctx, "ann@x.com", u.ConfirmToken)
	require.NoError(t, err)
	assert.True(t, again.Active)

	_, err = store.Confirm(ctx, "ann@x.com", "some-other-token")
	assert.ErrorIs(t, err, user.ErrInvalidConfirmation)
}

func TestStore_VerifyCredentials(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	_, err = store.VerifyCredentials(ctx, "ann@x.com", "pw1234")
	assert.ErrorIs(t, err, user.ErrAccountNotConfirmed)

	_, err = store.VerifyCredentials(ctx, "ann@x.com", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = store.Confirm(ctx, "ann@x.com", u.ConfirmToken)
	require.NoError(t, err)

	got, err := store.VerifyCredentials(ctx, "ann@x.com", "pw1234")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = store.VerifyCredentials(ctx, "ann@x.com", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = store.VerifyCredentials(ctx, "nobody@x.com", "pw1234")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

type countingHasher struct {
	user.PasswordHasher
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Compare(encodedHash, password string) bool {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.PasswordHasher.Compare(encodedHash, password)
}

func (h *countingHasher) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

func TestStore_VerifyCredentials_UnknownEmailStillCompares(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: user.NewBcryptHasher(bcrypt.MinCost)}
	repo := user.NewRepository(databasetest.NewSQLite(t))
	store, err := user.NewStore(repo, hasher, newFakeMailer(), logging.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.VerifyCredentials(ctx, "nobody@x.com", "pw1234")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.count())

	_, err = store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	_, err = store.VerifyCredentials(ctx, "ann@x.com", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Equal(t, 2, hasher.count())
}

func TestStore_FindByID(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)

	got, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Public{ID: u.ID, Name: "Ann", Email: "ann@x.com"}, got.Public())

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestStore_ResendConfirmation(t *testing.T) {
	store, _, mailer := newTestStore(t)
	ctx := context.Background()

	u, err := store.Register(ctx, "Ann", "ann@x.com", "pw1234")
	require.NoError(t, err)
	mailer.next(t)

	require.NoError(t, store.ResendConfirmation(ctx, "ann@x.com"))
	assert.Equal(t, u.ConfirmToken, mailer.next(t).token)

	assert.NoError(t, store.ResendConfirmation(ctx, "nobody@x.com"))

	_, err = store.Confirm(ctx, "ann@x.com", u.ConfirmToken)
	require.NoError(t, err)
	assert.NoError(t, store.ResendConfirmation(ctx, "ann@x.com"))

	select {
	case m := <-mailer.sent:
		t.Fatalf("unexpected mail to %s", m.email)
	case <-time.After(100 * time.Millisecond):
	}
}

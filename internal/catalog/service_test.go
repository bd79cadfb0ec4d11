package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/database/databasetest"
	"github.com/redmonkez12/book-catalog-api/internal/identity"
)

func newTestService(t *testing.T) *catalog.Service {
	t.Helper()
	db := databasetest.NewSQLite(t)
	return catalog.NewService(catalog.NewAuthorRepository(db), catalog.NewBookRepository(db))
}

func newActor() *identity.Identity {
	return &identity.Identity{ID: uuid.New(), Name: "Ann", Email: "ann@x.com"}
}

func bookInput(authorID uuid.UUID) catalog.BookInput {
	return catalog.BookInput{Title: "T", ISBN: "12345", Rate: 4.5, Publisher: "P", Author: authorID.String()}
}

func TestService_MutationsRequireActor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.CreateAuthor(ctx, nil, catalog.AuthorInput{Name: "A"})
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
	_, err = svc.UpdateAuthor(ctx, nil, id, catalog.AuthorInput{Name: "A"})
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
	_, err = svc.DeleteAuthor(ctx, nil, id)
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
	_, err = svc.CreateBook(ctx, nil, bookInput(id))
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
	_, err = svc.UpdateBook(ctx, nil, id, bookInput(id))
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
	_, err = svc.DeleteBook(ctx, nil, id)
	assert.ErrorIs(t, err, catalog.ErrUnauthenticated)
}

func TestService_AuthorLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := newActor()

	created, err := svc.CreateAuthor(ctx, actor, catalog.AuthorInput{Name: "Ursula"})
	require.NoError(t, err)
	assert.Equal(t, "Ursula", created.Name)
	assert.Equal(t, actor.ID, created.CreatedBy)
	assert.False(t, created.CreatedAt.IsZero())

	other := newActor()
	updated, err := svc.UpdateAuthor(ctx, other, created.ID, catalog.AuthorInput{Name: "Ursula K."})
	require.NoError(t, err)
	assert.Equal(t, "Ursula K.", updated.Name)
	assert.Equal(t, actor.ID, updated.CreatedBy, "updates keep the creator")

	list, err := svc.Authors().FindMany(ctx, catalog.AuthorFilter{CreatedBy: &actor.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = svc.Authors().FindMany(ctx, catalog.AuthorFilter{CreatedBy: &other.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := svc.DeleteAuthor(ctx, actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, &catalog.DeletedAuthor{ID: created.ID, Name: "Ursula K."}, deleted)

	_, err = svc.Authors().FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = svc.UpdateAuthor(ctx, actor, created.ID, catalog.AuthorInput{Name: "X"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestService_BookLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := newActor()

	author, err := svc.CreateAuthor(ctx, actor, catalog.AuthorInput{Name: "A"})
	require.NoError(t, err)
	second, err := svc.CreateAuthor(ctx, actor, catalog.AuthorInput{Name: "B"})
	require.NoError(t, err)

	book, err := svc.CreateBook(ctx, actor, bookInput(author.ID))
	require.NoError(t, err)
	assert.Equal(t, "T", book.Title)
	assert.Equal(t, "12345", book.ISBN)
	assert.InDelta(t, 4.5, book.Rate, 1e-9)
	assert.Equal(t, author.ID, book.AuthorID)
	assert.Equal(t, actor.ID, book.CreatedBy)

	byAuthor, err := svc.Books().FindByAuthorID(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, book.ID, byAuthor[0].ID)

	in := bookInput(second.ID)
	in.Title = "T2"
	in.Rate = 3
	updated, err := svc.UpdateBook(ctx, actor, book.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, second.ID, updated.AuthorID)
	assert.InDelta(t, 3.0, updated.Rate, 1e-9)

	byAuthor, err = svc.Books().FindByAuthorID(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, byAuthor)

	deleted, err := svc.DeleteBook(ctx, actor, book.ID)
	require.NoError(t, err)
	assert.Equal(t, &catalog.DeletedBook{ID: book.ID, Title: "T2"}, deleted)

	_, err = svc.DeleteBook(ctx, actor, book.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound, "second delete of the same id")
}

func TestService_BookRequiresExistingAuthor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := newActor()

	_, err := svc.CreateBook(ctx, actor, bookInput(uuid.New()))
	assert.ErrorIs(t, err, catalog.ErrValidation)

	in := bookInput(uuid.New())
	in.ISBN = "1"
	_, err = svc.CreateBook(ctx, actor, in)
	assert.ErrorIs(t, err, catalog.ErrValidation)
}

func TestService_DeleteAuthorKeepsBooks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := newActor()

	author, err := svc.CreateAuthor(ctx, actor, catalog.AuthorInput{Name: "A"})
	require.NoError(t, err)
	book, err := svc.CreateBook(ctx, actor, bookInput(author.ID))
	require.NoError(t, err)

	_, err = svc.DeleteAuthor(ctx, actor, author.ID)
	require.NoError(t, err)

	kept, err := svc.Books().FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, kept.AuthorID)

	all, err := svc.Books().FindMany(ctx, catalog.BookFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

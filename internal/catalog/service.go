package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/book-catalog-api/internal/identity"
)

// Service validates catalog writes and enforces that only an identified
// caller may mutate. The actor is always passed explicitly; nil means the
// request is anonymous.
type Service struct {
	authors *AuthorRepository
	books   *BookRepository
}

func NewService(authors *AuthorRepository, books *BookRepository) *Service {
	return &Service{authors: authors, books: books}
}

func (s *Service) Authors() *AuthorRepository { return s.authors }

func (s *Service) Books() *BookRepository { return s.books }

func (s *Service) CreateAuthor(ctx context.Context, actor *identity.Identity, in AuthorInput) (*Author, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	in, err := validateAuthor(in)
	if err != nil {
		return nil, err
	}
	return s.authors.Create(ctx, in, actor.ID)
}

// UpdateAuthor replaces the author's name. The original creator is kept.
func (s *Service) UpdateAuthor(ctx context.Context, actor *identity.Identity, id uuid.UUID, in AuthorInput) (*Author, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	in, err := validateAuthor(in)
	if err != nil {
		return nil, err
	}
	return s.authors.Update(ctx, id, in)
}

// DeleteAuthor removes the author only. Its books keep the dangling
// reference and resolve their author to null afterwards.
func (s *Service) DeleteAuthor(ctx context.Context, actor *identity.Identity, id uuid.UUID) (*DeletedAuthor, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.authors.Delete(ctx, id)
}

func (s *Service) CreateBook(ctx context.Context, actor *identity.Identity, in BookInput) (*Book, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	fields, err := s.validateBook(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.books.Create(ctx, fields, actor.ID)
}

func (s *Service) UpdateBook(ctx context.Context, actor *identity.Identity, id uuid.UUID, in BookInput) (*Book, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	fields, err := s.validateBook(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.books.Update(ctx, id, fields)
}

func (s *Service) DeleteBook(ctx context.Context, actor *identity.Identity, id uuid.UUID) (*DeletedBook, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.books.Delete(ctx, id)
}

// validateBook also requires the referenced author to exist at write time.
func (s *Service) validateBook(ctx context.Context, in BookInput) (BookFields, error) {
	fields, err := validateBook(in)
	if err != nil {
		return BookFields{}, err
	}

	if _, err := s.authors.FindByID(ctx, fields.AuthorID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return BookFields{}, fmt.Errorf("%w: author does not exist", ErrValidation)
		}
		return BookFields{}, err
	}

	return fields, nil
}

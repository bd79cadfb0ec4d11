package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/book-catalog-api/internal/database"
)

// BookRepository handles book persistence
type BookRepository struct {
	db bun.IDB
}

func NewBookRepository(db bun.IDB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) FindByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	dbBook := new(database.Book)
	err := r.db.NewSelect().
		Model(dbBook).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book by id: %w", err)
	}

	return mapDBBookToModel(dbBook), nil
}

// FindMany returns every book matching filter, oldest first.
func (r *BookRepository) FindMany(ctx context.Context, filter BookFilter) ([]*Book, error) {
	var dbBooks []database.Book
	q := r.db.NewSelect().
		Model(&dbBooks).
		Order("created_at ASC")
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	books := make([]*Book, 0, len(dbBooks))
	for i := range dbBooks {
		books = append(books, mapDBBookToModel(&dbBooks[i]))
	}
	return books, nil
}

// FindByAuthorID lists the books referencing authorID.
func (r *BookRepository) FindByAuthorID(ctx context.Context, authorID uuid.UUID) ([]*Book, error) {
	return r.FindMany(ctx, BookFilter{AuthorID: &authorID})
}

func (r *BookRepository) Create(ctx context.Context, in BookFields, createdBy uuid.UUID) (*Book, error) {
	dbBook := &database.Book{
		ID:        uuid.New(),
		Title:     in.Title,
		ISBN:      in.ISBN,
		Rate:      in.Rate,
		Publisher: in.Publisher,
		AuthorID:  in.AuthorID,
		CreatedBy: createdBy,
	}

	_, err := r.db.NewInsert().
		Model(dbBook).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	return mapDBBookToModel(dbBook), nil
}

// Update replaces the mutable fields and returns the stored record.
func (r *BookRepository) Update(ctx context.Context, id uuid.UUID, in BookFields) (*Book, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Book)(nil)).
		Set("title = ?", in.Title).
		Set("isbn = ?", in.ISBN).
		Set("rate = ?", in.Rate).
		Set("publisher = ?", in.Publisher).
		Set("author_id = ?", in.AuthorID).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	if err := checkRowsAffected(result); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

func (r *BookRepository) Delete(ctx context.Context, id uuid.UUID) (*DeletedBook, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := r.db.NewDelete().
		Model((*database.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}

	if err := checkRowsAffected(result); err != nil {
		return nil, err
	}

	return &DeletedBook{ID: existing.ID, Title: existing.Title}, nil
}

func mapDBBookToModel(b *database.Book) *Book {
	return &Book{
		ID:        b.ID,
		Title:     b.Title,
		ISBN:      b.ISBN,
		Rate:      b.Rate,
		Publisher: b.Publisher,
		AuthorID:  b.AuthorID,
		CreatedBy: b.CreatedBy,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

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

// AuthorRepository handles author persistence
type AuthorRepository struct {
	db bun.IDB
}

func NewAuthorRepository(db bun.IDB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) FindByID(ctx context.Context, id uuid.UUID) (*Author, error) {
	dbAuthor := new(database.Author)
	err := r.db.NewSelect().
		Model(dbAuthor).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get author by id: %w", err)
	}

	return mapDBAuthorToModel(dbAuthor), nil
}

// FindMany returns every author matching filter, oldest first.
func (r *AuthorRepository) FindMany(ctx context.Context, filter AuthorFilter) ([]*Author, error) {
	var dbAuthors []database.Author
	q := r.db.NewSelect().
		Model(&dbAuthors).
		Order("created_at ASC")
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}

	authors := make([]*Author, 0, len(dbAuthors))
	for i := range dbAuthors {
		authors = append(authors, mapDBAuthorToModel(&dbAuthors[i]))
	}
	return authors, nil
}

func (r *AuthorRepository) Create(ctx context.Context, in AuthorInput, createdBy uuid.UUID) (*Author, error) {
	dbAuthor := &database.Author{
		ID:        uuid.New(),
		Name:      in.Name,
		CreatedBy: createdBy,
	}

	_, err := r.db.NewInsert().
		Model(dbAuthor).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}

	return mapDBAuthorToModel(dbAuthor), nil
}

// Update replaces the mutable fields and returns the stored record.
func (r *AuthorRepository) Update(ctx context.Context, id uuid.UUID, in AuthorInput) (*Author, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Author)(nil)).
		Set("name = ?", in.Name).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update author: %w", err)
	}

	if err := checkRowsAffected(result); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

func (r *AuthorRepository) Delete(ctx context.Context, id uuid.UUID) (*DeletedAuthor, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := r.db.NewDelete().
		Model((*database.Author)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete author: %w", err)
	}

	if err := checkRowsAffected(result); err != nil {
		return nil, err
	}

	return &DeletedAuthor{ID: existing.ID, Name: existing.Name}, nil
}

func mapDBAuthorToModel(a *database.Author) *Author {
	return &Author{
		ID:        a.ID,
		Name:      a.Name,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// checkRowsAffected maps a write that matched nothing to ErrNotFound.
func checkRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	minISBNLen = 5
	minRate    = 0
	maxRate    = 5
)

func validateAuthor(in AuthorInput) (AuthorInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return AuthorInput{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return in, nil
}

// validateBook checks field formats only. Whether the author exists is
// checked by the service.
func validateBook(in BookInput) (BookFields, error) {
	fields := BookFields{
		Title:     strings.TrimSpace(in.Title),
		ISBN:      strings.TrimSpace(in.ISBN),
		Rate:      in.Rate,
		Publisher: strings.TrimSpace(in.Publisher),
	}

	if fields.Title == "" {
		return BookFields{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(fields.ISBN) < minISBNLen {
		return BookFields{}, fmt.Errorf("%w: isbn must be at least %d characters", ErrValidation, minISBNLen)
	}
	if math.IsNaN(fields.Rate) || math.IsInf(fields.Rate, 0) || fields.Rate < minRate || fields.Rate > maxRate {
		return BookFields{}, fmt.Errorf("%w: rate must be a number between %d and %d", ErrValidation, minRate, maxRate)
	}
	if fields.Publisher == "" {
		return BookFields{}, fmt.Errorf("%w: publisher is required", ErrValidation)
	}

	authorID, err := uuid.Parse(strings.TrimSpace(in.Author))
	if err != nil {
		return BookFields{}, fmt.Errorf("%w: author must be a valid id", ErrValidation)
	}
	fields.AuthorID = authorID

	return fields, nil
}

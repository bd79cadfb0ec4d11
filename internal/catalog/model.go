package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Author struct {
	ID        uuid.UUID
	Name      string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Book struct {
	ID        uuid.UUID
	Title     string
	ISBN      string
	Rate      float64
	Publisher string
	AuthorID  uuid.UUID
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthorInput holds the client-writable fields of an author.
type AuthorInput struct {
	Name string `json:"name"`
}

// BookInput holds the client-writable fields of a book. Author is the raw
// author id as sent by the client; it is parsed during validation.
type BookInput struct {
	Title     string  `json:"title"`
	ISBN      string  `json:"isbn"`
	Rate      float64 `json:"rate"`
	Publisher string  `json:"publisher"`
	Author    string  `json:"author"`
}

// DeletedAuthor is the confirmation returned by an author delete.
type DeletedAuthor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DeletedBook is the confirmation returned by a book delete.
type DeletedBook struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type AuthorFilter struct {
	CreatedBy *uuid.UUID
}

type BookFilter struct {
	AuthorID  *uuid.UUID
	CreatedBy *uuid.UUID
}

// BookFields is a validated BookInput with the author id parsed.
type BookFields struct {
	Title     string
	ISBN      string
	Rate      float64
	Publisher string
	AuthorID  uuid.UUID
}

package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

// Kind tags the entity held by a Node.
type Kind string

const (
	KindUser   Kind = "User"
	KindAuthor Kind = "Author"
	KindBook   Kind = "Book"
)

// Node is a tagged entity. Exactly the field matching Kind is set.
type Node struct {
	Kind   Kind
	User   *user.User
	Author *catalog.Author
	Book   *catalog.Book
}

func UserNode(u *user.User) Node        { return Node{Kind: KindUser, User: u} }
func AuthorNode(a *catalog.Author) Node { return Node{Kind: KindAuthor, Author: a} }
func BookNode(b *catalog.Book) Node     { return Node{Kind: KindBook, Book: b} }

type scalarFunc func(n Node) any

type scalarField struct {
	name  string
	value scalarFunc
}

// scalars lists the plain fields of each kind in their default order. Users
// expose identity fields only.
var scalars = map[Kind][]scalarField{
	KindUser: {
		{"id", func(n Node) any { return n.User.ID }},
		{"name", func(n Node) any { return n.User.Name }},
		{"email", func(n Node) any { return n.User.Email }},
	},
	KindAuthor: {
		{"id", func(n Node) any { return n.Author.ID }},
		{"name", func(n Node) any { return n.Author.Name }},
		{"createdAt", func(n Node) any { return n.Author.CreatedAt }},
		{"updatedAt", func(n Node) any { return n.Author.UpdatedAt }},
	},
	KindBook: {
		{"id", func(n Node) any { return n.Book.ID }},
		{"title", func(n Node) any { return n.Book.Title }},
		{"isbn", func(n Node) any { return n.Book.ISBN }},
		{"rate", func(n Node) any { return n.Book.Rate }},
		{"publisher", func(n Node) any { return n.Book.Publisher }},
		{"createdAt", func(n Node) any { return n.Book.CreatedAt }},
		{"updatedAt", func(n Node) any { return n.Book.UpdatedAt }},
	},
}

// RelationFunc loads the entities a relation field points at. A single
// valued relation returns at most one node.
type RelationFunc func(ctx context.Context, r *Resolver, parent Node) ([]Node, error)

type relationKey struct {
	kind  Kind
	field string
}

type relation struct {
	target  Kind
	many    bool
	resolve RelationFunc
}

// relations is the dispatch table for every relation field.
var relations = map[relationKey]relation{
	{KindBook, "author"}:      {target: KindAuthor, resolve: resolveBookAuthor},
	{KindBook, "createdBy"}:   {target: KindUser, resolve: resolveCreatedBy},
	{KindAuthor, "createdBy"}: {target: KindUser, resolve: resolveCreatedBy},
	{KindAuthor, "books"}:     {target: KindBook, many: true, resolve: resolveAuthorBooks},
}

func resolveBookAuthor(ctx context.Context, r *Resolver, parent Node) ([]Node, error) {
	a, err := r.authors.FindByID(ctx, parent.Book.AuthorID)
	if err != nil {
		return nil, err
	}
	return []Node{AuthorNode(a)}, nil
}

func resolveCreatedBy(ctx context.Context, r *Resolver, parent Node) ([]Node, error) {
	u, err := r.users.FindByID(ctx, parent.creatorID())
	if err != nil {
		return nil, err
	}
	return []Node{UserNode(u)}, nil
}

func resolveAuthorBooks(ctx context.Context, r *Resolver, parent Node) ([]Node, error) {
	books, err := r.books.FindByAuthorID(ctx, parent.Author.ID)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, len(books))
	for i, b := range books {
		nodes[i] = BookNode(b)
	}
	return nodes, nil
}

func (n Node) creatorID() uuid.UUID {
	switch n.Kind {
	case KindAuthor:
		return n.Author.CreatedBy
	case KindBook:
		return n.Book.CreatedBy
	default:
		return uuid.Nil
	}
}

// DefaultSelection is every scalar field of kind.
func DefaultSelection(kind Kind) Selection {
	fields := scalars[kind]
	sel := make(Selection, len(fields))
	for i, f := range fields {
		sel[i] = Field{Name: f.name}
	}
	return sel
}

// Bind checks sel against the fields of kind and fills in default scalar
// fields for the root and for relations selected without braces. A nil sel
// selects every scalar field.
func Bind(kind Kind, sel Selection) (Selection, error) {
	if len(sel) == 0 {
		return DefaultSelection(kind), nil
	}

	bound := make(Selection, 0, len(sel))
	for _, f := range sel {
		if rel, ok := relations[relationKey{kind, f.Name}]; ok {
			sub, err := Bind(rel.target, f.Sub)
			if err != nil {
				return nil, err
			}
			bound = append(bound, Field{Name: f.Name, Sub: sub})
			continue
		}

		if _, ok := lookupScalar(kind, f.Name); !ok {
			return nil, fmt.Errorf("%w: unknown field %q on %s", ErrInvalidSelection, f.Name, kind)
		}
		if len(f.Sub) > 0 {
			return nil, fmt.Errorf("%w: field %q on %s has no subfields", ErrInvalidSelection, f.Name, kind)
		}
		bound = append(bound, Field{Name: f.Name})
	}
	return bound, nil
}

// Compile parses raw and binds it to kind.
func Compile(kind Kind, raw string) (Selection, error) {
	sel, err := ParseSelection(raw)
	if err != nil {
		return nil, err
	}
	return Bind(kind, sel)
}

func lookupScalar(kind Kind, name string) (scalarFunc, bool) {
	for _, f := range scalars[kind] {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

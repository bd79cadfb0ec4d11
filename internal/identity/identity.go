// Package identity carries the authenticated caller of a request.
//
// The value is attached once by the auth middleware. Handlers read it with
// FromContext and pass it explicitly to services and the resolver; nothing
// below the handler layer looks it up from a context.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the set of claims carried by a session token.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Actor is FromContext in the pointer form services accept: nil means
// anonymous.
func Actor(ctx context.Context) *Identity {
	id, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}

// Package identity extracts the acting user from incoming requests. The
// engine trusts identities as already authenticated; this package only
// resolves who the caller claims to be, either from a trusted-proxy header
// or from a JWT bearer token.
package identity

import "context"

// ctxKey is an unexported type used as the context key for the actor.
type ctxKey struct{}

// WithActor returns a new context with the given actor ID attached.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actorID)
}

// ActorFromContext retrieves the actor ID from the context, or "" if unset.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(ctxKey{}).(string)
	return actor
}

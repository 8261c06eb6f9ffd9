// Package scope carries the acting owner's identity on a
// context.Context. The engine treats the owner as opaque data; the API
// layer uses it for per-owner rate limiting and the stores use it to
// stamp records.
package scope

import "context"

type ownerKey struct{}

// WithOwner attaches an owner identifier to the context. An empty owner
// returns the context unchanged.
func WithOwner(ctx context.Context, owner string) context.Context {
	if owner == "" {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom extracts the owner identifier from the context.
// Returns "" when no owner is present.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

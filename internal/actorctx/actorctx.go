package actorctx

import "context"

type ctxKey struct{}

// Actor is the authenticated caller as decoded from the bearer token.
type Actor struct {
	ID    string
	Email string
	Role  string
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a, ok := From(ctx)
	return a.ID, ok
}

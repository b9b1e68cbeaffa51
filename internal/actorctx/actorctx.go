package actorctx

import "context"

type ctxKey struct{}

// Actor is the authenticated caller behind a request.
type Actor struct {
	UserID string
	Role   string
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)

	return a, ok && a.UserID != ""
}

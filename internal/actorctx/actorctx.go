// Package actorctx carries the authenticated caller on a request context so
// services can attribute audit log lines without depending on the HTTP layer.
package actorctx

import (
	"context"

	"github.com/geocoder89/userhub/internal/domain/user"
)

type ctxKey struct{}

type Actor struct {
	UserID   int64
	Username string
	Role     user.Role
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)

	return a, ok && a.UserID != 0
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	a, ok := ActorFrom(ctx)
	return a.UserID, ok
}

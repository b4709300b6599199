package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor injects the authenticated caller into the context.
func WithActor(ctx context.Context, actor permissions.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (permissions.Actor, bool) {
	if ctx == nil {
		return permissions.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(permissions.Actor)
	if !ok || actor.UserID == uuid.Nil || actor.OrganizationID == uuid.Nil {
		return permissions.Actor{}, false
	}
	return actor, true
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func OrganizationIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.OrganizationID.String()
	}
	return ""
}

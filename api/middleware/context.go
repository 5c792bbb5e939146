package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/internal/workflow"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxUserName  contextKey = "user_name"
	ctxUserPhone contextKey = "user_phone"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

func UserNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserName).(string); ok {
		return v
	}
	return ""
}

func UserPhoneFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserPhone).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext assembles the workflow actor seeded by the auth middleware.
func ActorFromContext(ctx context.Context) workflow.Actor {
	return workflow.Actor{
		ID:   UserIDFromContext(ctx),
		Role: RoleFromContext(ctx),
		Name: UserNameFromContext(ctx),
	}
}

// WithActor injects actor identity into the context. Exposed for tests.
func WithActor(ctx context.Context, actor workflow.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.ID)
	ctx = context.WithValue(ctx, ctxRole, actor.Role)
	return context.WithValue(ctx, ctxUserName, actor.Name)
}

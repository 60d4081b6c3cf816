// Package requestctx carries the authenticated actor through request contexts.
package requestctx

import "context"

// Role distinguishes admin sessions from evaluator sessions.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEvaluator Role = "evaluator"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	Role Role
	// ID is the evaluator id for evaluator sessions; empty for admins.
	ID string
	// Email is the login email the evaluator session was issued for.
	Email string
}

type actorContextKey struct{}

// WithActor stores the authenticated actor in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// EvaluatorIDFromContext returns the evaluator id of an evaluator session.
func EvaluatorIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != RoleEvaluator {
		return ""
	}
	return actor.ID
}

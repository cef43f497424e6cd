package application

import "context"

type actorKey struct{}

// ContextWithActor records who is acting on behalf of the current request.
// Audit events published by the services carry this identity.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the identity stored by ContextWithActor.
func ActorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey{}).(string)
	return actor, ok && actor != ""
}

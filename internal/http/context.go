package http

import (
	"context"
	"log/slog"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/logging"
)

// RequesterHeader carries the caller identity when the body does not.
const RequesterHeader = "X-Requester-ID"

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithRequesterID returns a derived context carrying the caller identity.
func ContextWithRequesterID(ctx context.Context, requesterID string) context.Context {
	return application.ContextWithActor(ctx, requesterID)
}

// RequesterIDFromContext extracts the caller identity placed by RequesterIdentity.
func RequesterIDFromContext(ctx context.Context) (string, bool) {
	return application.ActorFromContext(ctx)
}

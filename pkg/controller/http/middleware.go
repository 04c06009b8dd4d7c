package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// ActorHeader names the staff member making the request. Authentication
// happens in front of this service.
const ActorHeader = "X-Actor-ID"

type contextKey string

const actorKey contextKey = "actor"

// requestContext stores the actor and a request-scoped logger in the context
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor := r.Header.Get(ActorHeader)

		logger := logging.From(ctx).With(
			"request_id", middleware.GetReqID(ctx),
			"actor", actor,
		)
		ctx = logging.With(ctx, logger)
		ctx = context.WithValue(ctx, actorKey, actor)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the actor of the request. An empty actor is rejected by
// the use cases that change state.
func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return ""
}

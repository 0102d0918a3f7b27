package httpx

import (
	"context"
	"net/http"
	"strings"
)

// Actor identity is asserted by the fronting web application, which owns the
// real user session, and forwarded on these headers.
const (
	HeaderActorEmail  = "X-Actor-Email"
	HeaderActorName   = "X-Actor-Name"
	HeaderActorAvatar = "X-Actor-Avatar"
)

type actorContextKey struct{}

// Actor is the principal performing the current request.
type Actor struct {
	Email  string
	Name   string
	Avatar string
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// ActorMiddleware reads the forwarded actor headers into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{
			Email:  strings.TrimSpace(r.Header.Get(HeaderActorEmail)),
			Name:   strings.TrimSpace(r.Header.Get(HeaderActorName)),
			Avatar: strings.TrimSpace(r.Header.Get(HeaderActorAvatar)),
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

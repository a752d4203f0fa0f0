package shared

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ActorHeader carries the authenticated actor id set by the upstream auth proxy.
const ActorHeader = "X-Actor-ID"

// Actor identifies who issued a request and from where.
type Actor struct {
	ID       int64
	SourceIP string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ActorFromRequest reads the actor header and the client address. ID is zero
// when the header is absent.
func ActorFromRequest(r *http.Request) (Actor, error) {
	actor := Actor{SourceIP: clientIP(r.RemoteAddr)}
	raw := strings.TrimSpace(r.Header.Get(ActorHeader))
	if raw == "" {
		return actor, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return actor, ErrInvalidActor
	}
	actor.ID = id
	return actor, nil
}

// RequireActor returns the request actor or ErrActorRequired.
func RequireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID <= 0 {
		return Actor{}, ErrActorRequired
	}
	return actor, nil
}

// clientIP strips the port chi's RealIP leaves untouched on RemoteAddr.
func clientIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

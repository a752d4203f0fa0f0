package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set(ActorHeader, " 42 ")

	actor, err := ActorFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: 42, SourceIP: "10.0.0.7"}, actor)
}

func TestActorFromRequestWithoutHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9"

	actor, err := ActorFromRequest(req)
	require.NoError(t, err)
	assert.Zero(t, actor.ID)
	assert.Equal(t, "192.168.1.9", actor.SourceIP)
}

func TestActorFromRequestRejectsMalformedHeader(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ActorHeader, raw)
		_, err := ActorFromRequest(req)
		assert.ErrorIs(t, err, ErrInvalidActor, raw)
	}
}

func TestRequireActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := RequireActor(req.Context())
	assert.ErrorIs(t, err, ErrActorRequired)

	ctx := ContextWithActor(req.Context(), Actor{ID: 3})
	actor, err := RequireActor(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, actor.ID)
}

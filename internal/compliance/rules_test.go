package compliance

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeguard/timeguard/internal/platform/cache"
)

func newCachedSource(t *testing.T, loader RuleLoader) *RuleSource {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRuleSource(loader, cache.NewVersioned(client, "test:compliance", time.Minute), nil)
}

func TestNewRuleSetOrdersAndFilters(t *testing.T) {
	set := NewRuleSet([]BreakRule{
		{ID: 1, MinWorkMinutes: 360, Active: true},
		{ID: 2, MinWorkMinutes: 540, Active: true},
		{ID: 3, MinWorkMinutes: 900, Active: false},
	}, time.Time{})

	rules := set.Rules()
	require.Len(t, rules, 2)
	assert.EqualValues(t, 2, rules[0].ID)
	assert.EqualValues(t, 1, rules[1].ID)

	rules[0].MinBreakMinutes = 999
	assert.Zero(t, set.Rules()[0].MinBreakMinutes)
}

func TestRuleSourceServesCachedSnapshotUntilReload(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{rules: []BreakRule{{ID: 1, Name: "six", MinWorkMinutes: 360, MinBreakMinutes: 30, Active: true}}}
	source := newCachedSource(t, loader)

	first, err := source.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Len())

	loader.rules = append(loader.rules, BreakRule{ID: 2, Name: "nine", MinWorkMinutes: 540, MinBreakMinutes: 45, Active: true})
	second, err := source.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, 1, loader.calls)

	reloaded, err := source.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	assert.Equal(t, 2, loader.calls)
	assert.Equal(t, "nine", reloaded.Rules()[0].Name)
}

func TestRuleSourceWithoutCacheLoadsEveryTime(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{}
	source := NewRuleSource(loader, nil, nil)

	_, err := source.Snapshot(ctx)
	require.NoError(t, err)
	_, err = source.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestRuleSourcePropagatesLoaderError(t *testing.T) {
	source := newCachedSource(t, &stubLoader{err: errStorage})

	_, err := source.Snapshot(context.Background())
	assert.ErrorIs(t, err, errStorage)
}

func TestRuleSourceFallsBackWhenCacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	loader := &stubLoader{rules: []BreakRule{{ID: 1, MinWorkMinutes: 360, MinBreakMinutes: 30, Active: true}}}
	source := NewRuleSource(loader, cache.NewVersioned(client, "test:compliance", time.Minute), nil)
	mr.Close()

	set, err := source.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, loader.calls)
}

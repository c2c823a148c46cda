package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestMembershipAbsentMeansRecheck(t *testing.T) {
	_, rdb := testClient(t)
	m := NewMembership(rdb, 15*time.Minute)

	_, found, err := m.Get(context.Background(), "@chan", 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMembershipRoundTrip(t *testing.T) {
	_, rdb := testClient(t)
	m := NewMembership(rdb, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "@chan", 42, true))
	member, found, err := m.Get(ctx, "@chan", 42)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, member)

	require.NoError(t, m.Set(ctx, "@chan", 43, false))
	member, found, err = m.Get(ctx, "@chan", 43)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, member, "negative results are cached too")
}

func TestMembershipExpiresAfterTTL(t *testing.T) {
	mr, rdb := testClient(t)
	m := NewMembership(rdb, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "@chan", 42, false))

	mr.FastForward(14 * time.Minute)
	_, found, err := m.Get(ctx, "@chan", 42)
	require.NoError(t, err)
	assert.True(t, found, "entry within TTL is served from cache")

	mr.FastForward(2 * time.Minute)
	_, found, err = m.Get(ctx, "@chan", 42)
	require.NoError(t, err)
	assert.False(t, found, "expired entry reads as absent")
}

func TestMembershipKeysAreScoped(t *testing.T) {
	_, rdb := testClient(t)
	m := NewMembership(rdb, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "@chanA", 42, true))

	_, found, err := m.Get(ctx, "@chanB", 42)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = m.Get(ctx, "@chanA", 43)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTasksRoundTrip(t *testing.T) {
	_, rdb := testClient(t)
	tasks := NewTasks(rdb)
	ctx := context.Background()

	got, err := tasks.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	want := []string{"Join the beta group", "Invite two friends"}
	require.NoError(t, tasks.Set(ctx, want))
	got, err = tasks.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/repository/memory"
	rediscache "github.com/AlexShrike/nexum-sub002/internal/adapter/repository/redis"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// hookedCache runs beforeSetIfAbsent once, ahead of the next conditional write.
type hookedCache struct {
	usecase.ResultCache

	mu                sync.Mutex
	beforeSetIfAbsent func()
}

func (c *hookedCache) SetIfAbsent(ctx context.Context, key string, result *domain.TransactionResult, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	hook := c.beforeSetIfAbsent
	c.beforeSetIfAbsent = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.ResultCache.SetIfAbsent(ctx, key, result, ttl)
}

func (c *hookedCache) onNextSetIfAbsent(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beforeSetIfAbsent = fn
}

func newRedisCache(t *testing.T) (*rediscache.ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rediscache.NewResultCache(client, "test:"), mr
}

func TestProcessor_ReverseReplacesCachedResult(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)
	e := newTestEnv(t, withCache(cache))
	b := e.bank(t, "100.00")

	res, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, res.Status)

	cached, err := cache.Get(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, domain.StatusCompleted, cached.Status)

	_, err = e.processor.Reverse(ctx, res.ID, "ops")
	require.NoError(t, err)

	replay, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, domain.StatusReversed, replay.Status)
	assert.Len(t, replay.ReversalEntries, 1)
}

func TestProcessor_StaleReplayDoesNotOverwriteReversal(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	hooked := &hookedCache{ResultCache: cache}
	e := newTestEnv(t, withCache(hooked))
	b := e.bank(t, "100.00")

	res, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, res.Status)

	// The cached copy expires; the next replay reads the completed record, and the
	// reversal commits before that replay writes its copy back.
	mr.FlushAll()
	hooked.onNextSetIfAbsent(func() {
		_, err := e.processor.Reverse(ctx, res.ID, "ops")
		require.NoError(t, err)
	})

	stale, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	assert.True(t, stale.Replayed)
	assert.Equal(t, domain.StatusCompleted, stale.Status)

	cached, err := cache.Get(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, domain.StatusReversed, cached.Status)

	replay, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReversed, replay.Status)
}

func TestProcessor_FailedReversalDropsCachedResult(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	e := newTestEnv(t, withCache(cache))
	b := e.bank(t, "100.00")

	res, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	require.True(t, mr.Exists("test:t-1"))

	failNthCommit(e.store, 1)
	_, err = e.processor.Reverse(ctx, res.ID, "ops")
	require.ErrorIs(t, err, memory.ErrInjectedFault)
	assert.False(t, mr.Exists("test:t-1"))

	e.store.SetCommitFault(nil)
	replay, err := e.processor.Submit(ctx, transfer("t-1", b.alice.ID, b.bob.ID, "40.00"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, domain.StatusCompleted, replay.Status)
	assert.True(t, mr.Exists("test:t-1"))
}

func TestProcessor_CachedResultMatchesFirstResult(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)
	e := newTestEnv(t, withCache(cache))
	b := e.bank(t, "100.00")

	req := transfer("t-1", b.alice.ID, b.bob.ID, "10.00")
	req.Metadata = map[string]any{"days": 30, "tags": []string{"payroll"}, "ref": map[string]int{"batch": 7}}

	first, err := e.processor.Submit(ctx, req)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, first.Status)
	assert.Equal(t, float64(30), first.Metadata["days"])

	fromCache, err := e.processor.Submit(ctx, req)
	require.NoError(t, err)
	require.True(t, fromCache.Replayed)

	stored, err := e.processor.Get(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Metadata, fromCache.Metadata)
	assert.Equal(t, first.Metadata, stored.Metadata)
}

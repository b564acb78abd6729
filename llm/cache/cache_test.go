package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingStats struct {
	hits, misses int
}

func (s *countingStats) RecordCacheHit(string)  { s.hits++ }
func (s *countingStats) RecordCacheMiss(string) { s.misses++ }

func newTestCache(t *testing.T, ttl time.Duration) (*FingerprintCache, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(store, Config{TTL: ttl, Prefix: DefaultPrefix},
		WithClock(clock.Now), WithLogger(zaptest.NewLogger(t)))
	return c, store, clock
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DefaultTTL("development"))
	assert.Equal(t, time.Hour, DefaultTTL("production"))
	assert.Equal(t, time.Hour, DefaultTTL(""))

	cfg := DefaultConfig("development")
	assert.Equal(t, DefaultPrefix, cfg.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
}

func TestFingerprintCache_SetGet(t *testing.T) {
	c, store, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	key, err := c.Key(map[string]any{"mode": "decision", "text": "x"})
	require.NoError(t, err)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, map[string]string{"core_issue": "y"}))

	keys, err := store.Keys(ctx, DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPrefix + key}, keys)

	entry, ok := c.Get(ctx, key)
	require.True(t, ok)
	var out map[string]string
	require.NoError(t, entry.Decode(&out))
	assert.Equal(t, "y", out["core_issue"])
	assert.Equal(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), entry.Timestamp)
}

// 写入于 t 的条目在 t+TTL-1ms 仍存在，在 t+TTL+1ms 不存在
func TestFingerprintCache_TTLBoundary(t *testing.T) {
	const ttl = time.Hour
	c, store, clock := newTestCache(t, ttl)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	clock.Advance(ttl - time.Millisecond)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.True(t, ok, "exactly TTL old is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "expired entry removed on read")
}

func TestFingerprintCache_UnparseableEntry(t *testing.T) {
	c, store, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, DefaultPrefix+"bad", []byte("{not json")))
	_, ok := c.Get(ctx, "bad")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestFingerprintCache_ClearExpired(t *testing.T) {
	c, store, clock := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", 1))
	clock.Advance(90 * time.Minute)
	require.NoError(t, c.Set(ctx, "fresh", 2))
	require.NoError(t, store.Set(ctx, DefaultPrefix+"junk", []byte(`"nope"`)))
	require.NoError(t, store.Set(ctx, "other:untouched", []byte("x")))

	removed, err := c.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{DefaultPrefix + "fresh", "other:untouched"}, keys)
}

func TestFingerprintCache_ClearAll(t *testing.T) {
	c, store, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, store.Set(ctx, "other:untouched", []byte("x")))

	removed, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())
}

func TestFingerprintCache_Stats(t *testing.T) {
	stats := &countingStats{}
	c := New(NewMemoryStore(), Config{}, WithStats(stats))
	ctx := context.Background()

	_, _ = c.Get(ctx, "missing")
	require.NoError(t, c.Set(ctx, "k", 1))
	_, _ = c.Get(ctx, "k")

	assert.Equal(t, 1, stats.hits)
	assert.Equal(t, 1, stats.misses)
	assert.Equal(t, time.Hour, c.TTL())
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (f *failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}

func TestFingerprintCache_StoreErrors(t *testing.T) {
	c := New(&failingStore{MemoryStore: NewMemoryStore()}, Config{})
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok, "read failures are misses")

	_, err := c.ClearExpired(ctx)
	assert.Error(t, err)
	_, err = c.ClearAll(ctx)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	buf := []byte("v1")
	require.NoError(t, s.Set(ctx, "p:1", buf))
	buf[0] = 'X'
	got, err := s.Get(ctx, "p:1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got), "store keeps its own copy")

	require.NoError(t, s.Set(ctx, "p:2", []byte("v2")))
	require.NoError(t, s.Set(ctx, "q:1", []byte("v3")))
	keys, err := s.Keys(ctx, "p:")
	require.NoError(t, err)
	assert.Equal(t, []string{"p:1", "p:2"}, keys)

	require.NoError(t, s.Delete(ctx, "p:1"))
	assert.Equal(t, 2, s.Len())
}

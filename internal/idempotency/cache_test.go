package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

var testPolicy = TTLPolicy{
	Error:      time.Hour,
	Processing: 2 * time.Minute,
	Final:      24 * time.Hour,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStore wraps a MemoryStore and records the TTL of each Set.
type recordingStore struct {
	*MemoryStore
	name    string
	pingErr error
	closed  bool
	ttls    map[string]time.Duration
}

func newRecordingStore(name string, pingErr error) *recordingStore {
	return &recordingStore{
		MemoryStore: NewMemoryStore(24 * time.Hour),
		name:        name,
		pingErr:     pingErr,
		ttls:        map[string]time.Duration{},
	}
}

func (s *recordingStore) Name() string                   { return s.name }
func (s *recordingStore) Ping(ctx context.Context) error { return s.pingErr }
func (s *recordingStore) Close() error                   { s.closed = true; return nil }

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.ttls[key] = ttl
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func TestNewCacheUsesReachableSharedStore(t *testing.T) {
	shared := newRecordingStore(config.CacheBackendRedis, nil)
	c := NewCache(context.Background(), shared, NewMemoryStore(time.Hour), testPolicy, time.Second, discardLogger())

	assert.Equal(t, Health{Backend: config.CacheBackendRedis, Configured: config.CacheBackendRedis}, c.Health())

	_, err := c.Put(context.Background(), "k", CachedOutcome{Result: invoice.ErrorResult("x")})
	require.NoError(t, err)
	_, ok := shared.ttls[KeyPrefix+"k"]
	assert.True(t, ok, "entries are written under the idempotency: prefix")
}

func TestNewCacheFallsBackWhenSharedStoreUnreachable(t *testing.T) {
	shared := newRecordingStore(config.CacheBackendRedis, errors.New("connection refused"))
	fallback := NewMemoryStore(time.Hour)
	c := NewCache(context.Background(), shared, fallback, testPolicy, time.Second, discardLogger())

	assert.Equal(t, Health{Backend: config.CacheBackendMemory, Configured: config.CacheBackendRedis, Fallback: true}, c.Health())
	assert.True(t, shared.closed)

	_, err := c.Put(context.Background(), "k", CachedOutcome{Result: invoice.ErrorResult("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.Len())
	assert.Empty(t, shared.ttls)
}

func TestNewCacheWithoutSharedStore(t *testing.T) {
	c := NewCache(context.Background(), nil, NewMemoryStore(time.Hour), testPolicy, time.Second, discardLogger())
	assert.Equal(t, Health{Backend: config.CacheBackendMemory, Configured: config.CacheBackendMemory}, c.Health())
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCache(ctx, nil, NewMemoryStore(time.Hour), testPolicy, time.Second, discardLogger())

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	result := invoice.Result{
		Status:         invoice.StatusAuthorized,
		AccessKey:      "1503202501179001234500110010020000001231234567811",
		Environment:    invoice.EnvTest,
		Authorization:  &invoice.Authorization{Number: "N", Date: "D"},
		SignedDocument: []byte("<factura/>"),
		Messages:       []string{},
		PayloadHash:    "abc",
	}
	attempt := uuid.New()
	stored, err := c.Put(ctx, "k", CachedOutcome{Result: result, Fingerprint: "abc", AttemptID: attempt})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, stored.TTL())

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result, got.Result)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.Equal(t, attempt, got.AttemptID)
}

func TestCacheIgnoresUnreadableEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore(time.Hour)
	require.NoError(t, mem.Set(ctx, KeyPrefix+"k", []byte("not json"), time.Hour))

	c := NewCache(ctx, nil, mem, testPolicy, time.Second, discardLogger())
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTLOrdering(t *testing.T) {
	shared := newRecordingStore(config.CacheBackendRedis, nil)
	c := NewCache(context.Background(), shared, NewMemoryStore(time.Hour), testPolicy, time.Second, discardLogger())

	for _, status := range []invoice.Status{
		invoice.StatusError, invoice.StatusProcessing, invoice.StatusNotAuthorized, invoice.StatusAuthorized,
	} {
		_, err := c.Put(context.Background(), string(status), CachedOutcome{Result: invoice.Result{Status: status}})
		require.NoError(t, err)
	}

	ttl := func(s invoice.Status) time.Duration { return shared.ttls[KeyPrefix+string(s)] }
	assert.Less(t, ttl(invoice.StatusProcessing), ttl(invoice.StatusError))
	assert.LessOrEqual(t, ttl(invoice.StatusError), ttl(invoice.StatusNotAuthorized))
	assert.Equal(t, ttl(invoice.StatusNotAuthorized), ttl(invoice.StatusAuthorized))
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mem, clock := newTestMemoryStore(time.Hour)
	c := NewCache(ctx, nil, mem, testPolicy, time.Second, discardLogger())

	require.NoError(t, mem.Set(ctx, "old", []byte("1"), time.Millisecond))
	clock.advance(time.Second)

	c.StartSweeper(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return mem.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

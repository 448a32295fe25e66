package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// KeyPrefix namespaces idempotency entries in the store.
const KeyPrefix = "idempotency:"

// ErrKeyConflict is returned when a cached idempotency key is reused with different content
// and the conflict policy is reject.
var ErrKeyConflict = errors.New("idempotency key already used for different content")

// CachedOutcome is the stored form of a finished workflow run.
type CachedOutcome struct {
	Result      invoice.Result `json:"result"`
	Fingerprint string         `json:"fingerprint"`
	StoredAt    time.Time      `json:"stored_at"`
	TTLSeconds  int64          `json:"ttl_seconds"`

	// AttemptID identifies the workflow run that produced the result
	AttemptID uuid.UUID `json:"attempt_id"`
}

// TTL returns the expiry the outcome was stored with.
func (o CachedOutcome) TTL() time.Duration {
	return time.Duration(o.TTLSeconds) * time.Second
}

// TTLPolicy maps a result status to how long it is cached.
type TTLPolicy struct {
	Error      time.Duration
	Processing time.Duration
	Final      time.Duration
}

// NewTTLPolicy reads the CACHE_TTL_* settings.
func NewTTLPolicy(cfg *config.ServerEnvironment) TTLPolicy {
	return TTLPolicy{
		Error:      cfg.CacheTTLError,
		Processing: cfg.CacheTTLProcessing,
		Final:      cfg.CacheTTLFinal,
	}
}

// For returns the TTL for status. AUTHORIZED and NOT_AUTHORIZED are final.
func (p TTLPolicy) For(status invoice.Status) time.Duration {
	switch status {
	case invoice.StatusProcessing:
		return p.Processing
	case invoice.StatusAuthorized, invoice.StatusNotAuthorized:
		return p.Final
	default:
		return p.Error
	}
}

// Health describes the active backend.
type Health struct {
	// Backend is the store in use
	Backend string `json:"backend"`

	// Configured is the backend requested by CACHE_BACKEND
	Configured string `json:"configured"`

	// Fallback is true when the configured shared store was unreachable at startup
	Fallback bool `json:"fallback"`
}

// Cache reads and writes CachedOutcomes through the active store.
type Cache struct {
	store      Store
	configured string
	policy     TTLPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// NewCache probes shared once and uses it when reachable, otherwise fallback.
// A nil shared store selects fallback directly.
func NewCache(ctx context.Context, shared Store, fallback *MemoryStore, policy TTLPolicy, probeTimeout time.Duration, logger *slog.Logger) *Cache {
	c := &Cache{
		store:      fallback,
		configured: config.CacheBackendMemory,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
	if shared == nil {
		return c
	}

	c.configured = shared.Name()
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := shared.Ping(probeCtx); err != nil {
		logger.Warn("shared idempotency store unreachable, using in-process store",
			slog.String("backend", shared.Name()),
			slog.String("error", err.Error()),
		)
		_ = shared.Close()
		return c
	}

	logger.Info("idempotency store connected", slog.String("backend", shared.Name()))
	c.store = shared
	return c
}

// Health reports which store is active.
func (c *Cache) Health() Health {
	return Health{
		Backend:    c.store.Name(),
		Configured: c.configured,
		Fallback:   c.store.Name() != c.configured,
	}
}

// Get returns the outcome stored under key. An entry that cannot be decoded is
// treated as absent.
func (c *Cache) Get(ctx context.Context, key string) (*CachedOutcome, bool, error) {
	raw, ok, err := c.store.Get(ctx, KeyPrefix+key)
	if err != nil || !ok {
		return nil, false, err
	}

	var outcome CachedOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		c.logger.Warn("discarding unreadable idempotency entry",
			slog.String("idempotency_key", key),
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}
	return &outcome, true, nil
}

// Put stores the outcome under key with the TTL for its status and returns
// the outcome as stored.
func (c *Cache) Put(ctx context.Context, key string, outcome CachedOutcome) (CachedOutcome, error) {
	ttl := c.policy.For(outcome.Result.Status)
	outcome.StoredAt = c.now().UTC()
	outcome.TTLSeconds = int64(ttl / time.Second)

	raw, err := json.Marshal(outcome)
	if err != nil {
		return outcome, fmt.Errorf("failed to encode cached outcome: %w", err)
	}
	if err := c.store.Set(ctx, KeyPrefix+key, raw, ttl); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// StartSweeper removes expired entries every interval until ctx is done.
// It does nothing when the active store does not need sweeping.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	sweeper, ok := c.store.(Sweeper)
	if !ok {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sweeper.Sweep(ctx)
				if err != nil {
					c.logger.Warn("idempotency sweep failed", slog.String("error", err.Error()))
					continue
				}
				if removed > 0 {
					c.logger.Debug("idempotency sweep", slog.Int64("removed", removed))
				}
			}
		}
	}()
}

// Close releases the active store.
func (c *Cache) Close() error {
	return c.store.Close()
}

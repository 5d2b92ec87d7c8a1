// Package cache stores merged profiles keyed by a digest of the identifier.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lookout/internal/lookup/cache/store"
	"lookout/internal/lookup/metrics"
	"lookout/internal/lookup/models"
	"lookout/pkg/requestcontext"
)

// Store is a cache backend.
type Store interface {
	Get(ctx context.Context, key string) (store.Entry, error)
	Put(ctx context.Context, entry store.Entry) error
	Delete(ctx context.Context, key string) error
}

type purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Key derives the cache key for an identifier: hex(sha256(kind ":" id)).
func Key(kind models.IdentifierKind, identifier string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + identifier))
	return hex.EncodeToString(sum[:])
}

// Cache wraps a Store with key derivation, expiry and metrics.
type Cache struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a Cache over st.
func New(st Store, opts ...Option) (*Cache, error) {
	if st == nil {
		return nil, errors.New("cache store is required")
	}
	c := &Cache{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached profile. The bool is false on a miss or an
// expired entry; errors are reserved for backend failures.
func (c *Cache) Get(ctx context.Context, kind models.IdentifierKind, identifier string) (*models.MergedProfile, bool, error) {
	entry, err := c.store.Get(ctx, Key(kind, identifier))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.metrics.IncrementCache(false)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read profile cache: %w", err)
	}
	c.metrics.IncrementCache(true)
	profile := entry.Profile
	return &profile, true, nil
}

// Put stores profile until now+ttl. A ttl of zero or less yields an entry
// that is already expired on the next read.
func (c *Cache) Put(ctx context.Context, kind models.IdentifierKind, identifier string, profile *models.MergedProfile, ttl time.Duration) error {
	if profile == nil {
		return errors.New("profile is required")
	}
	now := requestcontext.Now(ctx)
	if ttl < 0 {
		ttl = 0
	}
	err := c.store.Put(ctx, store.Entry{
		Key:       Key(kind, identifier),
		Kind:      kind,
		Profile:   *profile,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("write profile cache: %w", err)
	}
	return nil
}

// Invalidate removes the cached profile for an identifier.
func (c *Cache) Invalidate(ctx context.Context, kind models.IdentifierKind, identifier string) error {
	if err := c.store.Delete(ctx, Key(kind, identifier)); err != nil {
		return fmt.Errorf("invalidate profile cache: %w", err)
	}
	return nil
}

// Purge drops expired entries when the backend supports it.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	p, ok := c.store.(purger)
	if !ok {
		return 0, nil
	}
	n, err := p.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge profile cache: %w", err)
	}
	if n > 0 {
		c.logger.InfoContext(ctx, "purged expired cache entries", "count", n)
	}
	return n, nil
}

// RunPurger calls Purge every interval until ctx is done.
func (c *Cache) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Purge(ctx); err != nil {
				c.logger.WarnContext(ctx, "cache purge failed", "error", err)
			}
		}
	}
}

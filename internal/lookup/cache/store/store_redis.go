package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lookout/internal/lookup/models"
	"lookout/pkg/requestcontext"
)

const (
	// Redis key prefix for cached profiles
	profileKeyPrefix = "lookout:profile:"
)

// envelope is the JSON value stored under each key. ExpiresAt is kept next
// to the native key expiry so reads honour the request clock.
type envelope struct {
	Kind      models.IdentifierKind `json:"kind"`
	Profile   models.MergedProfile  `json:"profile"`
	ExpiresAt time.Time             `json:"expires_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Redis is a go-redis backed cache store shared by every instance.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis constructs a Redis-backed cache store.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: profileKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Get returns the entry for key, or ErrNotFound if it is absent or expired.
func (r *Redis) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get cached profile: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Entry{}, fmt.Errorf("decode cached profile: %w", err)
	}
	entry := Entry{
		Key:       key,
		Kind:      env.Kind,
		Profile:   env.Profile,
		ExpiresAt: env.ExpiresAt,
		UpdatedAt: env.UpdatedAt,
	}
	if !entry.Live(requestcontext.Now(ctx)) {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Put stores entry with a native expiry matching ExpiresAt. An entry that is
// already expired removes the key instead.
func (r *Redis) Put(ctx context.Context, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return r.Delete(ctx, entry.Key)
	}
	raw, err := json.Marshal(envelope{
		Kind:      entry.Kind,
		Profile:   entry.Profile,
		ExpiresAt: entry.ExpiresAt,
		UpdatedAt: entry.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode cached profile: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+entry.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached profile: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}
	return nil
}

// Invalidate removes several keys in one pipeline.
func (r *Redis) Invalidate(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, key := range keys {
		if key != "" {
			pipe.Del(ctx, r.prefix+key)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate cached profiles: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op; Redis expires keys natively.
func (r *Redis) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}

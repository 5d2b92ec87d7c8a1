package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lookout/internal/lookup/models"
	"lookout/pkg/requestcontext"
)

// Postgres persists cached profiles in the profile_cache table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed cache store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Get returns the entry for key, or ErrNotFound if it is absent or expired.
func (p *Postgres) Get(ctx context.Context, key string) (Entry, error) {
	var (
		entry   Entry
		kind    string
		payload []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT cache_key, identifier_kind, payload, expires_at, updated_at
		FROM profile_cache
		WHERE cache_key = $1 AND expires_at > $2`,
		key, requestcontext.Now(ctx),
	).Scan(&entry.Key, &kind, &payload, &entry.ExpiresAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("find cached profile: %w", err)
	}
	if err := json.Unmarshal(payload, &entry.Profile); err != nil {
		return Entry{}, fmt.Errorf("decode cached profile: %w", err)
	}
	entry.Kind = models.IdentifierKind(kind)
	return entry, nil
}

// Put upserts entry. The last write for a key wins.
func (p *Postgres) Put(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Profile)
	if err != nil {
		return fmt.Errorf("encode cached profile: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO profile_cache (cache_key, identifier_kind, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key) DO UPDATE SET
			identifier_kind = EXCLUDED.identifier_kind,
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
		entry.Key, string(entry.Kind), payload, entry.ExpiresAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save cached profile: %w", err)
	}
	return nil
}

// Delete removes key.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM profile_cache WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}
	return nil
}

// Invalidate removes several keys in one statement.
func (p *Postgres) Invalidate(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM profile_cache WHERE cache_key = ANY($1)`, pq.Array(keys)); err != nil {
		return fmt.Errorf("invalidate cached profiles: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (p *Postgres) PurgeExpired(ctx context.Context) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM profile_cache WHERE expires_at <= $1`, requestcontext.Now(ctx))
	if err != nil {
		return 0, fmt.Errorf("purge cached profiles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cached profiles: %w", err)
	}
	return int(n), nil
}

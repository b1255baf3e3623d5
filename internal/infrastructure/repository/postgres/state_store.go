package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// CredentialStore persists the per-service failure map. Single-writer:
// only the credential monitor mutates it.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Load(ctx context.Context) (map[string]domain.ServiceState, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT service, fail_count, last_notified, recovered
FROM credential_state
`)
	if err != nil {
		return nil, fmt.Errorf("select credential state: %w", err)
	}
	defer rows.Close()

	states := make(map[string]domain.ServiceState)
	for rows.Next() {
		var service string
		var state domain.ServiceState
		var lastNotified sql.NullTime
		if err := rows.Scan(&service, &state.Count, &lastNotified, &state.Recovered); err != nil {
			return nil, fmt.Errorf("scan credential state: %w", err)
		}
		if lastNotified.Valid {
			state.LastNotified = lastNotified.Time
		}
		states[service] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential state: %w", err)
	}
	return states, nil
}

func (s *CredentialStore) Save(ctx context.Context, states map[string]domain.ServiceState) error {
	for service, state := range states {
		var lastNotified any
		if !state.LastNotified.IsZero() {
			lastNotified = state.LastNotified
		}
		_, err := s.db.ExecContext(ctx, `
INSERT INTO credential_state (service, fail_count, last_notified, recovered)
VALUES ($1,$2,$3,$4)
ON CONFLICT (service) DO UPDATE
SET fail_count = EXCLUDED.fail_count,
    last_notified = EXCLUDED.last_notified,
    recovered = EXCLUDED.recovered
`, service, state.Count, lastNotified, state.Recovered)
		if err != nil {
			return fmt.Errorf("upsert credential state for %s: %w", service, err)
		}
	}
	return nil
}

// EmailCacheStore guarantees at-most-once mail ingestion per message within
// the retention window.
type EmailCacheStore struct {
	db        *sql.DB
	retention time.Duration
}

func NewEmailCacheStore(db *sql.DB, retention time.Duration) *EmailCacheStore {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &EmailCacheStore{db: db, retention: retention}
}

// Load prunes entries older than the retention window before returning the
// cache, bounding its growth.
func (s *EmailCacheStore) Load(ctx context.Context) (map[string]time.Time, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed_emails WHERE seen_at < $1`, cutoff); err != nil {
		return nil, fmt.Errorf("prune processed emails: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT message_id, seen_at FROM processed_emails`)
	if err != nil {
		return nil, fmt.Errorf("select processed emails: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]time.Time)
	for rows.Next() {
		var messageID string
		var seenAt time.Time
		if err := rows.Scan(&messageID, &seenAt); err != nil {
			return nil, fmt.Errorf("scan processed email: %w", err)
		}
		cache[messageID] = seenAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed emails: %w", err)
	}
	return cache, nil
}

func (s *EmailCacheStore) MarkProcessed(ctx context.Context, messageID string, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO processed_emails (message_id, seen_at)
VALUES ($1,$2)
ON CONFLICT (message_id) DO NOTHING
`, messageID, seenAt)
	if err != nil {
		return fmt.Errorf("insert processed email: %w", err)
	}
	return nil
}

// LockStore is a distributed TTL lock over a plain table.
type LockStore struct {
	db *sql.DB
}

func NewLockStore(db *sql.DB) *LockStore {
	return &LockStore{db: db}
}

// Acquire is a SET-if-not-exists with TTL: the insert wins when the key is
// absent or the previous holder's lease expired. Acquire and expiry check
// happen in one statement so two pollers cannot both win.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO poll_locks (lock_key, expires_at)
VALUES ($1,$2)
ON CONFLICT (lock_key) DO UPDATE
SET expires_at = EXCLUDED.expires_at
WHERE poll_locks.expires_at < $3
`, key, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("acquire poll lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("poll lock rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *LockStore) Release(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM poll_locks WHERE lock_key = $1`, key); err != nil {
		return fmt.Errorf("release poll lock: %w", err)
	}
	return nil
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

const (
	seenEventQuery = `SELECT EXISTS (
		SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2
	)`

	markEventQuery = `INSERT INTO webhook_events (provider, event_id, event_type, processed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (provider, event_id) DO NOTHING`
)

// PostgresEventLog persists processed webhook event IDs in the
// webhook_events table.
type PostgresEventLog struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLog(pool *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{pool: pool}
}

func (l *PostgresEventLog) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	var seen bool
	if err := l.pool.QueryRow(ctx, seenEventQuery, provider, eventID).Scan(&seen); err != nil {
		return false, errors.Join(ErrEventLogUnavailable, err)
	}
	return seen, nil
}

func (l *PostgresEventLog) MarkProcessed(ctx context.Context, provider, eventID, eventType string) error {
	if _, err := l.pool.Exec(ctx, markEventQuery, provider, eventID, eventType); err != nil {
		return errors.Join(ErrEventLogUnavailable, err)
	}
	return nil
}

// CachedEventLog fronts an EventLog with a Redis membership check so hot
// redeliveries skip the database. Redis misses and failures fall through to
// the inner log; Redis is an accelerator, never the source of truth.
type CachedEventLog struct {
	inner EventLog
	cache goredis.UniversalClient
	ttl   time.Duration
}

func NewCachedEventLog(inner EventLog, cache goredis.UniversalClient, ttl time.Duration) *CachedEventLog {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &CachedEventLog{inner: inner, cache: cache, ttl: ttl}
}

func (l *CachedEventLog) cacheKey(provider, eventID string) string {
	return fmt.Sprintf("webhook_event:%s:%s", provider, eventID)
}

func (l *CachedEventLog) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	if n, err := l.cache.Exists(ctx, l.cacheKey(provider, eventID)).Result(); err == nil && n > 0 {
		return true, nil
	}
	return l.inner.Seen(ctx, provider, eventID)
}

func (l *CachedEventLog) MarkProcessed(ctx context.Context, provider, eventID, eventType string) error {
	if err := l.inner.MarkProcessed(ctx, provider, eventID, eventType); err != nil {
		return err
	}
	// Best effort: a lost cache write only costs one extra database lookup.
	l.cache.Set(ctx, l.cacheKey(provider, eventID), 1, l.ttl)
	return nil
}

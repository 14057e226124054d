package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careerforge/backend/pkg/plan"
)

// PostgresLedger stores usage records in the usage_records table.
// One row exists per (user, feature, month); rows are never deleted so the
// table doubles as a complete usage history.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a ledger backed by the given connection pool.
// Panics on a nil pool to fail fast during initialization.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("usage: pgx pool is required")
	}
	return &PostgresLedger{pool: pool}
}

const peekQuery = `
SELECT count FROM usage_records
WHERE user_id = $1 AND feature = $2 AND period_start = $3`

// Conditional upsert: the WHERE clause on DO UPDATE makes the
// check-and-increment a single atomic statement. When the clause fails the
// statement affects no row and returns no row, which reads as a denial.
const consumeBoundedQuery = `
INSERT INTO usage_records (user_id, feature, period_start, count)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id, feature, period_start)
DO UPDATE SET count = usage_records.count + 1, updated_at = now()
WHERE usage_records.count < $4
RETURNING count`

const consumeUnboundedQuery = `
INSERT INTO usage_records (user_id, feature, period_start, count)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id, feature, period_start)
DO UPDATE SET count = usage_records.count + 1, updated_at = now()
RETURNING count`

func (l *PostgresLedger) Peek(ctx context.Context, userID uuid.UUID, feature plan.Feature, now time.Time) (int64, error) {
	var count int64
	err := l.pool.QueryRow(ctx, peekQuery, userID, string(feature), PeriodStart(now)).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Join(ErrStorageUnavailable, err)
	}
	return count, nil
}

func (l *PostgresLedger) TryConsume(ctx context.Context, userID uuid.UUID, feature plan.Feature, limit int64, now time.Time) (Decision, error) {
	period := PeriodStart(now)

	if limit == plan.Unlimited {
		var count int64
		err := l.pool.QueryRow(ctx, consumeUnboundedQuery, userID, string(feature), period).Scan(&count)
		if err != nil {
			return Decision{}, errors.Join(ErrStorageUnavailable, err)
		}
		return Decision{Allowed: true, Used: count}, nil
	}

	if limit <= 0 {
		used, err := l.Peek(ctx, userID, feature, now)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: false, Used: used}, nil
	}

	var count int64
	err := l.pool.QueryRow(ctx, consumeBoundedQuery, userID, string(feature), period, limit).Scan(&count)
	if err == nil {
		return Decision{Allowed: true, Used: count}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Decision{}, errors.Join(ErrStorageUnavailable, err)
	}

	// No row affected: the count already sits at the limit.
	used, peekErr := l.Peek(ctx, userID, feature, now)
	if peekErr != nil {
		return Decision{}, peekErr
	}
	return Decision{Allowed: false, Used: used}, nil
}

package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careerforge/backend/pkg/pg"
	"github.com/careerforge/backend/pkg/plan"
)

// PostgresStore persists subscriptions in the subscriptions table.
// Per-user serialization comes from SELECT ... FOR UPDATE inside a
// transaction; the primary key on user_id is the backstop that keeps two
// racing inserts from producing duplicate rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool.
// Panics on a nil pool to fail fast during initialization.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

const selectColumns = `
	user_id, tier, status, payment_method,
	provider_customer_id, provider_subscription_id, provider_price_id,
	wallet_address, payment_reference,
	current_period_start, current_period_end,
	cancel_at_period_end, canceled_at, created_at, updated_at`

const getQuery = `SELECT` + selectColumns + ` FROM subscriptions WHERE user_id = $1`

const getForUpdateQuery = getQuery + ` FOR UPDATE`

const upsertQuery = `
INSERT INTO subscriptions (
	user_id, tier, status, payment_method,
	provider_customer_id, provider_subscription_id, provider_price_id,
	wallet_address, payment_reference,
	current_period_start, current_period_end,
	cancel_at_period_end, canceled_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (user_id) DO UPDATE SET
	tier = EXCLUDED.tier,
	status = EXCLUDED.status,
	payment_method = EXCLUDED.payment_method,
	provider_customer_id = EXCLUDED.provider_customer_id,
	provider_subscription_id = EXCLUDED.provider_subscription_id,
	provider_price_id = EXCLUDED.provider_price_id,
	wallet_address = EXCLUDED.wallet_address,
	payment_reference = EXCLUDED.payment_reference,
	current_period_start = EXCLUDED.current_period_start,
	current_period_end = EXCLUDED.current_period_end,
	cancel_at_period_end = EXCLUDED.cancel_at_period_end,
	canceled_at = EXCLUDED.canceled_at,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx, getQuery, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return sub, nil
}

func (s *PostgresStore) Reconcile(ctx context.Context, userID uuid.UUID, m Mutation) (*Subscription, error) {
	if m.IsZero() {
		return nil, ErrEmptyMutation
	}

	sub, err := s.reconcileTx(ctx, userID, m)
	if err == nil {
		return sub, nil
	}
	// Two concurrent first-time inserts can race past the FOR UPDATE: neither
	// sees a row, both insert, one loses on the unique constraint. The loser
	// re-runs and merges against the winner's row.
	if pg.IsDuplicateKeyError(err) {
		return s.reconcileTx(ctx, userID, m)
	}
	return nil, err
}

func (s *PostgresStore) reconcileTx(ctx context.Context, userID uuid.UUID, m Mutation) (*Subscription, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var existing *Subscription
	existing, err = scanSubscription(tx.QueryRow(ctx, getForUpdateQuery, userID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		existing = nil
	}

	merged, write := m.apply(existing, userID, time.Now().UTC())
	if !write {
		return merged, nil
	}

	_, err = tx.Exec(ctx, upsertQuery,
		merged.UserID, string(merged.Tier), string(merged.Status), string(merged.PaymentMethod),
		merged.ProviderCustomerID, merged.ProviderSubscriptionID, merged.ProviderPriceID,
		merged.WalletAddress, merged.PaymentReference,
		merged.CurrentPeriodStart, merged.CurrentPeriodEnd,
		merged.CancelAtPeriodEnd, merged.CanceledAt, merged.CreatedAt, merged.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return merged, nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub    Subscription
		tier   string
		status string
		method string
	)
	err := row.Scan(
		&sub.UserID, &tier, &status, &method,
		&sub.ProviderCustomerID, &sub.ProviderSubscriptionID, &sub.ProviderPriceID,
		&sub.WalletAddress, &sub.PaymentReference,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd, &sub.CanceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Tier = plan.Tier(tier)
	sub.Status = Status(status)
	sub.PaymentMethod = PaymentMethod(method)
	return &sub, nil
}

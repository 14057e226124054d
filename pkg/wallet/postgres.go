package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLinkedWallets reads wallet links from the linked_wallets table,
// which the account service populates when a user proves wallet ownership.
type PostgresLinkedWallets struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkedWallets(pool *pgxpool.Pool) *PostgresLinkedWallets {
	if pool == nil {
		panic("wallet: pgx pool is required")
	}
	return &PostgresLinkedWallets{pool: pool}
}

func (s *PostgresLinkedWallets) LinkedAddress(ctx context.Context, userID uuid.UUID) (string, error) {
	var address string
	err := s.pool.QueryRow(ctx,
		`SELECT address FROM linked_wallets WHERE user_id = $1`, userID,
	).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoLinkedWallet
		}
		return "", err
	}
	return address, nil
}

package usage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config selects the ledger backend. The choice is made once at startup;
// neither backend probes for the other's availability at request time.
type Config struct {
	// Backend is "postgres" or "memory". Memory keeps counts in process and
	// suits single-instance deployments without a usage table.
	Backend string `env:"USAGE_BACKEND" envDefault:"postgres"`
}

// New builds the configured ledger backend.
func New(cfg Config, pool *pgxpool.Pool) (Ledger, error) {
	switch cfg.Backend {
	case "postgres", "":
		return NewPostgresLedger(pool), nil
	case "memory":
		return NewMemoryLedger(), nil
	default:
		return nil, errors.Join(ErrUnknownBackend, fmt.Errorf("backend %q", cfg.Backend))
	}
}

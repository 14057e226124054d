package usage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/backend/pkg/usage"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("memory backend needs no pool", func(t *testing.T) {
		t.Parallel()
		ledger, err := usage.New(usage.Config{Backend: "memory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &usage.MemoryLedger{}, ledger)
	})

	t.Run("unknown backend is rejected at startup", func(t *testing.T) {
		t.Parallel()
		_, err := usage.New(usage.Config{Backend: "cassandra"}, nil)
		assert.ErrorIs(t, err, usage.ErrUnknownBackend)
	})
}

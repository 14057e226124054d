package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/backend/pkg/reconcile"
)

// countingEventLog counts how often the backing store is consulted, so the
// cache tests can observe which lookups Redis absorbed.
type countingEventLog struct {
	inner     reconcile.EventLog
	seenCalls int
}

func (l *countingEventLog) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	l.seenCalls++
	return l.inner.Seen(ctx, provider, eventID)
}

func (l *countingEventLog) MarkProcessed(ctx context.Context, provider, eventID, eventType string) error {
	return l.inner.MarkProcessed(ctx, provider, eventID, eventType)
}

func newCachedLog(t *testing.T) (*reconcile.CachedEventLog, *countingEventLog, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	counting := &countingEventLog{inner: reconcile.NewMemoryEventLog()}
	return reconcile.NewCachedEventLog(counting, rdb, time.Hour), counting, mr
}

func TestCachedEventLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unseen event falls through to the backing store", func(t *testing.T) {
		t.Parallel()
		log, counting, _ := newCachedLog(t)

		seen, err := log.Seen(ctx, "stripe", "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)
		assert.Equal(t, 1, counting.seenCalls)
	})

	t.Run("marked event is answered from redis", func(t *testing.T) {
		t.Parallel()
		log, counting, _ := newCachedLog(t)

		require.NoError(t, log.MarkProcessed(ctx, "stripe", "evt_1", "checkout_completed"))

		for range 3 {
			seen, err := log.Seen(ctx, "stripe", "evt_1")
			require.NoError(t, err)
			assert.True(t, seen)
		}
		assert.Equal(t, 0, counting.seenCalls)
	})

	t.Run("expired cache entry still finds the durable record", func(t *testing.T) {
		t.Parallel()
		log, counting, mr := newCachedLog(t)

		require.NoError(t, log.MarkProcessed(ctx, "stripe", "evt_1", "checkout_completed"))
		mr.FastForward(2 * time.Hour)

		seen, err := log.Seen(ctx, "stripe", "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)
		assert.Equal(t, 1, counting.seenCalls)
	})

	t.Run("providers do not share event id namespaces", func(t *testing.T) {
		t.Parallel()
		log, _, _ := newCachedLog(t)

		require.NoError(t, log.MarkProcessed(ctx, "stripe", "evt_1", "checkout_completed"))

		seen, err := log.Seen(ctx, "other", "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}

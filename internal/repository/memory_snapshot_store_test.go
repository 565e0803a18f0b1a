package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
)

func fp(v float64) *float64 { return &v }

func at(ts time.Time) *time.Time { return &ts }

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestMemorySnapshotStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemorySnapshotStore(WithMemoryClock(func() time.Time { return base }))
	ctx := context.Background()

	s1, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1", PTPrice: fp(1)})
	require.NoError(t, err)
	s2, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), s1.ID)
	assert.Equal(t, int64(2), s2.ID)
	assert.True(t, s1.Timestamp.Equal(base))
	assert.Nil(t, s2.PTPrice)
	assert.Nil(t, s2.TVL)
}

func TestMemorySnapshotStore_AppendRejectsEmptyMarket(t *testing.T) {
	store := NewMemorySnapshotStore()
	_, err := store.Append(context.Background(), &models.SnapshotInput{})
	assert.True(t, errors.Is(err, domrepo.ErrInvalidInput))
}

func TestMemorySnapshotStore_NonFiniteBecomesAbsent(t *testing.T) {
	store := NewMemorySnapshotStore()
	s, err := store.Append(context.Background(), &models.SnapshotInput{
		MarketID: "m1",
		PTPrice:  fp(math.NaN()),
		TVL:      fp(math.Inf(1)),
		SYPrice:  fp(0),
	})
	require.NoError(t, err)
	assert.Nil(t, s.PTPrice)
	assert.Nil(t, s.TVL)
	require.NotNil(t, s.SYPrice)
	assert.Equal(t, 0.0, *s.SYPrice)
}

func TestMemorySnapshotStore_QueryRangeAscending(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base.Add(2 * time.Hour)), PTPrice: fp(3)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base), PTPrice: fp(1)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base.Add(time.Hour)), PTPrice: fp(2)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m2", Timestamp: at(base), PTPrice: fp(9)})

	rows, err := store.QueryRange(ctx, "m1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2.0, *rows[0].PTPrice)
	assert.Equal(t, 3.0, *rows[1].PTPrice)

	empty, err := store.QueryRange(ctx, "unknown", base)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemorySnapshotStore_QueryByMarketDescending(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base.Add(time.Duration(i) * time.Minute))})
		require.NoError(t, err)
	}

	rows, err := store.QueryByMarket(ctx, "m1", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(5), rows[0].ID)
	assert.Equal(t, int64(3), rows[2].ID)

	none, err := store.QueryByMarket(ctx, "m1", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemorySnapshotStore_LatestTieBreaksOnID(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base), PTPrice: fp(1)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base), PTPrice: fp(2)})
	// older observation arriving late must not replace the latest
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1", Timestamp: at(base.Add(-time.Hour)), PTPrice: fp(3)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m2", Timestamp: at(base), PTPrice: fp(7)})

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 2.0, *latest["m1"].PTPrice)

	only, err := store.Latest(ctx, "m2", "missing")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, 7.0, *only["m2"].PTPrice)
}

func TestMemorySnapshotStore_AllMarketIDsAndCount(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()
	for _, id := range []string{"b", "a", "b", "c"} {
		_, err := store.Append(ctx, &models.SnapshotInput{MarketID: id})
		require.NoError(t, err)
	}

	ids, err := store.AllMarketIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMemorySnapshotStore_ReturnsCopies(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()
	s, err := store.Append(ctx, &models.SnapshotInput{MarketID: "m1", PTPrice: fp(1), RawPayload: []byte(`{"name":"A"}`)})
	require.NoError(t, err)

	*s.PTPrice = 99
	s.RawPayload[0] = 'x'

	latest, err := store.Latest(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *latest["m1"].PTPrice)
	assert.Equal(t, "A", latest["m1"].DisplayName())
}

func TestMemorySnapshotStore_ConcurrentAppend(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m1"})
				_, _ = store.Latest(ctx)
			}
		}()
	}
	wg.Wait()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	latest, err := store.Latest(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), latest["m1"].ID)
}

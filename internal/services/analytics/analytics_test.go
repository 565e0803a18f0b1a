package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PendlePulse/internal/domain/models"
	"PendlePulse/internal/repository"
	"PendlePulse/internal/services/analytics"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

func at(ts time.Time) *time.Time { return &ts }

func fixedClock() time.Time { return now }

// seed appends one snapshot per price, one hour apart, ending one hour before now.
func seed(t *testing.T, store *repository.MemorySnapshotStore, marketID string, prices ...*float64) {
	t.Helper()
	start := now.Add(-time.Duration(len(prices)) * time.Hour)
	for i, p := range prices {
		_, err := store.Append(context.Background(), &models.SnapshotInput{
			MarketID:  marketID,
			Timestamp: at(start.Add(time.Duration(i) * time.Hour)),
			PTPrice:   p,
			SYPrice:   p,
		})
		require.NoError(t, err)
	}
}

func TestResolveLatest(t *testing.T) {
	rows := []*models.Snapshot{
		{ID: 1, MarketID: "a", Timestamp: now},
		{ID: 2, MarketID: "a", Timestamp: now},
		{ID: 3, MarketID: "a", Timestamp: now.Add(-time.Minute)},
		{ID: 4, MarketID: "b", Timestamp: now.Add(-time.Hour)},
		nil,
	}
	got := analytics.ResolveLatest(rows)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got["a"].ID)
	assert.Equal(t, int64(4), got["b"].ID)

	assert.Empty(t, analytics.ResolveLatest(nil))
}

func TestWindow_FiltersRangeAndFuture(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	ctx := context.Background()
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m", Timestamp: at(now.Add(-48 * time.Hour))})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m", Timestamp: at(now.Add(-24 * time.Hour)), PTPrice: fp(1)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m", Timestamp: at(now), PTPrice: fp(2)})
	_, _ = store.Append(ctx, &models.SnapshotInput{MarketID: "m", Timestamp: at(now.Add(time.Hour))})

	w := analytics.NewWindow(store, analytics.WithClock(fixedClock))
	hist, err := w.History(ctx, "m", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 1.0, *hist[0].PTPrice)
	assert.Equal(t, 2.0, *hist[1].PTPrice)

	empty, err := w.History(ctx, "unknown", time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := analytics.Summarize(map[string]*models.Snapshot{}, 0, now)
		assert.Equal(t, 0, s.TotalMarkets)
		assert.Equal(t, 0.0, s.TotalTVL)
		assert.Equal(t, 0.0, s.AveragePTPrice)
		assert.Equal(t, now, s.GeneratedAt)
	})

	t.Run("absent values", func(t *testing.T) {
		latest := map[string]*models.Snapshot{
			"a": {MarketID: "a", TVL: fp(100), PTPrice: fp(0.9)},
			"b": {MarketID: "b", TVL: nil, PTPrice: fp(0.8)},
			"c": {MarketID: "c", TVL: fp(50), PTPrice: nil},
		}
		s := analytics.Summarize(latest, 42, now)
		assert.Equal(t, 3, s.TotalMarkets)
		assert.Equal(t, int64(42), s.TotalSnapshots)
		assert.InDelta(t, 150.0, s.TotalTVL, 1e-9)
		// divides by every latest snapshot, not only those with a price
		assert.InDelta(t, 1.7/3, s.AveragePTPrice, 1e-9)
	})
}

func TestTopByTVL(t *testing.T) {
	latest := map[string]*models.Snapshot{
		"d": {MarketID: "d", TVL: nil},
		"b": {MarketID: "b", TVL: fp(200), RawPayload: []byte(`{"name":"Beta"}`)},
		"a": {MarketID: "a", TVL: fp(200)},
		"c": {MarketID: "c", TVL: fp(300)},
		"e": {MarketID: "e", TVL: fp(10)},
	}

	got := analytics.TopByTVL(latest, 10)
	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.MarketID)
	}
	assert.Equal(t, []string{"c", "a", "b", "e", "d"}, ids)
	assert.Equal(t, "Beta", got[2].DisplayName)
	assert.Equal(t, models.UnknownName, got[0].DisplayName)

	assert.Len(t, analytics.TopByTVL(latest, 2), 2)
	assert.Empty(t, analytics.TopByTVL(latest, 0))
	assert.Empty(t, analytics.TopByTVL(latest, -1))
	assert.Empty(t, analytics.TopByTVL(nil, 5))

	for i := 0; i < 10; i++ {
		again := analytics.TopByTVL(latest, 10)
		assert.Equal(t, got, again)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		pct  float64
		want models.TrendDirection
	}{
		{0.5, models.TrendUp},
		{0.51, models.TrendUp},
		{0.49, models.TrendStable},
		{0, models.TrendStable},
		{-0.49, models.TrendStable},
		{-0.5, models.TrendDown},
		{-3, models.TrendDown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analytics.ClassifyTrend(tt.pct), "pct=%v", tt.pct)
	}
}

func TestTrendAnalyzer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		prices    []*float64
		status    string
		direction models.TrendDirection
		insight   string
	}{
		{
			name:    "two points",
			prices:  []*float64{fp(1), fp(2)},
			status:  models.StatusInsufficientHistory,
			insight: "Not enough historical data yet to generate trend insights.",
		},
		{
			name:    "one price",
			prices:  []*float64{nil, fp(1), nil},
			status:  models.StatusInsufficientPriceData,
			insight: "Insufficient price data for PT to compute trend.",
		},
		{
			name:      "up",
			prices:    []*float64{fp(100), fp(100.6), fp(101.2)},
			status:    models.StatusOK,
			direction: models.TrendUp,
			insight:   "PT price trending up (~0.60% slope over last 72h). Consider short-term strategies.",
		},
		{
			name:      "down",
			prices:    []*float64{fp(110), fp(105), fp(100)},
			status:    models.StatusOK,
			direction: models.TrendDown,
			insight:   "PT price trending down (~-4.76% slope over last 72h). Caution advised.",
		},
		{
			name:      "stable with gaps",
			prices:    []*float64{nil, fp(100), nil, fp(100.1), fp(100)},
			status:    models.StatusOK,
			direction: models.TrendStable,
			insight:   "PT price relatively stable over the selected period.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemorySnapshotStore()
			seed(t, store, "m", tt.prices...)
			a := analytics.NewTrendAnalyzer(analytics.NewWindow(store, analytics.WithClock(fixedClock)))

			res, err := a.Analyze(ctx, "m", analytics.DefaultTrendLookback)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.direction, res.Direction)
			assert.Equal(t, tt.insight, res.Insight)
			assert.Equal(t, 72.0, res.LookbackHours)
			assert.Equal(t, len(tt.prices), res.Points)
			if tt.status == models.StatusOK {
				require.NotNil(t, res.SlopePct)
			} else {
				assert.Nil(t, res.SlopePct)
			}
		})
	}
}

func TestTrendAnalyzer_ZeroLookbackUsesDefault(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	a := analytics.NewTrendAnalyzer(analytics.NewWindow(store, analytics.WithClock(fixedClock)))
	res, err := a.Analyze(context.Background(), "m", 0)
	require.NoError(t, err)
	assert.Equal(t, 72.0, res.LookbackHours)
	assert.Equal(t, models.StatusInsufficientHistory, res.Status)
}

func TestPriceChangeCalculator(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient", func(t *testing.T) {
		store := repository.NewMemorySnapshotStore()
		seed(t, store, "m", fp(100))
		c := analytics.NewPriceChangeCalculator(analytics.NewWindow(store, analytics.WithClock(fixedClock)))
		res, err := c.Calculate(ctx, "m", analytics.DefaultPriceChangeWindow)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInsufficientData, res.Status)
		assert.NotEmpty(t, res.Message)
		assert.Nil(t, res.StartTime)
	})

	t.Run("ten percent", func(t *testing.T) {
		store := repository.NewMemorySnapshotStore()
		seed(t, store, "m", fp(100), fp(120), fp(110))
		c := analytics.NewPriceChangeCalculator(analytics.NewWindow(store, analytics.WithClock(fixedClock)))
		res, err := c.Calculate(ctx, "m", analytics.DefaultPriceChangeWindow)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOK, res.Status)
		assert.Equal(t, 10.0, res.PTPriceChangePercent)
		assert.Equal(t, 10.0, res.SYPriceChangePercent)
		assert.Equal(t, 24.0, res.WindowHours)
		assert.Equal(t, 100.0, *res.StartPTPrice)
		assert.Equal(t, 110.0, *res.EndPTPrice)
		require.NotNil(t, res.StartTime)
		assert.True(t, res.StartTime.Before(*res.EndTime))
	})

	t.Run("zero baseline", func(t *testing.T) {
		store := repository.NewMemorySnapshotStore()
		seed(t, store, "m", fp(0), fp(5))
		c := analytics.NewPriceChangeCalculator(analytics.NewWindow(store, analytics.WithClock(fixedClock)))
		res, err := c.Calculate(ctx, "m", analytics.DefaultPriceChangeWindow)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOK, res.Status)
		assert.Equal(t, 0.0, res.PTPriceChangePercent)
	})

	t.Run("rounding", func(t *testing.T) {
		store := repository.NewMemorySnapshotStore()
		seed(t, store, "m", fp(3), fp(4))
		c := analytics.NewPriceChangeCalculator(analytics.NewWindow(store, analytics.WithClock(fixedClock)))
		res, err := c.Calculate(ctx, "m", analytics.DefaultPriceChangeWindow)
		require.NoError(t, err)
		assert.Equal(t, 33.3333, res.PTPriceChangePercent)
	})
}

func TestEstimateSwap(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		fee     float64
		want    float64
		wantErr bool
	}{
		{"default fee", 100, analytics.DefaultSwapFee, 99.8, false},
		{"small amount", 0.3, 0.002, 0.2994, false},
		{"zero fee", 7, 0, 7, false},
		{"zero amount", 0, 0.002, 0, true},
		{"negative amount", -1, 0.002, 0, true},
		{"fee out of range", 1, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := analytics.EstimateSwap(tt.amount, tt.fee)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

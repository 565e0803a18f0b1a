package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	"PendlePulse/internal/services/analytics"
	"PendlePulse/pkg/cache"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/util"
)

const (
	DefaultSnapshotsLimit = 200
	DefaultHistoryHours   = 24.0

	marketsCachePrefix = "markets"
)

// MarketsOption configures MarketsUseCase.
type MarketsOption func(*MarketsUseCase)

// WithCache enables read-model caching with the given TTL.
func WithCache(c cache.Service, ttl time.Duration) MarketsOption {
	return func(u *MarketsUseCase) {
		u.cache = c
		u.ttl = ttl
	}
}

// WithMarketsLogger sets the logger.
func WithMarketsLogger(l *applogger.Logger) MarketsOption {
	return func(u *MarketsUseCase) { u.l = l }
}

// MarketsUseCase serves latest-view, history and aggregate reads over the snapshot store.
type MarketsUseCase struct {
	store  domrepo.SnapshotStore
	window *analytics.Window
	cache  cache.Service
	ttl    time.Duration
	gen    atomic.Int64
	l      *applogger.Logger
}

var _ CacheInvalidator = (*MarketsUseCase)(nil)

func NewMarketsUseCase(store domrepo.SnapshotStore, window *analytics.Window, opts ...MarketsOption) *MarketsUseCase {
	u := &MarketsUseCase{store: store, window: window, ttl: 30 * time.Second}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Invalidate drops cached read models. Keys carry a generation so a load that
// raced with the write can never be served after it.
func (u *MarketsUseCase) Invalidate(ctx context.Context) error {
	u.gen.Add(1)
	if u.cache == nil {
		return nil
	}
	return u.cache.DeleteByPattern(ctx, cache.BuildPattern(marketsCachePrefix+":"))
}

func (u *MarketsUseCase) key(parts ...interface{}) string {
	return cache.GenerateKeyWithParams(marketsCachePrefix, append([]interface{}{u.gen.Load()}, parts...)...)
}

// ListMarkets returns the latest view of every market sorted by market id.
func (u *MarketsUseCase) ListMarkets(ctx context.Context) (*models.MarketsListResponse, error) {
	return cache.GetOrLoad(ctx, u.cache, u.key("list"), u.ttl, func(ctx context.Context) (*models.MarketsListResponse, error) {
		latest, err := u.store.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("list markets: %w", err)
		}
		views := make([]models.MarketView, 0, len(latest))
		for _, s := range latest {
			views = append(views, models.NewMarketView(s))
		}
		sort.Slice(views, func(i, j int) bool { return views[i].MarketID < views[j].MarketID })
		return &models.MarketsListResponse{Count: len(views), Markets: views}, nil
	})
}

// TopMarkets ranks the latest view by TVL.
func (u *MarketsUseCase) TopMarkets(ctx context.Context, limit int) ([]models.TopMarket, error) {
	return cache.GetOrLoad(ctx, u.cache, u.key("top", limit), u.ttl, func(ctx context.Context) ([]models.TopMarket, error) {
		latest, err := u.store.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("top markets: %w", err)
		}
		return analytics.TopByTVL(latest, limit), nil
	})
}

// Summary aggregates the latest view across all markets.
func (u *MarketsUseCase) Summary(ctx context.Context) (*models.Summary, error) {
	return cache.GetOrLoad(ctx, u.cache, u.key("summary"), u.ttl, func(ctx context.Context) (*models.Summary, error) {
		latest, err := u.store.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		total, err := u.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		s := analytics.Summarize(latest, total, u.window.Now())
		return &s, nil
	})
}

// Compare resolves each market independently; unknown markets and per-market
// storage faults are omitted.
func (u *MarketsUseCase) Compare(ctx context.Context, marketIDs []string) ([]models.MarketComparison, error) {
	ids := util.SplitList(marketIDs...)
	if len(ids) == 0 {
		return nil, fmt.Errorf("compare: market ids required: %w", domrepo.ErrInvalidInput)
	}

	out := make([]models.MarketComparison, 0, len(ids))
	for _, id := range ids {
		latest, err := u.store.Latest(ctx, id)
		if err != nil {
			u.l.Warn("compare: market lookup failed",
				applogger.String("market_id", id),
				applogger.Error(err),
			)
			continue
		}
		s, ok := latest[id]
		if !ok {
			continue
		}
		out = append(out, models.MarketComparison{
			MarketID:    s.MarketID,
			DisplayName: s.DisplayName(),
			PTPrice:     s.PTPrice,
			SYPrice:     s.SYPrice,
			TVL:         s.TVL,
			Timestamp:   s.Timestamp,
		})
	}
	return out, nil
}

// Detail returns the latest snapshot of a market with its payload.
func (u *MarketsUseCase) Detail(ctx context.Context, marketID string) (*models.MarketDetail, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	latest, err := u.store.Latest(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market detail %s: %w", marketID, err)
	}
	s, ok := latest[marketID]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", marketID, domrepo.ErrNotFound)
	}
	return models.NewMarketDetail(s), nil
}

// Snapshots returns the newest limit snapshots in ascending order.
func (u *MarketsUseCase) Snapshots(ctx context.Context, marketID string, limit int) (*models.SnapshotsResponse, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	if limit <= 0 {
		limit = DefaultSnapshotsLimit
	}
	rows, err := u.store.QueryByMarket(ctx, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshots %s: %w", marketID, err)
	}
	data := make([]models.HistoryPoint, len(rows))
	for i, s := range rows {
		data[len(rows)-1-i] = models.NewHistoryPoint(s)
	}
	return &models.SnapshotsResponse{MarketID: marketID, Count: len(data), Data: data}, nil
}

// History returns the windowed history of the last hours.
func (u *MarketsUseCase) History(ctx context.Context, marketID string, hours float64) (*models.HistoryResponse, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	points, err := u.window.History(ctx, marketID, util.Hours(hours))
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", marketID, err)
	}
	return &models.HistoryResponse{MarketID: marketID, DataPoints: len(points), History: points}, nil
}

// Health reports whether the store is reachable.
func (u *MarketsUseCase) Health(ctx context.Context) error {
	return u.store.Health(ctx)
}

// IsNotFound reports whether err means the market has never been seen.
func IsNotFound(err error) bool { return errors.Is(err, domrepo.ErrNotFound) }

package repository

import (
	"context"
	"time"

	"PendlePulse/internal/domain/models"
)

// SnapshotStore is the append-only snapshot log. No update or delete exists.
type SnapshotStore interface {
	// Append assigns id and (when missing) timestamp, persists, and returns the stored record.
	Append(ctx context.Context, in *models.SnapshotInput) (*models.Snapshot, error)
	// QueryRange returns snapshots with timestamp >= since, ascending by (timestamp, id).
	QueryRange(ctx context.Context, marketID string, since time.Time) ([]*models.Snapshot, error)
	// QueryByMarket returns up to limit snapshots, descending by (timestamp, id).
	QueryByMarket(ctx context.Context, marketID string, limit int) ([]*models.Snapshot, error)
	// AllMarketIDs returns every market with at least one snapshot, ascending.
	AllMarketIDs(ctx context.Context) ([]string, error)
	// Count returns the number of snapshots ever stored.
	Count(ctx context.Context) (int64, error)
	// Latest resolves the most recent snapshot per market, restricted to marketIDs when given.
	Latest(ctx context.Context, marketIDs ...string) (map[string]*models.Snapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher ships snapshot events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, e *models.SnapshotEvent) error
	PublishBatch(ctx context.Context, events []*models.SnapshotEvent) error
	Close() error
}

// SnapshotNotifier receives every snapshot after it is persisted.
type SnapshotNotifier interface {
	Notify(s *models.Snapshot)
}

// MarketSource is the upstream producer of raw market records.
type MarketSource interface {
	ActiveMarketIDs(ctx context.Context) ([]string, error)
	MarketDetail(ctx context.Context, marketID string) ([]byte, error)
	ActiveMarketsRaw(ctx context.Context) ([]byte, error)
	YieldRaw(ctx context.Context, tokenID string) ([]byte, error)
}

type Metrics interface {
	RecordSnapshotStored(sink, marketID string)
	RecordError(kind string)
	RecordLastPrice(marketID string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBufferDepth(stage string, depth int)
	RecordThrottled(marketID string)
}

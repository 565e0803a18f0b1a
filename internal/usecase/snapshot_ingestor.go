package usecase

import (
	"context"
	"fmt"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/metrics"
)

const (
	BackendStore = "store"
	BackendKafka = "kafka"
)

// CacheInvalidator drops read models derived from stored snapshots.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// IngestorOption configures SnapshotIngestor.
type IngestorOption func(*SnapshotIngestor)

// WithNotifier registers a receiver for every persisted snapshot.
func WithNotifier(n domrepo.SnapshotNotifier) IngestorOption {
	return func(i *SnapshotIngestor) { i.notifier = n }
}

// WithInvalidator registers the cache dropped after each persisted snapshot.
func WithInvalidator(c CacheInvalidator) IngestorOption {
	return func(i *SnapshotIngestor) { i.invalidator = c }
}

// WithIngestorLogger sets the logger.
func WithIngestorLogger(l *applogger.Logger) IngestorOption {
	return func(i *SnapshotIngestor) { i.l = l }
}

// WithIngestorClock overrides the clock used to stamp published events.
func WithIngestorClock(now func() time.Time) IngestorOption {
	return func(i *SnapshotIngestor) { i.now = now }
}

// SnapshotIngestor routes snapshots to the configured backend.
// With the store backend it persists directly; with kafka it publishes and
// the consumer side persists through Persist.
type SnapshotIngestor struct {
	store       domrepo.SnapshotStore
	pub         domrepo.Publisher
	metrics     domrepo.Metrics
	backend     string
	notifier    domrepo.SnapshotNotifier
	invalidator CacheInvalidator
	now         func() time.Time
	l           *applogger.Logger
}

// NewSnapshotIngestor creates a new SnapshotIngestor instance.
func NewSnapshotIngestor(
	store domrepo.SnapshotStore,
	pub domrepo.Publisher,
	m domrepo.Metrics,
	backend string,
	opts ...IngestorOption,
) (*SnapshotIngestor, error) {
	if m == nil {
		m = metrics.Nop{}
	}
	i := &SnapshotIngestor{
		store:   store,
		pub:     pub,
		metrics: m,
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(i)
	}
	switch backend {
	case BackendStore:
		if store == nil {
			return nil, fmt.Errorf("ingestor: store backend requires a snapshot store")
		}
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("ingestor: kafka backend requires a publisher")
		}
	default:
		return nil, fmt.Errorf("ingestor: unknown backend %q", backend)
	}
	return i, nil
}

// Ingest routes a single snapshot to the configured backend.
func (i *SnapshotIngestor) Ingest(ctx context.Context, in *models.SnapshotInput) error {
	if in == nil || in.MarketID == "" {
		return domrepo.ErrInvalidInput
	}
	if i.backend == BackendKafka {
		return i.publish(ctx, in)
	}
	_, err := i.Persist(ctx, in)
	return err
}

func (i *SnapshotIngestor) publish(ctx context.Context, in *models.SnapshotInput) error {
	start := time.Now()
	ev := models.NewSnapshotEvent(in, i.now())
	if err := i.pub.Publish(ctx, ev); err != nil {
		i.metrics.RecordError("ingest_publish")
		return fmt.Errorf("publish snapshot %s: %w", in.MarketID, err)
	}
	i.metrics.RecordSnapshotStored(BackendKafka, in.MarketID)
	i.metrics.RecordLatency("ingest_publish", time.Since(start).Seconds())
	return nil
}

// Persist appends the snapshot and then fans it out to the notifier, the cache and metrics.
func (i *SnapshotIngestor) Persist(ctx context.Context, in *models.SnapshotInput) (*models.Snapshot, error) {
	start := time.Now()
	snap, err := i.store.Append(ctx, in)
	if err != nil {
		i.metrics.RecordError("ingest_append")
		return nil, fmt.Errorf("persist snapshot %s: %w", in.MarketID, err)
	}

	if i.invalidator != nil {
		if err := i.invalidator.Invalidate(ctx); err != nil {
			i.metrics.RecordError("cache_invalidate")
			i.l.Warn("cache invalidation failed", applogger.Error(err))
		}
	}
	if i.notifier != nil {
		i.notifier.Notify(snap)
	}
	if snap.PTPrice != nil {
		i.metrics.RecordLastPrice(snap.MarketID, *snap.PTPrice)
	}
	i.metrics.RecordSnapshotStored(BackendStore, snap.MarketID)
	i.metrics.RecordLatency("ingest_append", time.Since(start).Seconds())

	i.l.Debug("snapshot stored",
		applogger.String("market_id", snap.MarketID),
		applogger.Int64("id", snap.ID),
	)
	return snap, nil
}

// Close releases the publisher and the store.
func (i *SnapshotIngestor) Close() {
	if i.pub != nil {
		_ = i.pub.Close()
	}
	if i.store != nil {
		_ = i.store.Close()
	}
}

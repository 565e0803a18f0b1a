package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	"PendlePulse/internal/services/analytics"
)

// MemorySnapshotStore is an in-memory implementation of repository.SnapshotStore.
// Used for local runs and tests.
type MemorySnapshotStore struct {
	mu       sync.RWMutex
	nextID   int64
	rows     []*models.Snapshot
	byMarket map[string][]*models.Snapshot // append order per market
	latest   map[string]*models.Snapshot
	now      func() time.Time
}

// MemoryStoreOption configures a MemorySnapshotStore.
type MemoryStoreOption func(*MemorySnapshotStore)

// WithMemoryClock overrides the time assigned to inputs without a timestamp.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemorySnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore(opts ...MemoryStoreOption) *MemorySnapshotStore {
	s := &MemorySnapshotStore{
		byMarket: make(map[string][]*models.Snapshot),
		latest:   make(map[string]*models.Snapshot),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemorySnapshotStore) Append(_ context.Context, in *models.SnapshotInput) (*models.Snapshot, error) {
	if in == nil || in.MarketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := newSnapshot(in, s.now)
	s.nextID++
	snap.ID = s.nextID
	s.rows = append(s.rows, snap)
	s.byMarket[snap.MarketID] = append(s.byMarket[snap.MarketID], snap)
	if analytics.Newer(snap, s.latest[snap.MarketID]) {
		s.latest[snap.MarketID] = snap
	}
	return snap.Clone(), nil
}

func (s *MemorySnapshotStore) QueryRange(_ context.Context, marketID string, since time.Time) ([]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Snapshot
	for _, snap := range s.byMarket[marketID] {
		if !snap.Timestamp.Before(since) {
			result = append(result, snap.Clone())
		}
	}
	sortAscending(result)
	if result == nil {
		result = []*models.Snapshot{}
	}
	return result, nil
}

func (s *MemorySnapshotStore) QueryByMarket(_ context.Context, marketID string, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		return []*models.Snapshot{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.byMarket[marketID]
	result := make([]*models.Snapshot, 0, len(rows))
	for _, snap := range rows {
		result = append(result, snap.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return analytics.Newer(result[i], result[j])
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemorySnapshotStore) AllMarketIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byMarket))
	for id := range s.byMarket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemorySnapshotStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func (s *MemorySnapshotStore) Latest(_ context.Context, marketIDs ...string) (map[string]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Snapshot)
	if len(marketIDs) == 0 {
		for id, snap := range s.latest {
			out[id] = snap.Clone()
		}
		return out, nil
	}
	for _, id := range marketIDs {
		if snap, ok := s.latest[id]; ok {
			out[id] = snap.Clone()
		}
	}
	return out, nil
}

func (s *MemorySnapshotStore) Health(_ context.Context) error { return nil }

func (s *MemorySnapshotStore) Close() error { return nil }

var _ domrepo.SnapshotStore = (*MemorySnapshotStore)(nil)

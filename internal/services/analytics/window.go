package analytics

import (
	"context"
	"fmt"
	"time"

	"PendlePulse/internal/domain/models"
	"PendlePulse/internal/domain/repository"
)

// Window answers "what happened to market M in the last d" over a SnapshotStore.
type Window struct {
	store repository.SnapshotStore
	clock func() time.Time
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) WindowOption {
	return func(w *Window) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewWindow creates a window query over store.
func NewWindow(store repository.SnapshotStore, opts ...WindowOption) *Window {
	w := &Window{
		store: store,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Now returns the window clock's current time.
func (w *Window) Now() time.Time {
	return w.clock()
}

// Snapshots returns the snapshots of marketID in [now-d, now], ascending by (timestamp, id).
// An unknown market or empty window yields an empty slice.
func (w *Window) Snapshots(ctx context.Context, marketID string, d time.Duration) ([]*models.Snapshot, error) {
	now := w.clock()
	rows, err := w.store.QueryRange(ctx, marketID, now.Add(-d))
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", marketID, err)
	}
	out := make([]*models.Snapshot, 0, len(rows))
	for _, s := range rows {
		if s.Timestamp.After(now) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// History is Snapshots projected to history points.
func (w *Window) History(ctx context.Context, marketID string, d time.Duration) ([]models.HistoryPoint, error) {
	rows, err := w.Snapshots(ctx, marketID, d)
	if err != nil {
		return nil, err
	}
	points := make([]models.HistoryPoint, 0, len(rows))
	for _, s := range rows {
		points = append(points, models.NewHistoryPoint(s))
	}
	return points, nil
}

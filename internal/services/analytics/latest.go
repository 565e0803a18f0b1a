package analytics

import "PendlePulse/internal/domain/models"

// Newer reports whether a supersedes b in the latest view: greater timestamp,
// or equal timestamp and greater id.
func Newer(a, b *models.Snapshot) bool {
	if b == nil {
		return a != nil
	}
	if a == nil {
		return false
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// ResolveLatest reduces snapshots to the newest one per market in a single pass.
// The result is unordered; callers sort as they need.
func ResolveLatest(snapshots []*models.Snapshot) map[string]*models.Snapshot {
	out := make(map[string]*models.Snapshot)
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		if Newer(s, out[s.MarketID]) {
			out[s.MarketID] = s
		}
	}
	return out
}

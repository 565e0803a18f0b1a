package repository

import (
	"sort"
	"time"

	"PendlePulse/internal/domain/models"
	"PendlePulse/pkg/util"
)

// newSnapshot builds the record to persist from a write request. The id is left
// to the store. Non-finite numerics become absent.
func newSnapshot(in *models.SnapshotInput, now func() time.Time) *models.Snapshot {
	ts := now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}
	var payload []byte
	if in.RawPayload != nil {
		payload = append([]byte(nil), in.RawPayload...)
	}
	return &models.Snapshot{
		MarketID:   in.MarketID,
		Timestamp:  ts,
		RawPayload: payload,
		PTPrice:    copyFinite(in.PTPrice),
		SYPrice:    copyFinite(in.SYPrice),
		TVL:        copyFinite(in.TVL),
	}
}

func copyFinite(v *float64) *float64 {
	v = util.FiniteOrNil(v)
	if v == nil {
		return nil
	}
	return util.Float64Ptr(*v)
}

// sortAscending orders by (timestamp, id).
func sortAscending(rows []*models.Snapshot) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}

package analytics

import (
	"sort"

	"PendlePulse/internal/domain/models"
)

// DefaultTopLimit is the ranking size when the caller gives none.
const DefaultTopLimit = 5

// TopByTVL ranks the latest view by TVL descending. Markets without TVL sort last,
// ties break on market id ascending. limit <= 0 yields an empty result.
func TopByTVL(latest map[string]*models.Snapshot, limit int) []models.TopMarket {
	if limit <= 0 || len(latest) == 0 {
		return []models.TopMarket{}
	}
	rows := make([]*models.Snapshot, 0, len(latest))
	for _, s := range latest {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.TVL != nil && b.TVL == nil:
			return true
		case a.TVL == nil && b.TVL != nil:
			return false
		case a.TVL != nil && b.TVL != nil && *a.TVL != *b.TVL:
			return *a.TVL > *b.TVL
		}
		return a.MarketID < b.MarketID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.TopMarket, 0, len(rows))
	for _, s := range rows {
		out = append(out, models.TopMarket{
			MarketID:    s.MarketID,
			DisplayName: s.DisplayName(),
			TVL:         s.TVL,
			PTPrice:     s.PTPrice,
			SYPrice:     s.SYPrice,
		})
	}
	return out
}

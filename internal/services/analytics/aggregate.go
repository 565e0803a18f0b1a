package analytics

import (
	"time"

	"PendlePulse/internal/domain/models"
)

// Summarize aggregates the latest view. The average PT price divides by the number
// of latest snapshots, including those without a PT price, and is 0 when there are none.
func Summarize(latest map[string]*models.Snapshot, totalSnapshots int64, generatedAt time.Time) models.Summary {
	var tvl, pt float64
	for _, s := range latest {
		if s.TVL != nil {
			tvl += *s.TVL
		}
		if s.PTPrice != nil {
			pt += *s.PTPrice
		}
	}
	avg := 0.0
	if len(latest) > 0 {
		avg = pt / float64(len(latest))
	}
	return models.Summary{
		TotalMarkets:   len(latest),
		TotalTVL:       tvl,
		AveragePTPrice: avg,
		TotalSnapshots: totalSnapshots,
		GeneratedAt:    generatedAt,
	}
}

package analytics

import (
	"context"
	"fmt"
	"time"

	"PendlePulse/internal/domain/models"
	domsvc "PendlePulse/internal/domain/service"
	"PendlePulse/internal/services/features"
	"PendlePulse/pkg/util"
)

// DefaultPriceChangeWindow is the price change window when the caller gives none.
const DefaultPriceChangeWindow = 24 * time.Hour

// PriceChangeCalculator compares the first and last snapshot of a window.
type PriceChangeCalculator struct {
	window *Window
}

var _ domsvc.PriceChangeCalculator = (*PriceChangeCalculator)(nil)

func NewPriceChangeCalculator(window *Window) *PriceChangeCalculator {
	return &PriceChangeCalculator{window: window}
}

// Calculate returns percentage changes rounded to 4 decimals.
// A missing or zero starting price yields 0 for that field, which is indistinguishable
// from a flat series; consumers that care should inspect StartPTPrice.
func (c *PriceChangeCalculator) Calculate(ctx context.Context, marketID string, window time.Duration) (*models.PriceChange, error) {
	if window <= 0 {
		window = DefaultPriceChangeWindow
	}
	points, err := c.window.History(ctx, marketID, window)
	if err != nil {
		return nil, fmt.Errorf("price change: %w", err)
	}

	res := &models.PriceChange{
		MarketID:    marketID,
		WindowHours: window.Hours(),
	}
	if len(points) < 2 {
		res.Status = models.StatusInsufficientData
		res.Message = fmt.Sprintf("Insufficient data to calculate price change for %s", marketID)
		return res, nil
	}

	first, last := points[0], points[len(points)-1]
	start, end := first.Timestamp, last.Timestamp
	res.Status = models.StatusOK
	res.PTPriceChangePercent = util.Round(features.PercentChange(first.PTPrice, last.PTPrice), 4)
	res.SYPriceChangePercent = util.Round(features.PercentChange(first.SYPrice, last.SYPrice), 4)
	res.StartTime = &start
	res.EndTime = &end
	res.StartPTPrice = first.PTPrice
	res.EndPTPrice = last.PTPrice
	return res, nil
}

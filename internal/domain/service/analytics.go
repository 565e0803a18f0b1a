package service

import (
	"context"
	"time"

	"PendlePulse/internal/domain/models"
)

// TrendAnalyzer fits a linear trend to a market's windowed PT price series.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, marketID string, lookback time.Duration) (*models.TrendInsight, error)
}

// PriceChangeCalculator compares the first and last observation in a window.
type PriceChangeCalculator interface {
	Calculate(ctx context.Context, marketID string, window time.Duration) (*models.PriceChange, error)
}

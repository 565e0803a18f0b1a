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

const (
	// DefaultTrendLookback is the trend window when the caller gives none.
	DefaultTrendLookback = 72 * time.Hour

	// TrendThresholdPct is the |slope_pct| at or beyond which a trend is directional.
	TrendThresholdPct = 0.5

	minTrendPoints      = 3
	minTrendPricePoints = 2
)

const (
	insightInsufficientHistory = "Not enough historical data yet to generate trend insights."
	insightInsufficientPrice   = "Insufficient price data for PT to compute trend."
	insightStable              = "PT price relatively stable over the selected period."
)

// TrendAnalyzer fits a least-squares line to the forward-filled PT price series of a window.
type TrendAnalyzer struct {
	window *Window
}

var _ domsvc.TrendAnalyzer = (*TrendAnalyzer)(nil)

// NewTrendAnalyzer creates a trend analyzer over the given window query.
func NewTrendAnalyzer(window *Window) *TrendAnalyzer {
	return &TrendAnalyzer{window: window}
}

// Analyze classifies the PT price trend of marketID over lookback.
// Lack of data is reported through Status, never as an error.
func (a *TrendAnalyzer) Analyze(ctx context.Context, marketID string, lookback time.Duration) (*models.TrendInsight, error) {
	if lookback <= 0 {
		lookback = DefaultTrendLookback
	}
	points, err := a.window.History(ctx, marketID, lookback)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}

	res := &models.TrendInsight{
		MarketID:      marketID,
		LookbackHours: lookback.Hours(),
		Points:        len(points),
	}
	if len(points) < minTrendPoints {
		res.Status = models.StatusInsufficientHistory
		res.Insight = insightInsufficientHistory
		return res, nil
	}

	prices := make([]*float64, len(points))
	for i, p := range points {
		prices[i] = p.PTPrice
	}
	if features.CountPresent(prices) < minTrendPricePoints {
		res.Status = models.StatusInsufficientPriceData
		res.Insight = insightInsufficientPrice
		return res, nil
	}

	series := features.ForwardFill(prices)
	slopePct := SlopePercent(series)
	dir := ClassifyTrend(slopePct)
	rounded := util.Round(slopePct, 4)

	res.Status = models.StatusOK
	res.Direction = dir
	res.SlopePct = &rounded
	res.Insight = TrendMessage(dir, slopePct, lookback)
	return res, nil
}

// SlopePercent is the least-squares slope relative to the series mean, in percent.
// A zero mean yields 0.
func SlopePercent(series []float64) float64 {
	mean := features.Mean(series)
	if mean == 0 {
		return 0
	}
	return features.LeastSquaresSlope(series) / mean * 100
}

// ClassifyTrend maps a slope percentage to a direction. Both thresholds are inclusive.
func ClassifyTrend(slopePct float64) models.TrendDirection {
	switch {
	case slopePct >= TrendThresholdPct:
		return models.TrendUp
	case slopePct <= -TrendThresholdPct:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// TrendMessage renders the human readable insight for a classified trend.
func TrendMessage(dir models.TrendDirection, slopePct float64, lookback time.Duration) string {
	switch dir {
	case models.TrendUp:
		return fmt.Sprintf("PT price trending up (~%.2f%% slope over last %sh). Consider short-term strategies.",
			slopePct, util.FormatHours(lookback))
	case models.TrendDown:
		return fmt.Sprintf("PT price trending down (~%.2f%% slope over last %sh). Caution advised.",
			slopePct, util.FormatHours(lookback))
	default:
		return insightStable
	}
}

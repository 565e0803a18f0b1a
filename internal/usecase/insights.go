package usecase

import (
	"context"
	"fmt"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	domsvc "PendlePulse/internal/domain/service"
	"PendlePulse/internal/services/analytics"
	"PendlePulse/pkg/util"
)

// InsightsUseCase exposes trend, price-change and swap estimate analytics.
type InsightsUseCase struct {
	trend   domsvc.TrendAnalyzer
	price   domsvc.PriceChangeCalculator
	swapFee float64
}

type InsightsOption func(*InsightsUseCase)

// WithSwapFee sets the flat fee rate used by SimulateSwap.
func WithSwapFee(fee float64) InsightsOption {
	return func(u *InsightsUseCase) { u.swapFee = fee }
}

func NewInsightsUseCase(trend domsvc.TrendAnalyzer, price domsvc.PriceChangeCalculator, opts ...InsightsOption) *InsightsUseCase {
	u := &InsightsUseCase{trend: trend, price: price, swapFee: analytics.DefaultSwapFee}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Trend analyzes the PT price trend over lookbackHours (72 when <= 0).
func (u *InsightsUseCase) Trend(ctx context.Context, marketID string, lookbackHours float64) (*models.TrendInsight, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	lookback := analytics.DefaultTrendLookback
	if lookbackHours > 0 {
		lookback = util.Hours(lookbackHours)
	}
	res, err := u.trend.Analyze(ctx, marketID, lookback)
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", marketID, err)
	}
	return res, nil
}

// Insight returns only the human readable trend message.
func (u *InsightsUseCase) Insight(ctx context.Context, marketID string, lookbackHours float64) (*models.InsightResponse, error) {
	res, err := u.Trend(ctx, marketID, lookbackHours)
	if err != nil {
		return nil, err
	}
	return &models.InsightResponse{Insight: res.Insight}, nil
}

// PriceChange compares the first and last observation of the last hours (24 when <= 0).
func (u *InsightsUseCase) PriceChange(ctx context.Context, marketID string, hours float64) (*models.PriceChange, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	window := analytics.DefaultPriceChangeWindow
	if hours > 0 {
		window = util.Hours(hours)
	}
	res, err := u.price.Calculate(ctx, marketID, window)
	if err != nil {
		return nil, fmt.Errorf("price change %s: %w", marketID, err)
	}
	return res, nil
}

// SimulateSwap estimates the output of swapping amount of one pool token for another.
func (u *InsightsUseCase) SimulateSwap(_ context.Context, req *models.SwapEstimateRequest) (*models.SwapEstimate, error) {
	if req == nil || req.PoolID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	out, err := analytics.EstimateSwap(req.Amount, u.swapFee)
	if err != nil {
		return nil, err
	}
	return &models.SwapEstimate{
		PoolID:      req.PoolID,
		From:        req.FromToken,
		To:          req.ToToken,
		InAmount:    req.Amount,
		OutEstimate: out,
		Fee:         u.swapFee,
	}, nil
}

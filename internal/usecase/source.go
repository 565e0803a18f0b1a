package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	domrepo "PendlePulse/internal/domain/repository"
)

// SourceUseCase passes upstream market records through untouched.
type SourceUseCase struct {
	source domrepo.MarketSource
}

func NewSourceUseCase(source domrepo.MarketSource) *SourceUseCase {
	return &SourceUseCase{source: source}
}

// ActiveMarkets returns the upstream active markets document.
func (u *SourceUseCase) ActiveMarkets(ctx context.Context) (json.RawMessage, error) {
	raw, err := u.source.ActiveMarketsRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("active markets: %w", err)
	}
	return asJSON(raw), nil
}

// Market returns one upstream market detail document.
func (u *SourceUseCase) Market(ctx context.Context, marketID string) (json.RawMessage, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	raw, err := u.source.MarketDetail(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", marketID, err)
	}
	return asJSON(raw), nil
}

// Yield returns one upstream token yield document.
func (u *SourceUseCase) Yield(ctx context.Context, tokenID string) (json.RawMessage, error) {
	if tokenID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	raw, err := u.source.YieldRaw(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("yield %s: %w", tokenID, err)
	}
	return asJSON(raw), nil
}

// asJSON keeps valid JSON verbatim and quotes anything else.
func asJSON(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(string(raw))
	return b
}

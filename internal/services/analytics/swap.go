package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	domrepo "PendlePulse/internal/domain/repository"
)

// DefaultSwapFee is the flat fee rate EstimateSwap applies when none is configured.
const DefaultSwapFee = 0.002

// EstimateSwap returns amount less a flat fee rate. It is a rough estimate, not an AMM quote.
func EstimateSwap(amount, fee float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("swap amount %v: %w", amount, domrepo.ErrInvalidInput)
	}
	if fee < 0 || fee >= 1 {
		return 0, fmt.Errorf("swap fee %v: %w", fee, domrepo.ErrInvalidInput)
	}
	out := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(fee)))
	f, _ := out.Float64()
	return f, nil
}

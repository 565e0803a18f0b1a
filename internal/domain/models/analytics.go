package models

import "time"

// Summary is the cross-market aggregate over the latest view.
type Summary struct {
	TotalMarkets   int       `json:"total_markets"`
	TotalTVL       float64   `json:"total_tvl"`
	AveragePTPrice float64   `json:"average_pt_price"`
	TotalSnapshots int64     `json:"total_snapshots"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// TopMarket is one ranked entry.
type TopMarket struct {
	MarketID    string   `json:"market_id"`
	DisplayName string   `json:"name"`
	TVL         *float64 `json:"tvl"`
	PTPrice     *float64 `json:"pt_price"`
	SYPrice     *float64 `json:"sy_price"`
}

// MarketComparison is one side of a multi-market comparison.
type MarketComparison struct {
	MarketID    string    `json:"market_id"`
	DisplayName string    `json:"name"`
	PTPrice     *float64  `json:"pt_price"`
	SYPrice     *float64  `json:"sy_price"`
	TVL         *float64  `json:"tvl"`
	Timestamp   time.Time `json:"timestamp"`
}

// Analytics outcome statuses. Insufficient* are informational results, not errors.
const (
	StatusOK                    = "ok"
	StatusInsufficientHistory   = "insufficient_history"
	StatusInsufficientPriceData = "insufficient_price_data"
	StatusInsufficientData      = "insufficient_data"
)

// TrendDirection classifies a fitted PT price slope.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendInsight is the structured trend result. Direction and SlopePct are set only when Status is ok.
type TrendInsight struct {
	MarketID      string         `json:"market_id"`
	Status        string         `json:"status"`
	Direction     TrendDirection `json:"direction,omitempty"`
	SlopePct      *float64       `json:"slope_pct,omitempty"`
	LookbackHours float64        `json:"lookback_hours"`
	Points        int            `json:"points"`
	Insight       string         `json:"insight"`
}

// PriceChange compares the first and last observation of a window.
type PriceChange struct {
	MarketID             string     `json:"market_id"`
	Status               string     `json:"status"`
	WindowHours          float64    `json:"window_hours"`
	PTPriceChangePercent float64    `json:"pt_price_change_percent"`
	SYPriceChangePercent float64    `json:"sy_price_change_percent"`
	StartTime            *time.Time `json:"start_time,omitempty"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	StartPTPrice         *float64   `json:"start_pt_price"`
	EndPTPrice           *float64   `json:"end_pt_price"`
	Message              string     `json:"message,omitempty"`
}

package models

// Requests for market HTTP endpoints. Defined in domain for consistency and reuse.

type MarketPathRequest struct {
	MarketID string `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
}

type TopMarketsRequest struct {
	Limit int `query:"limit" json:"limit" default:"5" validate:"lte=1000"`
}

type CompareRequest struct {
	MarketIDs []string `query:"market_ids" json:"market_ids"`
}

type HistoryRequest struct {
	MarketID string  `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
	Hours    float64 `query:"hours" json:"hours" default:"24" validate:"gt=0,lte=8760"`
}

type SnapshotsRequest struct {
	MarketID string `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=10000"`
}

type TrendRequest struct {
	MarketID      string  `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
	LookbackHours float64 `query:"lookback_hours" json:"lookback_hours" default:"72" validate:"gt=0,lte=8760"`
}

type PriceChangeRequest struct {
	MarketID string  `param:"market_id" query:"market_id" json:"market_id" validate:"required"`
	Hours    float64 `query:"hours" json:"hours" default:"24" validate:"gt=0,lte=8760"`
}

type YieldRequest struct {
	TokenID string `query:"token_id" json:"token_id" validate:"required"`
}

type SwapEstimateRequest struct {
	PoolID    string  `query:"pool_id" json:"pool_id" validate:"required"`
	Amount    float64 `query:"amount" json:"amount" validate:"gt=0"`
	FromToken string  `query:"from_token" json:"from_token" default:"PT"`
	ToToken   string  `query:"to_token" json:"to_token" default:"SY"`
}

type StreamRequest struct {
	MarketID string `query:"market_id" json:"market_id"`
}

// Response bodies.

type MarketsListResponse struct {
	Count   int          `json:"count"`
	Markets []MarketView `json:"markets"`
}

type TopMarketsResponse struct {
	TopMarkets []TopMarket `json:"top_markets"`
}

type CompareResponse struct {
	Comparison []MarketComparison `json:"comparison"`
}

type HistoryResponse struct {
	MarketID   string         `json:"market_id"`
	DataPoints int            `json:"data_points"`
	History    []HistoryPoint `json:"history"`
}

type SnapshotsResponse struct {
	MarketID string         `json:"market_id"`
	Count    int            `json:"count"`
	Data     []HistoryPoint `json:"data"`
}

type SwapEstimate struct {
	PoolID      string  `json:"pool_id"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	InAmount    float64 `json:"in_amount"`
	OutEstimate float64 `json:"out_estimate"`
	Fee         float64 `json:"fee"`
}

type InsightResponse struct {
	Insight string `json:"insight"`
}

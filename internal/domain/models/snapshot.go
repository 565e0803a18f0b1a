package models

import (
	"encoding/json"
	"time"
)

// UnknownName is used when a raw payload carries no usable display name.
const UnknownName = "Unknown"

// Snapshot is one immutable observation of a market.
type Snapshot struct {
	ID         int64     `json:"id"`
	MarketID   string    `json:"market_id"`
	Timestamp  time.Time `json:"timestamp"`
	RawPayload []byte    `json:"-"`
	PTPrice    *float64  `json:"pt_price"`
	SYPrice    *float64  `json:"sy_price"`
	TVL        *float64  `json:"tvl"`
}

// SnapshotInput is the write request accepted by a SnapshotStore.
// Timestamp is optional; stores assign the current time when it is nil.
type SnapshotInput struct {
	MarketID   string
	RawPayload []byte
	PTPrice    *float64
	SYPrice    *float64
	TVL        *float64
	Timestamp  *time.Time
}

// DisplayName parses the "name" field of the raw payload.
func (s *Snapshot) DisplayName() string {
	return DisplayNameFromPayload(s.RawPayload)
}

// DisplayNameFromPayload never fails: non-JSON payloads and missing names yield UnknownName.
func DisplayNameFromPayload(raw []byte) string {
	if len(raw) == 0 {
		return UnknownName
	}
	var p struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.Name == nil || *p.Name == "" {
		return UnknownName
	}
	return *p.Name
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.RawPayload != nil {
		c.RawPayload = append([]byte(nil), s.RawPayload...)
	}
	c.PTPrice = cloneFloat(s.PTPrice)
	c.SYPrice = cloneFloat(s.SYPrice)
	c.TVL = cloneFloat(s.TVL)
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// MarketView is one row of the latest-view listing.
type MarketView struct {
	MarketID    string    `json:"market_id"`
	DisplayName string    `json:"name"`
	PTPrice     *float64  `json:"pt_price"`
	SYPrice     *float64  `json:"sy_price"`
	TVL         *float64  `json:"tvl"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewMarketView projects a snapshot into the listing shape.
func NewMarketView(s *Snapshot) MarketView {
	return MarketView{
		MarketID:    s.MarketID,
		DisplayName: s.DisplayName(),
		PTPrice:     s.PTPrice,
		SYPrice:     s.SYPrice,
		TVL:         s.TVL,
		LastUpdated: s.Timestamp,
	}
}

// HistoryPoint is a single entry of a windowed history.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	PTPrice   *float64  `json:"pt_price"`
	SYPrice   *float64  `json:"sy_price"`
	TVL       *float64  `json:"tvl"`
}

// NewHistoryPoint drops identity and payload from a snapshot.
func NewHistoryPoint(s *Snapshot) HistoryPoint {
	return HistoryPoint{
		Timestamp: s.Timestamp,
		PTPrice:   s.PTPrice,
		SYPrice:   s.SYPrice,
		TVL:       s.TVL,
	}
}

// MarketDetail is the latest snapshot of one market with its payload surfaced verbatim.
type MarketDetail struct {
	MarketID    string          `json:"market_id"`
	DisplayName string          `json:"name"`
	Timestamp   time.Time       `json:"timestamp"`
	PTPrice     *float64        `json:"pt_price"`
	SYPrice     *float64        `json:"sy_price"`
	TVL         *float64        `json:"tvl"`
	FullData    json.RawMessage `json:"full_data"`
}

// NewMarketDetail keeps a JSON payload as-is and quotes anything else as a JSON string.
func NewMarketDetail(s *Snapshot) *MarketDetail {
	var full json.RawMessage
	switch {
	case len(s.RawPayload) == 0:
		full = json.RawMessage("null")
	case json.Valid(s.RawPayload):
		full = append(json.RawMessage(nil), s.RawPayload...)
	default:
		b, _ := json.Marshal(string(s.RawPayload))
		full = b
	}
	return &MarketDetail{
		MarketID:    s.MarketID,
		DisplayName: s.DisplayName(),
		Timestamp:   s.Timestamp,
		PTPrice:     s.PTPrice,
		SYPrice:     s.SYPrice,
		TVL:         s.TVL,
		FullData:    full,
	}
}

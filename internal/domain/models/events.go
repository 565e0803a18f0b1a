package models

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotEvent is the Kafka wire form of a snapshot awaiting persistence.
// The producer fixes the timestamp so replays keep the observation time.
// RawPayload travels base64-encoded so arbitrary upstream bytes survive the round trip.
type SnapshotEvent struct {
	EventID    string    `json:"event_id"`
	MarketID   string    `json:"market_id"`
	Timestamp  time.Time `json:"timestamp"`
	RawPayload []byte    `json:"raw_payload"`
	PTPrice    *float64  `json:"pt_price"`
	SYPrice    *float64  `json:"sy_price"`
	TVL        *float64  `json:"tvl"`
}

// NewSnapshotEvent stamps an input with a fresh event id and, if missing, the given time.
func NewSnapshotEvent(in *SnapshotInput, now time.Time) *SnapshotEvent {
	ts := now.UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	return &SnapshotEvent{
		EventID:    uuid.NewString(),
		MarketID:   in.MarketID,
		Timestamp:  ts,
		RawPayload: append([]byte(nil), in.RawPayload...),
		PTPrice:    in.PTPrice,
		SYPrice:    in.SYPrice,
		TVL:        in.TVL,
	}
}

// Input converts the event back into a store write request.
func (e *SnapshotEvent) Input() *SnapshotInput {
	ts := e.Timestamp
	var tsp *time.Time
	if !ts.IsZero() {
		tsp = &ts
	}
	return &SnapshotInput{
		MarketID:   e.MarketID,
		RawPayload: e.RawPayload,
		PTPrice:    e.PTPrice,
		SYPrice:    e.SYPrice,
		TVL:        e.TVL,
		Timestamp:  tsp,
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	pkgkafka "PendlePulse/pkg/kafka"
	"PendlePulse/pkg/metrics"
)

// SnapshotPersister stores a snapshot and runs the post-write fan-out.
type SnapshotPersister interface {
	Persist(ctx context.Context, in *models.SnapshotInput) (*models.Snapshot, error)
}

// KafkaSnapshotsHandler consumes snapshot events and persists them.
type KafkaSnapshotsHandler struct {
	topic     string
	persister SnapshotPersister
	metrics   domrepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, persister SnapshotPersister, m domrepo.Metrics) *KafkaSnapshotsHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	return &KafkaSnapshotsHandler{topic: topic, persister: persister, metrics: m}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

// Handle decodes a models.SnapshotEvent; the producer timestamp is kept.
func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SnapshotEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot event: %w", err)
	}
	if ev.MarketID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("snapshot event %s: %w", ev.EventID, domrepo.ErrInvalidInput)
	}
	if !ev.Timestamp.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ev.Timestamp).Seconds())
	}

	if _, err := h.persister.Persist(ctx, ev.Input()); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)

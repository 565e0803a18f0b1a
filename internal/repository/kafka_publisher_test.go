package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PendlePulse/internal/domain/models"
	pkgkafka "PendlePulse/pkg/kafka"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByMarket(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "gzip"), "pendle.snapshots")
	ctx := context.Background()

	ev := models.NewSnapshotEvent(&models.SnapshotInput{
		MarketID:   "0xabc",
		RawPayload: []byte(`{"name":"PT-A"}`),
		PTPrice:    fp(0.97),
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, pub.Publish(ctx, ev))
	require.NoError(t, pub.PublishBatch(ctx, []*models.SnapshotEvent{ev, ev}))
	require.NoError(t, pub.PublishBatch(ctx, nil))

	require.Len(t, w.msgs, 3)
	for _, m := range w.msgs {
		assert.Equal(t, "pendle.snapshots", m.Topic)
		assert.Equal(t, []byte("0xabc"), m.Key)
	}

	var decoded models.SnapshotEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.Equal(t, []byte(`{"name":"PT-A"}`), decoded.RawPayload)
	in := decoded.Input()
	require.NotNil(t, in.Timestamp)
	assert.True(t, in.Timestamp.Equal(ev.Timestamp))
	assert.Equal(t, 0.97, *in.PTPrice)
}

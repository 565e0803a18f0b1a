package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshotsStored *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	bufferDepth     *prometheus.GaugeVec
	throttled       *prometheus.CounterVec
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// New returns the process-wide Prometheus metrics recorder.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			snapshotsStored: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pendlepulse_snapshots_stored_total",
					Help: "Total number of snapshots written to a sink",
				},
				[]string{"sink", "market_id"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pendlepulse_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			lastPrice: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pendlepulse_last_pt_price",
					Help: "Last recorded PT price for a market",
				},
				[]string{"market_id"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pendlepulse_operation_duration_seconds",
					Help:    "Duration of operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			bufferDepth: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pendlepulse_buffer_depth",
					Help: "Number of items waiting in an internal buffer",
				},
				[]string{"stage"},
			),
			throttled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pendlepulse_snapshots_throttled_total",
					Help: "Total number of snapshots dropped by per-market throttling",
				},
				[]string{"market_id"},
			),
		}
	})
	return recorder
}

// RecordSnapshotStored records a snapshot written to a sink (store or kafka).
func (r *Recorder) RecordSnapshotStored(sink, marketID string) {
	r.snapshotsStored.WithLabelValues(sink, marketID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last PT price for a market.
func (r *Recorder) RecordLastPrice(marketID string, price float64) {
	r.lastPrice.WithLabelValues(marketID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBufferDepth records how many items are queued in a buffer.
func (r *Recorder) RecordBufferDepth(stage string, depth int) {
	r.bufferDepth.WithLabelValues(stage).Set(float64(depth))
}

// RecordThrottled records a snapshot dropped by throttling.
func (r *Recorder) RecordThrottled(marketID string) {
	r.throttled.WithLabelValues(marketID).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordSnapshotStored(string, string) {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLastPrice(string, float64)     {}
func (Nop) RecordLatency(string, float64)       {}
func (Nop) RecordBufferDepth(string, int)       {}
func (Nop) RecordThrottled(string)              {}

package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/metrics"
	"PendlePulse/pkg/util"
)

// Ingestor is the downstream the pipeline forwards accepted snapshots to.
type Ingestor interface {
	Ingest(ctx context.Context, in *models.SnapshotInput) error
}

// SnapshotPipeline sits between the market poller and the ingestor.
// It validates, throttles per market, and buffers when downstream is unavailable.
type SnapshotPipeline struct {
	next        Ingestor
	metrics     domrepo.Metrics
	l           *applogger.Logger
	minInterval time.Duration
	bufSize     int
	maxBackoff  time.Duration
	bufCh       chan *models.SnapshotInput
	stopCh      chan struct{}
	wg          sync.WaitGroup
	now         func() time.Time

	mu       sync.Mutex
	started  bool
	lastSeen map[string]time.Time // per-market last accepted time
}

type PipelineOption func(*SnapshotPipeline)

// WithMinInterval sets the minimum spacing between accepted snapshots of one market.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets the retry buffer size used when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxBackoff caps the wait between retries of buffered snapshots.
func WithMaxBackoff(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d > 0 {
			p.maxBackoff = d
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *SnapshotPipeline) { p.l = l }
}

// WithPipelineClock overrides the clock used for throttling and observation timestamps.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *SnapshotPipeline) { p.now = now }
}

// NewSnapshotPipeline creates a new pipeline.
func NewSnapshotPipeline(next Ingestor, m domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	if m == nil {
		m = metrics.Nop{}
	}
	p := &SnapshotPipeline{
		next:       next,
		metrics:    m,
		bufSize:    1000,
		maxBackoff: 5 * time.Second,
		stopCh:     make(chan struct{}),
		now:        time.Now,
		lastSeen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.SnapshotInput, p.bufSize)
	return p
}

// Start launches background retries of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.flushLoop(ctx)
}

func (p *SnapshotPipeline) flushLoop(ctx context.Context) {
	defer p.wg.Done()
	const initialBackoff = 50 * time.Millisecond
	backoff := initialBackoff
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case in := <-p.bufCh:
			if err := p.next.Ingest(ctx, in); err == nil {
				backoff = initialBackoff
				p.metrics.RecordBufferDepth("pipeline", len(p.bufCh))
				continue
			} else {
				p.metrics.RecordError("pipeline_flush")
				p.l.Warn("pipeline retry failed",
					applogger.String("market_id", in.MarketID),
					applogger.Duration("backoff_ms", backoff),
					applogger.Error(err),
				)
			}
			t := time.NewTimer(backoff)
			select {
			case <-p.stopCh:
				t.Stop()
				return
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			if backoff *= 2; backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
			// requeue if space; drop otherwise
			select {
			case p.bufCh <- in:
			default:
				p.metrics.RecordError("pipeline_buffer_drop")
			}
		}
	}
}

// Stop stops background retries and waits for the flush loop to exit.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
	if n := len(p.bufCh); n > 0 {
		p.l.Warn("pipeline stopped with buffered snapshots", applogger.Int("pending", n))
	}
}

// Buffered returns the number of snapshots waiting for retry.
func (p *SnapshotPipeline) Buffered() int { return len(p.bufCh) }

// Ingest validates, throttles and forwards a snapshot, buffering it on downstream errors.
// A throttled snapshot is dropped without error. A snapshot without a timestamp is
// stamped with the observation time before it is forwarded, so a retried write keeps it.
func (p *SnapshotPipeline) Ingest(ctx context.Context, in *models.SnapshotInput) error {
	start := time.Now()
	if err := validateSnapshot(in); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	in.PTPrice = util.FiniteOrNil(in.PTPrice)
	in.SYPrice = util.FiniteOrNil(in.SYPrice)
	in.TVL = util.FiniteOrNil(in.TVL)

	if in.Timestamp == nil || in.Timestamp.IsZero() {
		ts := p.now().UTC()
		in.Timestamp = &ts
	}

	if !p.allow(in.MarketID) {
		p.metrics.RecordThrottled(in.MarketID)
		p.l.Debug("pipeline throttled", applogger.String("market_id", in.MarketID))
		return nil
	}

	if err := p.next.Ingest(ctx, in); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- in:
			p.metrics.RecordBufferDepth("pipeline", len(p.bufCh))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateSnapshot(in *models.SnapshotInput) error {
	if in == nil {
		return fmt.Errorf("snapshot nil: %w", domrepo.ErrInvalidInput)
	}
	if in.MarketID == "" {
		return fmt.Errorf("market id empty: %w", domrepo.ErrInvalidInput)
	}
	return nil
}

func (p *SnapshotPipeline) allow(marketID string) bool {
	if p.minInterval <= 0 {
		return true
	}
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[marketID]
	if ok && now.Sub(last) < p.minInterval {
		return false
	}
	p.lastSeen[marketID] = now
	return true
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	"PendlePulse/internal/service/pendle"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/metrics"
)

// SnapshotSink accepts snapshots produced by the poller.
type SnapshotSink interface {
	Ingest(ctx context.Context, in *models.SnapshotInput) error
}

// PollerConfig holds poller configuration.
type PollerConfig struct {
	Interval    time.Duration // default 300s
	Concurrency int           // max concurrent detail requests, default 4
	Timeout     time.Duration // per-market timeout, default 30s
}

// PollStats summarizes one poll cycle.
type PollStats struct {
	Markets  int
	Stored   int64
	Failed   int64
	Duration time.Duration
}

// MarketPoller periodically fetches active market details and hands them to the sink.
type MarketPoller struct {
	cfg     PollerConfig
	source  domrepo.MarketSource
	sink    SnapshotSink
	metrics domrepo.Metrics
	l       *applogger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMarketPoller creates a new MarketPoller.
func NewMarketPoller(cfg PollerConfig, source domrepo.MarketSource, sink SnapshotSink, m domrepo.Metrics, l *applogger.Logger) *MarketPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &MarketPoller{cfg: cfg, source: source, sink: sink, metrics: m, l: l}
}

// Start polls immediately, then on every interval tick until Stop.
func (p *MarketPoller) Start(ctx context.Context) error {
	if p.cancel != nil {
		return fmt.Errorf("poller already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run(ctx)

	p.l.Info("market poller started",
		applogger.Duration("interval", p.cfg.Interval),
		applogger.Int("concurrency", p.cfg.Concurrency),
	)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (p *MarketPoller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.l.Info("market poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MarketPoller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	_, _ = p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one cycle. Per-market failures are logged and counted; only
// a failure to list active markets is returned.
func (p *MarketPoller) PollOnce(ctx context.Context) (PollStats, error) {
	start := time.Now()
	ids, err := p.source.ActiveMarketIDs(ctx)
	if err != nil {
		p.metrics.RecordError("poll_list")
		p.l.Error("poll: list active markets failed", applogger.Error(err))
		return PollStats{Duration: time.Since(start)}, fmt.Errorf("list active markets: %w", err)
	}

	var stored, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := p.pollMarket(gctx, id); err != nil {
				failed.Add(1)
				p.metrics.RecordError("poll_market")
				p.l.Warn("poll: market failed",
					applogger.String("market_id", id),
					applogger.Error(err),
				)
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats := PollStats{
		Markets:  len(ids),
		Stored:   stored.Load(),
		Failed:   failed.Load(),
		Duration: time.Since(start),
	}
	p.metrics.RecordLatency("poll_cycle", stats.Duration.Seconds())
	p.l.Info("poll cycle complete",
		applogger.Int("markets", stats.Markets),
		applogger.Int64("stored", stats.Stored),
		applogger.Int64("failed", stats.Failed),
		applogger.Duration("duration_ms", stats.Duration),
	)
	return stats, nil
}

func (p *MarketPoller) pollMarket(ctx context.Context, marketID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	raw, err := p.source.MarketDetail(ctx, marketID)
	if err != nil {
		return err
	}
	f := pendle.ExtractFields(raw)
	return p.sink.Ingest(ctx, &models.SnapshotInput{
		MarketID:   marketID,
		RawPayload: raw,
		PTPrice:    f.PTPrice,
		SYPrice:    f.SYPrice,
		TVL:        f.TVL,
	})
}

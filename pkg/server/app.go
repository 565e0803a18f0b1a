package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PendlePulse/internal/handler/ws"
	"PendlePulse/internal/middleware"
	"PendlePulse/internal/usecase"
	"PendlePulse/pkg/cache"
	"PendlePulse/pkg/config"
	xhttp "PendlePulse/pkg/http"
	pkgkafka "PendlePulse/pkg/kafka"
	applogger "PendlePulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	pipeline   *middleware.SnapshotPipeline
	ingestor   *usecase.SnapshotIngestor
	hub        *ws.Hub

	// optional, nil when disabled by config
	poller   *usecase.MarketPoller
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	producer *pkgkafka.Producer
	cache    cache.Service

	cancel context.CancelFunc
}

// Components groups everything the App starts and stops.
type Components struct {
	HTTPServer *xhttp.Server
	Pipeline   *middleware.SnapshotPipeline
	Ingestor   *usecase.SnapshotIngestor
	Hub        *ws.Hub
	Poller     *usecase.MarketPoller
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	Producer   *pkgkafka.Producer
	Cache      cache.Service
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: c.HTTPServer,
		pipeline:   c.Pipeline,
		ingestor:   c.Ingestor,
		hub:        c.Hub,
		poller:     c.Poller,
		consumer:   c.Consumer,
		kh:         c.Handler,
		producer:   c.Producer,
		cache:      c.Cache,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	a.l.Info("shutdown signal received", applogger.String("signal", sig.String()))

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Start launches the pipeline, the consumer, the poller and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer start: %w", err)
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.poller != nil {
		if err := a.poller.Start(ctx); err != nil {
			return fmt.Errorf("poller start: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	a.l.Info("app started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("storage", a.cfg.Storage.Type),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Bool("poller", a.poller != nil),
	)
	return nil
}

// Shutdown stops producers of work before the sinks they feed.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if a.poller != nil {
		if err := a.poller.Stop(ctx); err != nil {
			a.l.Warn("poller stop error", applogger.Error(err))
		}
	}
	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.hub != nil {
		_ = a.hub.Close()
	}

	// The collector may publish through the producer, so it goes first.
	a.l.RemoveCollector()

	if a.ingestor != nil {
		a.ingestor.Close()
	}
	if a.producer != nil && a.cfg.Backend.Type != config.BackendKafka {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

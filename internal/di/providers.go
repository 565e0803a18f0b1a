package di

import (
	"context"
	"fmt"
	"time"

	"PendlePulse/internal/domain/repository"
	"PendlePulse/internal/handler/api"
	"PendlePulse/internal/handler/ws"
	mid "PendlePulse/internal/middleware"
	internalrepo "PendlePulse/internal/repository"
	"PendlePulse/internal/repository/migrations"
	"PendlePulse/internal/service/pendle"
	"PendlePulse/internal/service/ratelimit"
	"PendlePulse/internal/services/analytics"
	"PendlePulse/internal/usecase"
	"PendlePulse/pkg/cache"
	pkgch "PendlePulse/pkg/clickhouse"
	"PendlePulse/pkg/config"
	xhttp "PendlePulse/pkg/http"
	pkgkafka "PendlePulse/pkg/kafka"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/metrics"
	"PendlePulse/pkg/postgres"
	"PendlePulse/pkg/server"
)

const initTimeout = 30 * time.Second

// ProvideKafkaProducer creates a Kafka producer when the kafka backend or the log collector needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != config.BackendKafka && !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreate),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger and attaches the aggregated error collector.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSnapshotStore opens the configured storage, applies migrations and returns the store.
func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) (repository.SnapshotStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	switch cfg.Storage.Type {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.Postgres.DSN,
			postgres.WithMaxConns(cfg.Storage.Postgres.MaxConns),
			postgres.WithMaxConnLifetime(cfg.Storage.Postgres.MaxConnLifetime),
		)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		l.Info("postgres storage ready")
		return internalrepo.NewPGSnapshotStore(pool), nil

	case config.StorageClickHouse:
		ch := cfg.Storage.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase("default"),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
			pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		if err := migrations.RunClickhouse(ctx, client, ch.Database); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		store, err := internalrepo.NewCHSnapshotStore(ctx, client, ch.Database)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse store: %w", err)
		}
		store.SetLogger(l)
		l.Info("clickhouse storage ready", applogger.String("database", ch.Database))
		return store, nil

	default:
		l.Warn("using in-memory storage, snapshots are lost on restart")
		return internalrepo.NewMemorySnapshotStore(), nil
	}
}

// ProvidePublisher creates the Kafka snapshot publisher for the kafka backend.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if cfg.Backend.Type != config.BackendKafka || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache creates the result cache selected by cache.type. none yields a nil cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	redisCache := func() (*cache.RedisCache, error) {
		return cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		)
	}

	switch cfg.Cache.Type {
	case config.CacheMemory:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.Cleanup),
		), nil
	case config.CacheRedis:
		rc, err := redisCache()
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case config.CacheLayered:
		rc, err := redisCache()
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Cache.L1TTL),
		), nil
	default:
		return nil, nil
	}
}

// ProvideHub creates the websocket snapshot hub.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(ws.Config{
		SendBuffer:   cfg.WS.SendBuffer,
		PingInterval: cfg.WS.PingInterval,
		WriteTimeout: cfg.WS.WriteTimeout,
	}, l)
}

// ProvideWindow creates the shared window query.
func ProvideWindow(store repository.SnapshotStore) *analytics.Window {
	return analytics.NewWindow(store)
}

// ProvideMarketsUseCase creates the markets use case with optional result caching.
func ProvideMarketsUseCase(store repository.SnapshotStore, window *analytics.Window, c cache.Service, cfg *config.Config, l *applogger.Logger) *usecase.MarketsUseCase {
	opts := []usecase.MarketsOption{usecase.WithMarketsLogger(l)}
	if c != nil {
		opts = append(opts, usecase.WithCache(c, cfg.Cache.TTL))
	}
	return usecase.NewMarketsUseCase(store, window, opts...)
}

// ProvideInsightsUseCase creates the trend and price change use case.
func ProvideInsightsUseCase(window *analytics.Window, cfg *config.Config) *usecase.InsightsUseCase {
	return usecase.NewInsightsUseCase(
		analytics.NewTrendAnalyzer(window),
		analytics.NewPriceChangeCalculator(window),
		usecase.WithSwapFee(cfg.Analytics.SwapFee),
	)
}

// ProvideSnapshotIngestor creates the ingestor routed on backend.type.
func ProvideSnapshotIngestor(
	store repository.SnapshotStore,
	pub repository.Publisher,
	m repository.Metrics,
	hub *ws.Hub,
	markets *usecase.MarketsUseCase,
	cfg *config.Config,
	l *applogger.Logger,
) (*usecase.SnapshotIngestor, error) {
	return usecase.NewSnapshotIngestor(store, pub, m, cfg.Backend.Type,
		usecase.WithNotifier(hub),
		usecase.WithInvalidator(markets),
		usecase.WithIngestorLogger(l),
	)
}

// ProvideSnapshotPipeline puts validation, throttling and retry buffering in front of the ingestor.
func ProvideSnapshotPipeline(ingestor *usecase.SnapshotIngestor, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *mid.SnapshotPipeline {
	return mid.NewSnapshotPipeline(ingestor, m,
		mid.WithMinInterval(cfg.Pipeline.MinInterval),
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithMaxBackoff(cfg.Pipeline.MaxBackoff),
		mid.WithPipelineLogger(l),
	)
}

// ProvideMarketSource creates the upstream Pendle API client.
func ProvideMarketSource(cfg *config.Config, l *applogger.Logger) (repository.MarketSource, error) {
	client, err := pendle.New(cfg.Source.APIBase,
		pendle.WithRequestTimeout(cfg.Source.RequestTimeout),
		pendle.WithRetries(cfg.Source.Retries, cfg.Source.RetryInitial),
		pendle.WithRateLimit(ratelimit.New(), cfg.Source.RateBurst, cfg.Source.RatePerSec),
		pendle.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("pendle client: %w", err)
	}
	return client, nil
}

// ProvideSourceUseCase creates the upstream pass-through use case when source.enabled is set.
func ProvideSourceUseCase(cfg *config.Config, source repository.MarketSource) *usecase.SourceUseCase {
	if !cfg.Source.Enabled {
		return nil
	}
	return usecase.NewSourceUseCase(source)
}

// ProvideMarketPoller creates the poller when source.enabled is set.
func ProvideMarketPoller(cfg *config.Config, source repository.MarketSource, pipeline *mid.SnapshotPipeline, m repository.Metrics, l *applogger.Logger) *usecase.MarketPoller {
	if !cfg.Source.Enabled {
		return nil
	}
	return usecase.NewMarketPoller(usecase.PollerConfig{
		Interval:    cfg.Source.PollInterval,
		Concurrency: cfg.Source.Concurrency,
		Timeout:     cfg.Source.CycleTimeout,
	}, source, pipeline, m, l)
}

// ProvideKafkaConsumer creates the snapshot consumer for the kafka backend.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != config.BackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.RejectEmptyHook(),
		pkgkafka.LoggingHook(l),
	))
	return consumer, nil
}

// ProvideKafkaSnapshotsHandler persists consumed snapshot events.
func ProvideKafkaSnapshotsHandler(cfg *config.Config, ingestor *usecase.SnapshotIngestor, m repository.Metrics) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topic, ingestor, m)
}

// ProvideHTTPHandler combines the REST API and the websocket stream.
func ProvideHTTPHandler(
	l *applogger.Logger,
	markets *usecase.MarketsUseCase,
	insights *usecase.InsightsUseCase,
	source *usecase.SourceUseCase,
	hub *ws.Hub,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewMarketsEchoHandler(l, markets, insights, source),
		hub,
	}
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.SnapshotPipeline,
	ingestor *usecase.SnapshotIngestor,
	hub *ws.Hub,
	poller *usecase.MarketPoller,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	producer *pkgkafka.Producer,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, server.Components{
		HTTPServer: httpServer,
		Pipeline:   pipeline,
		Ingestor:   ingestor,
		Hub:        hub,
		Poller:     poller,
		Consumer:   consumer,
		Handler:    kh,
		Producer:   producer,
		Cache:      c,
	})
}

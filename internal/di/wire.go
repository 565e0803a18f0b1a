//go:build wireinject
// +build wireinject

package di

import (
	"PendlePulse/pkg/config"
	"PendlePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideSnapshotStore,
		ProvidePublisher,
		ProvideCache,
		ProvideMarketSource,

		// Analytics and use cases
		ProvideWindow,
		ProvideMarketsUseCase,
		ProvideInsightsUseCase,
		ProvideSourceUseCase,
		ProvideHub,
		ProvideSnapshotIngestor,
		ProvideSnapshotPipeline,
		ProvideMarketPoller,
		ProvideKafkaConsumer,
		ProvideKafkaSnapshotsHandler,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

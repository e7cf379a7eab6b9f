//go:build wireinject
// +build wireinject

package di

import (
	"BuzzRadar/pkg/config"
	"BuzzRadar/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideObservationStore,
		ProvideAggregateStore,
		ProvideAlertStore,
		ProvideWatermarkStore,
		ProvideWSHub,
		ProvideAlertPublisher,

		// Use cases
		ProvideAlertManager,
		ProvideAggregator,
		ProvidePipeline,
		ProvideRunner,
		ProvideMaintenance,
		ProvideScheduler,
		ProvidePostsHandler,
		ProvideDashboard,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

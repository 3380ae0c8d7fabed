//go:build wireinject
// +build wireinject

package di

import (
	"SepsisWatch/internal/usecase"
	"SepsisWatch/pkg/config"
	"SepsisWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Repositories
		ProvideResultStorage,
		ProvideResultStore,
		ProvideResultPublisher,
		ProvideQuarantine,

		// Pipeline stages
		ProvideValidator,
		ProvideFeatureEngine,
		ProvideScorer,
		ProvideModelScorer,
		ProvidePipeline,

		// Use cases
		ProvideEventProcessor,
		ProvideIntakeBuffer,
		ProvideKafkaObservationsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeBatchRunner wires only the in-process pipeline, with no broker,
// warehouse or cache, for offline file runs.
func InitializeBatchRunner(cfg *config.Config) (*usecase.BatchRunner, error) {
	wire.Build(
		ProvideMetrics,
		ProvideValidator,
		ProvideFeatureEngine,
		ProvideScorer,
		ProvideModelScorer,
		ProvidePipeline,
		usecase.NewBatchRunner,
	)
	return &usecase.BatchRunner{}, nil
}

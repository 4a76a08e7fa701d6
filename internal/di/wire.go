//go:build wireinject
// +build wireinject

package di

import (
	"QuantCore/pkg/config"
	"QuantCore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,

		// Domain services
		ProvideHistoryStore,
		ProvidePairTracker,
		ProvideRiskEngine,
		ProvideOptimizer,

		// Repositories
		ProvideTickStore,
		ProvideSignalPublisher,

		// Pipeline and use cases
		ProvideSignalPipeline,
		ProvideStrategyManager,
		ProvideMarketStream,
		ProvideTickCollector,
		ProvideRebalancer,
		ProvideQueue,
		ProvideSnapshotService,

		// HTTP surface and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"KalshiPulse/pkg/config"
	"KalshiPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Exchange clients
		ProvideMarketData,
		ProvideMarketStream,

		// Analysis services
		ProvideReasoningEngine,
		ProvideEnsembleModel,
		ProvideAnalyzer,
		ProvideGenerator,

		// Risk and execution
		ProvideTrader,
		ProvideExposureMonitor,

		// Event sinks
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideStorage,
		ProvidePublisher,
		ProvideEventRecorder,

		// Pipeline and surface
		ProvideStrategyRunner,
		ProvideStreamPipeline,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

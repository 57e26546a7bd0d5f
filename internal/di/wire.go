//go:build wireinject
// +build wireinject

package di

import (
	"PerpScan/pkg/config"
	"PerpScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data plane
		ProvideBus,
		ProvideMapper,
		ProvideStore,

		// Providers
		ProvideManager,
		ProvideStartSpecs,

		// Detection
		ProvideNotifier,
		ProvideEngine,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// Package di provides dependency injection configuration for the Nearby server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/di/providers"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Upstream clients
	do.Provide(injector, providers.ProvideEventsClient)

	// Business services
	do.Provide(injector, providers.ProvideHistoryService)
	do.Provide(injector, providers.ProvideBusinessService)
	do.Provide(injector, providers.ProvideFeedService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*providers.EventsClientHandle](injector)
	_ = do.MustInvoke[*service.HistoryService](injector)
	_ = do.MustInvoke[*service.BusinessService](injector)
	_ = do.MustInvoke[*service.FeedService](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}

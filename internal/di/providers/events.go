package providers

import (
	"github.com/samber/do/v2"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/events"
	"github.com/nearbyapp/nearby-server/internal/logger"
)

// EventsClientHandle wraps the events client for DI.
type EventsClientHandle struct {
	*events.Client
}

// ProvideEventsClient provides the Ticketmaster Discovery client.
// A missing API key is non-fatal: the events endpoint answers 503 and
// every other route works normally.
func ProvideEventsClient(i do.Injector) (*EventsClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := events.NewClient(cfg.Events, log)
	if !client.Configured() {
		log.Warn("Events provider not configured - /api/events will return 503")
	} else {
		log.Info("Events provider configured",
			"cache_size", cfg.Events.CacheSize,
			"cache_ttl", cfg.Events.CacheTTL,
		)
	}

	return &EventsClientHandle{Client: client}, nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/store"
)

// StoreHandle wraps the Postgres store with shutdown capability.
type StoreHandle struct {
	*store.Postgres
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the Postgres-backed store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	return &StoreHandle{Postgres: db}, nil
}

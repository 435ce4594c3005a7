package providers

import (
	"github.com/samber/do/v2"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/feed"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/service"
)

// ProvideHistoryService provides the search history recorder.
func ProvideHistoryService(i do.Injector) (*service.HistoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHistoryService(storeHandle.Postgres, log), nil
}

// ProvideBusinessService provides the listing read and create service.
func ProvideBusinessService(i do.Injector) (*service.BusinessService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	history := do.MustInvoke[*service.HistoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBusinessService(storeHandle.Postgres, history, log), nil
}

// ProvideFeedService provides the blended "For You" feed service.
func ProvideFeedService(i do.Injector) (*service.FeedService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	blendCfg := feed.BlendConfig{
		PersonalCategoryCap: cfg.Feed.PersonalCategoryCap,
		TopCategoryCap:      cfg.Feed.TopCategoryCap,
		ExploreCategoryCap:  cfg.Feed.ExploreCategoryCap,
	}

	return service.NewFeedService(storeHandle.Postgres, blendCfg, log), nil
}

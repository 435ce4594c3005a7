// Package api exposes the HTTP surface: listing reads, business creation,
// the personalized feed, the events proxy and health.
package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/events"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/ratelimit"
	"github.com/nearbyapp/nearby-server/internal/service"
	"github.com/nearbyapp/nearby-server/internal/store"
)

// Server hosts the HTTP API.
type Server struct {
	router *chi.Mux
	api    huma.API
	http   *http.Server
	logger *logger.Logger

	store    store.Store
	business *service.BusinessService
	feeds    *service.FeedService
	events   *events.Client

	createLimiter *ratelimit.KeyedLimiter
}

// NewServer wires the router, middleware and routes.
func NewServer(
	cfg *config.Config,
	st store.Store,
	business *service.BusinessService,
	feeds *service.FeedService,
	eventsClient *events.Client,
	log *logger.Logger,
) *Server {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID", "X-Request-ID"},
		MaxAge:         300,
	}))

	s := &Server{
		router:   router,
		logger:   log,
		store:    st,
		business: business,
		feeds:    feeds,
		events:   eventsClient,

		createLimiter: ratelimit.New(createRPS, createBurst),
	}

	router.Use(s.requestIDMiddleware)
	router.Use(s.loggingMiddleware)

	humaConfig := huma.DefaultConfig("Nearby API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerBusinessRoutes()
	s.registerEventRoutes()
	s.registerHealthRoutes()

	s.http = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.createLimiter.Stop()
	return s.http.Shutdown(ctx)
}

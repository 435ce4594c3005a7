package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/events"
	"github.com/nearbyapp/nearby-server/internal/feed"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/service"
	"github.com/nearbyapp/nearby-server/internal/store"
)

// fakeStore implements store.Store with canned responses.
type fakeStore struct {
	ranked       store.RPCOutcome
	unified      store.RPCOutcome
	fallbackRows []domain.Listing
	fallbackErr  error

	trendingRows  []domain.Listing
	trendingCount int

	prefs *domain.UserPreferences

	existing *domain.Listing
	business *domain.Listing
	pingErr  error
}

func (f *fakeStore) ListRanked(context.Context, *domain.ListQuery) store.RPCOutcome {
	return f.ranked
}

func (f *fakeStore) ForYouUnified(context.Context, string, int) store.RPCOutcome {
	return f.unified
}

func (f *fakeStore) ListFallback(context.Context, *domain.ListQuery) ([]domain.Listing, error) {
	return f.fallbackRows, f.fallbackErr
}

func (f *fakeStore) PersonalBucket(context.Context, []string, int) ([]domain.Listing, error) {
	return nil, nil
}

func (f *fakeStore) TopBucket(context.Context, int) ([]domain.Listing, error) { return nil, nil }

func (f *fakeStore) ExploreBucket(context.Context, int) ([]domain.Listing, error) {
	return nil, nil
}

func (f *fakeStore) TrendingView(context.Context, store.TrendingKind, int) ([]domain.Listing, error) {
	return f.trendingRows, nil
}

func (f *fakeStore) TrendingCount(context.Context, store.TrendingKind) (int, error) {
	return f.trendingCount, nil
}

func (f *fakeStore) GetBusiness(context.Context, string) (*domain.Listing, error) {
	if f.business != nil {
		return f.business, nil
	}
	return nil, apperrors.NotFound("business not found")
}

func (f *fakeStore) CreateBusiness(context.Context, *domain.Listing, string) error { return nil }

func (f *fakeStore) SlugExists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) FindByNormalizedName(context.Context, string) (*domain.Listing, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeStore) SimilarBusinesses(context.Context, string, int) ([]domain.Listing, error) {
	return nil, nil
}

func (f *fakeStore) UserPreferences(context.Context, string) (*domain.UserPreferences, error) {
	if f.prefs != nil {
		return f.prefs, nil
	}
	return &domain.UserPreferences{}, nil
}

func (f *fakeStore) RecordSearch(context.Context, string, string, int) error { return nil }

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

// setupTestServer builds the full server around a fake store and wraps its
// API for in-process requests.
func setupTestServer(t *testing.T, st *fakeStore) humatest.TestAPI {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard, Format: "json", Level: slog.LevelError})

	// Events backend answering every search with one event.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"_embedded":{"events":[{"id":"ev-1","name":"Jazz Night"}]}}`))
	}))
	t.Cleanup(backend.Close)

	eventsClient := events.NewClient(config.EventsConfig{
		APIKey:    "test-key",
		BaseURL:   backend.URL,
		CacheTTL:  time.Minute,
		CacheSize: 10,
	}, log)

	history := service.NewHistoryService(st, log)
	business := service.NewBusinessService(st, history, log)
	feeds := service.NewFeedService(st, feed.DefaultBlendConfig(), log)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", CORSOrigins: []string{"*"}},
	}
	srv := NewServer(cfg, st, business, feeds, eventsClient, log)

	return humatest.Wrap(t, srv.api)
}

func mkListing(id string, rating float64, reviews int) domain.Listing {
	return domain.Listing{
		ID: id, Slug: id, Name: id, Category: "cafe", Interest: "food-drink",
		AverageRating: rating, TotalReviews: reviews,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func requireJSON(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	require.Contains(t, resp.Header().Get("Content-Type"), "json")
}

package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/store"
)

func TestListBusinesses(t *testing.T) {
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10),
			mkListing("biz-2", 4.0, 5),
		}},
	}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses?sort=rating_desc")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	requireJSON(t, resp)

	var body ListBusinessesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Businesses, 2)
	assert.Equal(t, "biz-1", body.Businesses[0].ID)
	// Labels resolve from the taxonomy, never a generic bucket.
	assert.Equal(t, "Cafe", body.Businesses[0].CategoryLabel)
	assert.Equal(t, "Food & Drink", body.Businesses[0].InterestLabel)
	// Short page, no cursor.
	assert.Nil(t, body.CursorID)
}

func TestListBusinessesEmptyIs200(t *testing.T) {
	st := &fakeStore{
		ranked:      store.RPCOutcome{State: store.RPCUnavailable},
		fallbackErr: assert.AnError,
	}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses?q=nothing")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListBusinessesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotNil(t, body.Businesses)
	assert.Empty(t, body.Businesses)
}

func TestListBusinessesSearchHighlights(t *testing.T) {
	row := mkListing("biz-1", 4.5, 10)
	row.Name = "Corner Cafe"
	st := &fakeStore{ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{row}}}
	api := setupTestServer(t, st)

	// "coffee" is substituted to "cafe" before matching and highlighting.
	resp := api.Get("/api/businesses?q=coffee")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListBusinessesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Businesses, 1)
	assert.Equal(t, "Corner <mark>Cafe</mark>", body.Businesses[0].HighlightedName)
}

func TestListBusinessesMalformedParamsFallBackToDefaults(t *testing.T) {
	st := &fakeStore{ranked: store.RPCOutcome{State: store.RPCOK}}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses?limit=junk&lat=abc&min_rating=nope")
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestMixedFeedRequiresUser(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Get("/api/businesses?feed=mixed")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.NotEmpty(t, apiErr.Message)
}

func TestMixedFeedRequiresPreferences(t *testing.T) {
	st := &fakeStore{prefs: &domain.UserPreferences{UserID: "user-1"}}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses?feed=mixed", "X-User-ID: user-1")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "MISSING_PREFERENCES", apiErr.Code)
}

func TestMixedFeedReturnsMeta(t *testing.T) {
	st := &fakeStore{
		prefs: &domain.UserPreferences{
			UserID:       "user-1",
			Interests:    []string{"food-drink"},
			Dealbreakers: []string{"verified_only"},
		},
		// Unverified row forces deal-breaker relaxation.
		unified: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.0, 3),
		}},
	}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses?feed=mixed", "X-User-ID: user-1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body ListBusinessesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, "mixed", body.Meta.Feed)
	assert.True(t, body.Meta.DealbreakersRelaxed)
	assert.Len(t, body.Businesses, 1)
}

func TestCreateBusiness(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Post("/api/businesses", "X-User-ID: user-1", map[string]any{
		"name":     "Joe's Pizza",
		"location": "Downtown",
		"category": "restaurant",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body CreateBusinessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "joes-pizza", body.Business.Slug)
	assert.Equal(t, "Restaurant", body.Business.CategoryLabel)
	assert.NotEmpty(t, body.Business.ID)
}

func TestCreateBusinessRequiresUser(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Post("/api/businesses", map[string]any{
		"name":     "Joe's Pizza",
		"location": "Downtown",
		"category": "restaurant",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateBusinessDuplicateIs409(t *testing.T) {
	dup := mkListing("biz-existing", 4, 10)
	api := setupTestServer(t, &fakeStore{existing: &dup})

	resp := api.Post("/api/businesses", "X-User-ID: user-1", map[string]any{
		"name":     "Joe's Pizza",
		"location": "Downtown",
		"category": "restaurant",
	})
	require.Equal(t, http.StatusConflict, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "BUSINESS_ALREADY_EXISTS", apiErr.Code)
}

func TestCreateBusinessValidationDetails(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Post("/api/businesses", "X-User-ID: user-1", map[string]any{
		"name": "x",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "VALIDATION", apiErr.Code)
	assert.NotNil(t, apiErr.Details)
}

func TestCreateBusinessRateLimited(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	// The per-user bucket allows a burst of three creates.
	for i := 0; i < 3; i++ {
		resp := api.Post("/api/businesses", "X-User-ID: user-1", map[string]any{
			"name":     "Joe's Pizza",
			"location": "Downtown",
			"category": "restaurant",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp := api.Post("/api/businesses", "X-User-ID: user-1", map[string]any{
		"name":     "Joe's Pizza",
		"location": "Downtown",
		"category": "restaurant",
	})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)

	// Another user is unaffected.
	resp = api.Post("/api/businesses", "X-User-ID: user-2", map[string]any{
		"name":     "Joe's Pizza",
		"location": "Downtown",
		"category": "restaurant",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestProbeBusinessViews(t *testing.T) {
	api := setupTestServer(t, &fakeStore{trendingCount: 37})

	resp := api.Do(http.MethodHead, "/api/businesses?type=trending")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "public, max-age=900", resp.Header().Get("Cache-Control"))
	assert.Equal(t, "37", resp.Header().Get("X-Total-Count"))
	assert.Empty(t, resp.Body.String())

	resp = api.Do(http.MethodHead, "/api/businesses?type=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListTrending(t *testing.T) {
	st := &fakeStore{trendingRows: []domain.Listing{mkListing("biz-hot", 4.9, 80)}}
	api := setupTestServer(t, st)

	resp := api.Get("/api/businesses/trending?type=top")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "public, max-age=900", resp.Header().Get("Cache-Control"))

	var body ListBusinessesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Businesses, 1)
	assert.Equal(t, "biz-hot", body.Businesses[0].ID)
}

func TestGetBusinessNotFound(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Get("/api/businesses/biz-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestListEvents(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Get("/api/events?city=New%20York")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body ListEventsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Jazz Night", body.Events[0].Name)
}

func TestHealth(t *testing.T) {
	api := setupTestServer(t, &fakeStore{})

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Components, "database")
	assert.Contains(t, body.Components, "events")
}

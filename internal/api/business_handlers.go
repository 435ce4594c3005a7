package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/query"
	"github.com/nearbyapp/nearby-server/internal/service"
	"github.com/nearbyapp/nearby-server/internal/store"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
)

// trendingCacheControl is the client cache window for materialized-view
// reads, matching the view refresh interval.
const trendingCacheControl = "public, max-age=900"

// Per-user creation budget. The burst absorbs a legitimate onboarding spree,
// the refill rate caps sustained submission.
const (
	createRPS   = 1.0 / 30
	createBurst = 3
)

func (s *Server) registerBusinessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBusinesses",
		Method:      http.MethodGet,
		Path:        "/api/businesses",
		Summary:     "List businesses",
		Description: "Returns one page of businesses, searched, filtered and ranked",
		Tags:        []string{"Businesses"},
	}, s.handleListBusinesses)

	huma.Register(s.api, huma.Operation{
		OperationID: "probeBusinessViews",
		Method:      http.MethodHead,
		Path:        "/api/businesses",
		Summary:     "Probe listing views",
		Description: "Reports materialized view availability via headers only",
		Tags:        []string{"Businesses"},
	}, s.handleProbeBusinessViews)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBusiness",
		Method:        http.MethodPost,
		Path:          "/api/businesses",
		Summary:       "Create business",
		Description:   "Creates a new business listing",
		Tags:          []string{"Businesses"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBusiness)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTrendingBusinesses",
		Method:      http.MethodGet,
		Path:        "/api/businesses/trending",
		Summary:     "List trending businesses",
		Description: "Returns businesses from the trending, top-rated or new views",
		Tags:        []string{"Businesses"},
	}, s.handleListTrending)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBusiness",
		Method:      http.MethodGet,
		Path:        "/api/businesses/{id}",
		Summary:     "Get business",
		Description: "Returns a single business by id",
		Tags:        []string{"Businesses"},
	}, s.handleGetBusiness)
}

// === DTOs ===

// BusinessResponse is the wire shape of one listing.
type BusinessResponse struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location,omitempty"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"category_label"`
	Interest      string    `json:"interest_id,omitempty"`
	InterestLabel string    `json:"interest_label,omitempty"`
	Lat           *float64  `json:"lat,omitempty"`
	Lng           *float64  `json:"lng,omitempty"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int       `json:"total_reviews"`
	PriceRange    string    `json:"price_range,omitempty"`
	Verified      bool      `json:"verified"`
	Badge         string    `json:"badge,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Website       string    `json:"website,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	DistanceKm         *float64 `json:"distance_km,omitempty"`
	HighlightedName    string   `json:"highlighted_name,omitempty"`
	HighlightedSnippet string   `json:"highlighted_snippet,omitempty"`
}

func toBusinessResponse(l *domain.Listing) BusinessResponse {
	return BusinessResponse{
		ID:            l.ID,
		Slug:          l.Slug,
		Name:          l.Name,
		Description:   l.Description,
		Location:      l.Location,
		Category:      l.Category,
		CategoryLabel: taxonomy.LabelFor(l.Category),
		Interest:      l.Interest,
		InterestLabel: taxonomy.LabelFor(l.Interest),
		Lat:           l.Lat,
		Lng:           l.Lng,
		AverageRating: l.AverageRating,
		TotalReviews:  l.TotalReviews,
		PriceRange:    string(l.PriceRange),
		Verified:      l.Verified,
		Badge:         l.Badge,
		Phone:         l.Phone,
		Email:         l.Email,
		Website:       l.Website,
		PhotoURL:      l.PhotoURL,
		CreatedAt:     l.CreatedAt,

		DistanceKm:         l.DistanceKm,
		HighlightedName:    l.HighlightedName,
		HighlightedSnippet: l.HighlightedSnippet,
	}
}

func toBusinessResponses(ls []domain.Listing) []BusinessResponse {
	out := make([]BusinessResponse, len(ls))
	for i := range ls {
		out[i] = toBusinessResponse(&ls[i])
	}
	return out
}

// ListMeta is the optional metadata block on listing responses.
type ListMeta struct {
	RequestID           string `json:"requestId,omitempty"`
	Feed                string `json:"feed,omitempty"`
	DealbreakersRelaxed bool   `json:"dealbreakersRelaxed,omitempty"`
}

// ListBusinessesResponse is the page shape for every listing read.
type ListBusinessesResponse struct {
	Businesses []BusinessResponse `json:"businesses"`
	CursorID   *string            `json:"cursorId"`
	Meta       *ListMeta          `json:"meta,omitempty"`
}

// ListBusinessesInput carries every accepted parameter as a raw string:
// parsing is deliberately forgiving, so typed decoding (which rejects
// malformed values) is bypassed in favor of the query normalizer.
type ListBusinessesInput struct {
	UserID string `header:"X-User-ID" doc:"Gateway-injected caller id"`

	Q               string `query:"q" doc:"Free-text search term"`
	Search          string `query:"search" doc:"Alias of q"`
	Category        string `query:"category" doc:"Leaf category slug"`
	Badge           string `query:"badge" doc:"Exact badge filter"`
	Location        string `query:"location" doc:"Location substring filter"`
	Interests       string `query:"interests" doc:"Comma-separated interest slugs"`
	InterestIDs     string `query:"interest_ids" doc:"Alias of interests"`
	SubInterestIDs  string `query:"sub_interest_ids" doc:"Comma-separated subcategory slugs"`
	Sort            string `query:"sort" doc:"Sort shorthand, e.g. rating_desc"`
	SortBy          string `query:"sort_by" doc:"Explicit sort key"`
	SortOrder       string `query:"sort_order" doc:"asc or desc"`
	Lat             string `query:"lat" doc:"Caller latitude"`
	Lng             string `query:"lng" doc:"Caller longitude"`
	RadiusKm        string `query:"radius_km" doc:"Distance filter in km"`
	Radius          string `query:"radius" doc:"Alias of radius_km"`
	VerifiedOnly    string `query:"verified_only" doc:"Only verified businesses"`
	Verified        string `query:"verified" doc:"Alias of verified_only"`
	MinRating       string `query:"min_rating" doc:"Minimum average rating"`
	MaxPriceLevel   string `query:"max_price_level" doc:"Maximum price level 1-4"`
	PriceRange      string `query:"price_range" doc:"Exact price tier filter"`
	Dealbreakers    string `query:"dealbreakers" doc:"Comma-separated hard constraints"`
	PreferredPrices string `query:"preferred_price_ranges" doc:"Comma-separated preferred price tiers"`
	Feed            string `query:"feed" doc:"standard or mixed"`
	FeedStrategy    string `query:"feed_strategy" doc:"Alias of feed"`
	Limit           string `query:"limit" doc:"Page size, 1-50"`
	CursorID        string `query:"cursor_id" doc:"Keyset cursor id"`
	CursorCreatedAt string `query:"cursor_created_at" doc:"Keyset cursor timestamp"`
}

// values rebuilds url.Values for the query normalizer.
func (in *ListBusinessesInput) values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("q", in.Q)
	set("search", in.Search)
	set("category", in.Category)
	set("badge", in.Badge)
	set("location", in.Location)
	set("interests", in.Interests)
	set("interest_ids", in.InterestIDs)
	set("sub_interest_ids", in.SubInterestIDs)
	set("sort", in.Sort)
	set("sort_by", in.SortBy)
	set("sort_order", in.SortOrder)
	set("lat", in.Lat)
	set("lng", in.Lng)
	set("radius_km", in.RadiusKm)
	set("radius", in.Radius)
	set("verified_only", in.VerifiedOnly)
	set("verified", in.Verified)
	set("min_rating", in.MinRating)
	set("max_price_level", in.MaxPriceLevel)
	set("price_range", in.PriceRange)
	set("dealbreakers", in.Dealbreakers)
	set("preferred_price_ranges", in.PreferredPrices)
	set("feed", in.Feed)
	set("feed_strategy", in.FeedStrategy)
	set("limit", in.Limit)
	set("cursor_id", in.CursorID)
	set("cursor_created_at", in.CursorCreatedAt)
	return v
}

// ListBusinessesOutput wraps the page body.
type ListBusinessesOutput struct {
	Body ListBusinessesResponse
}

func (s *Server) handleListBusinesses(ctx context.Context, input *ListBusinessesInput) (*ListBusinessesOutput, error) {
	q := query.Parse(input.values())
	q.UserID = input.UserID

	meta := &ListMeta{RequestID: RequestIDFrom(ctx), Feed: string(q.Feed)}

	// The mixed feed is the personalized path with its own error taxonomy.
	if q.Feed == domain.FeedMixed {
		page, err := s.feeds.ForYou(ctx, q)
		if err != nil {
			return nil, err
		}
		meta.DealbreakersRelaxed = page.DealbreakersRelaxed
		return &ListBusinessesOutput{Body: ListBusinessesResponse{
			Businesses: toBusinessResponses(page.Listings),
			CursorID:   page.CursorID,
			Meta:       meta,
		}}, nil
	}

	page := s.business.List(ctx, q)
	meta.DealbreakersRelaxed = page.DealbreakersRelaxed
	return &ListBusinessesOutput{Body: ListBusinessesResponse{
		Businesses: toBusinessResponses(page.Listings),
		CursorID:   page.CursorID,
		Meta:       meta,
	}}, nil
}

// ProbeBusinessViewsInput selects which materialized view to probe.
type ProbeBusinessViewsInput struct {
	Type string `query:"type" doc:"trending, top or new"`
}

// ProbeBusinessViewsOutput is headers only; HEAD has no body.
type ProbeBusinessViewsOutput struct {
	CacheControl string `header:"Cache-Control"`
	TotalCount   int    `header:"X-Total-Count"`
}

func (s *Server) handleProbeBusinessViews(ctx context.Context, input *ProbeBusinessViewsInput) (*ProbeBusinessViewsOutput, error) {
	kind, ok := store.ParseTrendingKind(input.Type)
	if !ok {
		return nil, apperrors.Validationf("unknown view type %q", input.Type)
	}

	count, err := s.business.TrendingCount(ctx, kind)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "view probe failed")
	}

	return &ProbeBusinessViewsOutput{
		CacheControl: trendingCacheControl,
		TotalCount:   count,
	}, nil
}

// ListTrendingInput selects the view and page size for the trending GET.
type ListTrendingInput struct {
	Type  string `query:"type" doc:"trending, top or new (default trending)"`
	Limit string `query:"limit" doc:"Page size, 1-50"`
}

// ListTrendingOutput carries the view rows plus caching headers.
type ListTrendingOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         ListBusinessesResponse
}

func (s *Server) handleListTrending(ctx context.Context, input *ListTrendingInput) (*ListTrendingOutput, error) {
	kind := store.TrendingHot
	if input.Type != "" {
		parsed, ok := store.ParseTrendingKind(input.Type)
		if !ok {
			return nil, apperrors.Validationf("unknown view type %q", input.Type)
		}
		kind = parsed
	}

	limit := domain.DefaultLimit
	if n, err := strconv.Atoi(input.Limit); err == nil && n >= 1 && n <= domain.MaxLimit {
		limit = n
	}

	rows, err := s.business.Trending(ctx, kind, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "trending read failed")
	}

	return &ListTrendingOutput{
		CacheControl: trendingCacheControl,
		Body: ListBusinessesResponse{
			Businesses: toBusinessResponses(rows),
			Meta:       &ListMeta{RequestID: RequestIDFrom(ctx)},
		},
	}, nil
}

// GetBusinessInput identifies one listing.
type GetBusinessInput struct {
	ID string `path:"id" doc:"Business id"`
}

// GetBusinessOutput wraps a single listing.
type GetBusinessOutput struct {
	Body BusinessResponse
}

func (s *Server) handleGetBusiness(ctx context.Context, input *GetBusinessInput) (*GetBusinessOutput, error) {
	l, err := s.business.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetBusinessOutput{Body: toBusinessResponse(l)}, nil
}

// CreateBusinessInput carries the JSON create payload.
type CreateBusinessInput struct {
	UserID string `header:"X-User-ID" doc:"Gateway-injected caller id"`
	Body   service.CreateBusinessRequest
}

// CreateBusinessResponse is the created record plus best-effort suggestions
// of existing listings with similar names.
type CreateBusinessResponse struct {
	Business BusinessResponse   `json:"business"`
	Similar  []BusinessResponse `json:"similar,omitempty"`
}

// CreateBusinessOutput wraps the 201 body.
type CreateBusinessOutput struct {
	Body CreateBusinessResponse
}

func (s *Server) handleCreateBusiness(ctx context.Context, input *CreateBusinessInput) (*CreateBusinessOutput, error) {
	if input.UserID == "" {
		return nil, apperrors.Unauthorized("sign in to add a business")
	}
	if !s.createLimiter.Allow(input.UserID) {
		return nil, apperrors.RateLimited("too many businesses created, try again later")
	}

	res, err := s.business.Create(ctx, input.Body)
	if err != nil {
		return nil, err
	}

	return &CreateBusinessOutput{Body: CreateBusinessResponse{
		Business: toBusinessResponse(res.Business),
		Similar:  toBusinessResponses(res.Similar),
	}}, nil
}

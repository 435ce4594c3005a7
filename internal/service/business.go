// Package service orchestrates the domain operations behind the HTTP
// handlers: listing reads with their ranked-then-fallback state machine,
// business creation, the blended feed, and search history.
package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/geo"
	"github.com/nearbyapp/nearby-server/internal/id"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/rank"
	"github.com/nearbyapp/nearby-server/internal/store"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
	"github.com/nearbyapp/nearby-server/internal/util"
	"github.com/nearbyapp/nearby-server/internal/validation"
)

// similarSuggestionLimit caps the best-effort suggestions on create.
const similarSuggestionLimit = 5

// BusinessService handles listing reads and business creation.
type BusinessService struct {
	store     store.Store
	logger    *logger.Logger
	history   *HistoryService
	validator *validation.Validator

	// newRand builds the shuffle source; swappable for deterministic tests.
	newRand func() *rand.Rand
}

// NewBusinessService creates a business service.
func NewBusinessService(st store.Store, history *HistoryService, log *logger.Logger) *BusinessService {
	return &BusinessService{
		store:     st,
		logger:    log,
		history:   history,
		validator: validation.New(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// List serves one page of listings. The ranked database function is tried
// first; when it is unavailable or fails, the plain-SQL fallback pool is
// fetched and ranked in memory. A failing fallback yields an empty page,
// never an error: browse must stay up even when the database is limping.
func (s *BusinessService) List(ctx context.Context, q *domain.ListQuery) *domain.Page {
	page := s.list(ctx, q)

	page.Listings = rank.PreferPriceRanges(page.Listings, q.PreferredPriceRanges)

	var relaxed bool
	page.Listings, relaxed = rank.ApplyDealbreakers(page.Listings, q.Dealbreakers)
	page.DealbreakersRelaxed = page.DealbreakersRelaxed || relaxed

	if q.HasSearch() {
		rank.AttachHighlights(page.Listings, q.Search)
		s.history.Record(q.UserID, q.Search, len(page.Listings))
	}
	return page
}

func (s *BusinessService) list(ctx context.Context, q *domain.ListQuery) *domain.Page {
	outcome := s.store.ListRanked(ctx, q)
	switch outcome.State {
	case store.RPCOK:
		// The function sorted and paginated server-side.
		return domain.NewPage(outcome.Rows, q.Limit)
	case store.RPCUnavailable:
		s.logger.Debug("ranked listing function unavailable, using fallback", "error", outcome.Err)
	default:
		s.logger.WithError(outcome.Err).Warn("ranked listing function failed, using fallback")
	}

	pool, err := s.store.ListFallback(ctx, q)
	if err != nil {
		s.logger.WithError(err).Error("fallback listing query failed")
		return &domain.Page{Listings: []domain.Listing{}}
	}

	return domain.NewPage(s.rankPool(pool, q), q.Limit)
}

// rankPool applies the in-memory half of the fallback path: distance
// computation, radius and price filters, the sort comparator (or the
// interest shuffle), and the final slice to limit.
func (s *BusinessService) rankPool(pool []domain.Listing, q *domain.ListQuery) []domain.Listing {
	if q.HasCoords() {
		rank.AttachDistances(pool, *q.Lat, *q.Lng)
		pool = rank.FilterRadius(pool, q.RadiusKm)
	}

	if q.MaxPriceLevel > 0 {
		kept := pool[:0]
		for _, l := range pool {
			if !l.PriceRange.Valid() || l.PriceRange.Level() <= q.MaxPriceLevel {
				kept = append(kept, l)
			}
		}
		pool = kept
	}

	// Legacy interest multi-select trades ordering for variety.
	if len(q.Interests) > 0 || len(q.SubInterests) > 0 {
		rank.Shuffle(pool, s.newRand())
	} else {
		rank.Sort(pool, q.Sort, q.Order)
	}

	if len(pool) > q.Limit {
		pool = pool[:q.Limit]
	}
	return pool
}

// Get fetches one listing by id.
func (s *BusinessService) Get(ctx context.Context, businessID string) (*domain.Listing, error) {
	return s.store.GetBusiness(ctx, businessID)
}

// Trending reads one of the materialized listing views.
func (s *BusinessService) Trending(ctx context.Context, kind store.TrendingKind, limit int) ([]domain.Listing, error) {
	return s.store.TrendingView(ctx, kind, limit)
}

// TrendingCount returns the row count of a materialized view, for the HEAD
// probe endpoint.
func (s *BusinessService) TrendingCount(ctx context.Context, kind store.TrendingKind) (int, error) {
	return s.store.TrendingCount(ctx, kind)
}

// CreateBusinessRequest carries the fields for creating a business.
// Image upload happens out of band; PhotoURL references the stored asset.
type CreateBusinessRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Location    string   `json:"location" validate:"required_without=Lat,max=200"`
	Category    string   `json:"category" validate:"required"`
	Lat         *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng" validate:"omitempty,longitude"`
	PriceRange  string   `json:"price_range" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	Phone       string   `json:"phone" validate:"max=30"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Website     string   `json:"website" validate:"omitempty,url"`
	PhotoURL    string   `json:"photo_url" validate:"omitempty,url"`
}

// CreateResult is the created listing plus best-effort suggestions of
// existing listings with similar names.
type CreateResult struct {
	Business *domain.Listing
	Similar  []domain.Listing
}

// Create validates, deduplicates and stores a new business.
func (s *BusinessService) Create(ctx context.Context, req CreateBusinessRequest) (*CreateResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Lat != nil && req.Lng != nil && !geo.ValidCoords(*req.Lat, *req.Lng) {
		return nil, apperrors.Validation("coordinates out of range")
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, apperrors.Validation("lat and lng must be provided together")
	}

	// Duplicate detection on the normalized name.
	normalized := util.NormalizeName(req.Name)
	if existing, err := s.store.FindByNormalizedName(ctx, normalized); err == nil && existing != nil {
		return nil, apperrors.AlreadyExists("a business with this name already exists").
			WithDetails(map[string]string{"existing_id": existing.ID})
	} else if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "duplicate check failed")
	}

	interest := taxonomy.ParentOf(req.Category)
	if interest == "" {
		return nil, apperrors.ValidationWithDetails("validation failed",
			map[string]string{"category": "is not a known category"})
	}

	slug, err := util.UniqueSlug(ctx, req.Name, s.store.SlugExists)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "slug generation failed")
	}

	businessID, err := id.Generate("biz")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "id generation failed")
	}

	listing := &domain.Listing{
		ID:          businessID,
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		Interest:    interest,
		Lat:         req.Lat,
		Lng:         req.Lng,
		PriceRange:  domain.PriceRange(req.PriceRange),
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		PhotoURL:    req.PhotoURL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateBusiness(ctx, listing, normalized); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create business failed")
	}

	s.logger.Info("business created",
		"business_id", listing.ID, "slug", listing.Slug, "category", listing.Category)

	result := &CreateResult{Business: listing}

	// Suggestions are best-effort; a failure never spoils the 201.
	similar, err := s.store.SimilarBusinesses(ctx, req.Name, similarSuggestionLimit)
	if err != nil {
		s.logger.WithError(err).Warn("similar business lookup failed", "business_id", listing.ID)
		return result, nil
	}
	for _, l := range similar {
		if l.ID != listing.ID {
			result.Similar = append(result.Similar, l)
		}
	}
	return result, nil
}

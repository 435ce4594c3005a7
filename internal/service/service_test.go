package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/feed"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/store"
)

// fakeStore implements store.Store with canned responses per method.
type fakeStore struct {
	ranked       store.RPCOutcome
	unified      store.RPCOutcome
	fallbackRows []domain.Listing
	fallbackErr  error

	personal, top, explore []domain.Listing
	personalCats           []string

	prefs    *domain.UserPreferences
	prefsErr error

	created       *domain.Listing
	existing      *domain.Listing
	similar       []domain.Listing
	takenSlugs    map[string]bool
	recordedTerms []string
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

func (f *fakeStore) PersonalBucket(_ context.Context, subcategories []string, _ int) ([]domain.Listing, error) {
	f.personalCats = subcategories
	return f.personal, nil
}

func (f *fakeStore) TopBucket(context.Context, int) ([]domain.Listing, error) {
	return f.top, nil
}

func (f *fakeStore) ExploreBucket(context.Context, int) ([]domain.Listing, error) {
	return f.explore, nil
}

func (f *fakeStore) TrendingView(context.Context, store.TrendingKind, int) ([]domain.Listing, error) {
	return nil, nil
}

func (f *fakeStore) TrendingCount(context.Context, store.TrendingKind) (int, error) {
	return 0, nil
}

func (f *fakeStore) GetBusiness(context.Context, string) (*domain.Listing, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeStore) CreateBusiness(_ context.Context, l *domain.Listing, _ string) error {
	f.created = l
	return nil
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	return f.takenSlugs[slug], nil
}

func (f *fakeStore) FindByNormalizedName(context.Context, string) (*domain.Listing, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeStore) SimilarBusinesses(context.Context, string, int) ([]domain.Listing, error) {
	return f.similar, nil
}

func (f *fakeStore) UserPreferences(context.Context, string) (*domain.UserPreferences, error) {
	return f.prefs, f.prefsErr
}

func (f *fakeStore) RecordSearch(_ context.Context, _, term string, _ int) error {
	f.recordedTerms = append(f.recordedTerms, term)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Format: "json", Level: slog.LevelError})
}

// syncHistory records inline so tests can assert on the fake store.
func syncHistory(st store.Store) *HistoryService {
	h := NewHistoryService(st, testLogger())
	h.record = func(fn func()) { fn() }
	return h
}

func newBusinessService(st store.Store) *BusinessService {
	s := NewBusinessService(st, syncHistory(st), testLogger())
	s.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return s
}

func mkListing(id string, rating float64, reviews int) domain.Listing {
	return domain.Listing{
		ID: id, Slug: id, Name: id, Category: "cafe",
		AverageRating: rating, TotalReviews: reviews,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestListUsesRankedRowsWhenAvailable(t *testing.T) {
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10), mkListing("biz-2", 4.0, 5),
		}},
		fallbackErr: assert.AnError, // must not be reached
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{Limit: 20, Sort: domain.SortRating})
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "biz-1", page.Listings[0].ID)
	// Short page carries no cursor.
	assert.Nil(t, page.CursorID)
}

func TestListFallsBackAndRanksInMemory(t *testing.T) {
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCUnavailable, Err: assert.AnError},
		fallbackRows: []domain.Listing{
			mkListing("biz-low", 3.0, 5),
			mkListing("biz-high", 4.9, 50),
		},
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit: 20, Sort: domain.SortRating, Order: domain.OrderDesc,
	})
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "biz-high", page.Listings[0].ID)
}

func TestListFullPageCarriesCursor(t *testing.T) {
	rows := []domain.Listing{mkListing("biz-1", 4, 1), mkListing("biz-2", 3, 1)}
	st := &fakeStore{
		ranked:       store.RPCOutcome{State: store.RPCFailed, Err: assert.AnError},
		fallbackRows: rows,
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit: 2, Sort: domain.SortRating, Order: domain.OrderDesc,
	})
	require.NotNil(t, page.CursorID)
	assert.Equal(t, page.Listings[len(page.Listings)-1].ID, *page.CursorID)
}

func TestListFallbackFailureYieldsEmptyPage(t *testing.T) {
	st := &fakeStore{
		ranked:      store.RPCOutcome{State: store.RPCUnavailable},
		fallbackErr: assert.AnError,
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{Limit: 20})
	assert.NotNil(t, page.Listings)
	assert.Empty(t, page.Listings)
	assert.Nil(t, page.CursorID)
}

func TestListSearchHighlightsAndRecordsHistory(t *testing.T) {
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			{ID: "biz-1", Name: "Corner Cafe", Description: "A cozy cafe", Category: "cafe"},
		}},
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit: 20, Search: "cafe", Sort: domain.SortRelevance, UserID: "user-1",
	})
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "Corner <mark>Cafe</mark>", page.Listings[0].HighlightedName)
	assert.Equal(t, []string{"cafe"}, st.recordedTerms)
}

func TestListInterestFilterShuffles(t *testing.T) {
	rows := make([]domain.Listing, 6)
	for i := range rows {
		rows[i] = mkListing(string(rune('a'+i)), float64(i), i)
	}
	st := &fakeStore{
		ranked:       store.RPCOutcome{State: store.RPCUnavailable},
		fallbackRows: rows,
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit: 6, Interests: []string{"food-drink"},
	})
	require.Len(t, page.Listings, 6)
	// Order is randomized, contents are not.
	got := make([]string, 6)
	for i, l := range page.Listings {
		got[i] = l.ID
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f"}, got)
}

func TestCreateBusiness(t *testing.T) {
	st := &fakeStore{similar: []domain.Listing{mkListing("biz-other", 4, 2)}}
	svc := newBusinessService(st)

	res, err := svc.Create(context.Background(), CreateBusinessRequest{
		Name:     "Joe's Pizza",
		Location: "Downtown",
		Category: "restaurant",
	})
	require.NoError(t, err)
	require.NotNil(t, st.created)

	assert.Equal(t, "joes-pizza", res.Business.Slug)
	assert.Equal(t, "food-drink", res.Business.Interest)
	assert.NotEmpty(t, res.Business.ID)
	assert.Len(t, res.Similar, 1)
}

func TestCreateBusinessSlugCollision(t *testing.T) {
	st := &fakeStore{takenSlugs: map[string]bool{"joes-pizza": true}}
	svc := newBusinessService(st)

	res, err := svc.Create(context.Background(), CreateBusinessRequest{
		Name:     "Joe's Pizza",
		Location: "Downtown",
		Category: "restaurant",
	})
	require.NoError(t, err)
	assert.Equal(t, "joes-pizza-2", res.Business.Slug)
}

func TestCreateBusinessDuplicateName(t *testing.T) {
	dup := mkListing("biz-existing", 4, 10)
	st := &fakeStore{existing: &dup}
	svc := newBusinessService(st)

	_, err := svc.Create(context.Background(), CreateBusinessRequest{
		Name:     "Joe's Pizza",
		Location: "Downtown",
		Category: "restaurant",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyExists))
}

func TestCreateBusinessValidation(t *testing.T) {
	svc := newBusinessService(&fakeStore{})

	_, err := svc.Create(context.Background(), CreateBusinessRequest{Name: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	// Unknown categories are rejected with a field detail.
	_, err = svc.Create(context.Background(), CreateBusinessRequest{
		Name: "Joe's Pizza", Location: "Downtown", Category: "spaceship",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	// Half a coordinate pair is rejected.
	lat := 40.7
	_, err = svc.Create(context.Background(), CreateBusinessRequest{
		Name: "Joe's Pizza", Location: "Downtown", Category: "restaurant", Lat: &lat,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func newFeedService(st store.Store) *FeedService {
	return NewFeedService(st, feed.DefaultBlendConfig(), testLogger())
}

func TestForYouRequiresAuth(t *testing.T) {
	svc := newFeedService(&fakeStore{})

	_, err := svc.ForYou(context.Background(), &domain.ListQuery{Limit: 20})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestForYouRequiresPreferences(t *testing.T) {
	st := &fakeStore{prefs: &domain.UserPreferences{UserID: "user-1"}}
	svc := newFeedService(st)

	_, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingPreferences))
}

func TestForYouUsesUnifiedRows(t *testing.T) {
	st := &fakeStore{
		prefs: &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10),
		}},
	}
	svc := newFeedService(st)

	page, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.False(t, page.DealbreakersRelaxed)
}

func TestForYouBlendsOnFallback(t *testing.T) {
	st := &fakeStore{
		prefs:    &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified:  store.RPCOutcome{State: store.RPCUnavailable, Err: assert.AnError},
		personal: []domain.Listing{mkListing("biz-p", 4.8, 20)},
		top:      []domain.Listing{mkListing("biz-t", 5.0, 200)},
		explore:  []domain.Listing{mkListing("biz-e", 3.9, 1)},
	}
	svc := newFeedService(st)

	page, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page.Listings, 3)
}

func TestForYouBucketsPreferStoredSubcategories(t *testing.T) {
	st := &fakeStore{
		prefs: &domain.UserPreferences{
			UserID:        "user-1",
			Interests:     []string{"food-drink"},
			Subcategories: []string{"cafe"},
		},
		unified: store.RPCOutcome{State: store.RPCUnavailable, Err: assert.AnError},
	}
	svc := newFeedService(st)

	_, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)

	// Stored subcategories go through untouched; the interest is not
	// expanded alongside them.
	assert.Equal(t, []string{"cafe"}, st.personalCats)

	// Without stored subcategories the interest expansion fills in.
	st = &fakeStore{
		prefs:   &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified: store.RPCOutcome{State: store.RPCUnavailable, Err: assert.AnError},
	}
	svc = newFeedService(st)

	_, err = svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)
	assert.Contains(t, st.personalCats, "cafe")
}

func TestForYouDropsModeratedRows(t *testing.T) {
	hidden := mkListing("biz-hidden", 5, 100)
	hidden.IsHidden = true
	st := &fakeStore{
		prefs: &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			hidden, mkListing("biz-ok", 4, 10),
		}},
	}
	svc := newFeedService(st)

	page, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "biz-ok", page.Listings[0].ID)
}

func TestForYouRelaxesDealbreakers(t *testing.T) {
	st := &fakeStore{
		prefs: &domain.UserPreferences{
			UserID:       "user-1",
			Interests:    []string{"food-drink"},
			Dealbreakers: []string{"verified_only"},
		},
		unified: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4, 10), // not verified
		}},
	}
	svc := newFeedService(st)

	page, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	// The page is kept and the relaxation disclosed.
	assert.True(t, page.DealbreakersRelaxed)
}

func TestListAppliesCallerDealbreakers(t *testing.T) {
	verified := mkListing("biz-v", 4, 10)
	verified.Verified = true
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10), verified,
		}},
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit:        20,
		Dealbreakers: []string{"verified_only"},
	})
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "biz-v", page.Listings[0].ID)
	assert.False(t, page.DealbreakersRelaxed)
}

func TestListRelaxesCallerDealbreakers(t *testing.T) {
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10), // not verified
		}},
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit:        20,
		Dealbreakers: []string{"verified_only"},
	})
	require.Len(t, page.Listings, 1)
	assert.True(t, page.DealbreakersRelaxed)
}

func TestListPrefersPriceRanges(t *testing.T) {
	cheap := mkListing("biz-cheap", 4, 10)
	cheap.PriceRange = domain.PriceCheap
	fancy := mkListing("biz-fancy", 5, 50)
	fancy.PriceRange = domain.PriceLuxury
	st := &fakeStore{
		ranked: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{fancy, cheap}},
	}
	svc := newBusinessService(st)

	page := svc.List(context.Background(), &domain.ListQuery{
		Limit:                20,
		PreferredPriceRanges: []string{"$"},
	})
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "biz-cheap", page.Listings[0].ID)

	// A preference no listing matches is dropped rather than emptying the page.
	page = svc.List(context.Background(), &domain.ListQuery{
		Limit:                20,
		PreferredPriceRanges: []string{"$$"},
	})
	assert.Len(t, page.Listings, 2)
	assert.False(t, page.DealbreakersRelaxed)
}

func TestForYouMergesCallerDealbreakers(t *testing.T) {
	verified := mkListing("biz-v", 4, 10)
	verified.Verified = true
	st := &fakeStore{
		prefs: &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified: store.RPCOutcome{State: store.RPCOK, Rows: []domain.Listing{
			mkListing("biz-1", 4.5, 10), verified,
		}},
	}
	svc := newFeedService(st)

	page, err := svc.ForYou(context.Background(), &domain.ListQuery{
		UserID:       "user-1",
		Limit:        20,
		Dealbreakers: []string{"verified_only"},
	})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "biz-v", page.Listings[0].ID)
}

func TestForYouPermissionDeniedIsForbidden(t *testing.T) {
	st := &fakeStore{
		prefs: &domain.UserPreferences{UserID: "user-1", Interests: []string{"food-drink"}},
		unified: store.RPCOutcome{
			State: store.RPCFailed,
			Err:   &pq.Error{Code: "42501", Message: "permission denied"},
		},
	}
	svc := newFeedService(st)

	_, err := svc.ForYou(context.Background(), &domain.ListQuery{UserID: "user-1", Limit: 20})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

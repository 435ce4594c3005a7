package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

func TestParseDefaults(t *testing.T) {
	q := Parse(url.Values{})

	assert.Equal(t, domain.SortNewest, q.Sort)
	assert.Equal(t, domain.OrderDesc, q.Order)
	assert.Equal(t, domain.FeedStandard, q.Feed)
	assert.Equal(t, 20, q.Limit)
	assert.False(t, q.HasCoords())
	assert.Nil(t, q.Cursor)
}

func TestParseSearchAliasesAndSynonyms(t *testing.T) {
	q := Parse(url.Values{"q": {" Best COFFEE "}})
	assert.Equal(t, "best cafe", q.Search)
	// Free-text defaults to relevance ranking.
	assert.Equal(t, domain.SortRelevance, q.Sort)

	q = Parse(url.Values{"search": {"gym"}})
	assert.Equal(t, "fitness", q.Search)

	// Explicit sort wins over the relevance default.
	q = Parse(url.Values{"q": {"pizza"}, "sort": {"rating_desc"}})
	assert.Equal(t, domain.SortRating, q.Sort)
}

func TestParseSortShorthandAndExplicit(t *testing.T) {
	q := Parse(url.Values{"sort": {"price_asc"}})
	assert.Equal(t, domain.SortPrice, q.Sort)
	assert.Equal(t, domain.OrderAsc, q.Order)

	// sort_by + sort_order override the shorthand.
	q = Parse(url.Values{"sort": {"price_asc"}, "sort_by": {"rating"}, "sort_order": {"asc"}})
	assert.Equal(t, domain.SortRating, q.Sort)
	assert.Equal(t, domain.OrderAsc, q.Order)

	// sort_by alone gets its natural direction.
	q = Parse(url.Values{"sort_by": {"price"}})
	assert.Equal(t, domain.OrderAsc, q.Order)

	// Unknown values fall back to the default.
	q = Parse(url.Values{"sort": {"bogus"}})
	assert.Equal(t, domain.SortNewest, q.Sort)
}

func TestParseRelevanceNeedsQuery(t *testing.T) {
	// Without a term, relevance means rating.
	q := Parse(url.Values{"sort": {"relevance"}})
	assert.Equal(t, domain.SortRating, q.Sort)
	assert.Equal(t, domain.OrderDesc, q.Order)

	q = Parse(url.Values{"sort": {"relevance"}, "q": {"pizza"}})
	assert.Equal(t, domain.SortRelevance, q.Sort)
}

func TestParseCoordinateGatedSorts(t *testing.T) {
	// Distance sort without coordinates degrades to newest-first.
	q := Parse(url.Values{"sort": {"distance_asc"}})
	assert.Equal(t, domain.SortNewest, q.Sort)
	assert.Equal(t, domain.OrderDesc, q.Order)

	q = Parse(url.Values{"sort": {"combo"}})
	assert.Equal(t, domain.SortNewest, q.Sort)
	assert.Equal(t, domain.OrderDesc, q.Order)

	// With coordinates the sort sticks, under either shorthand.
	q = Parse(url.Values{"sort": {"distance_asc"}, "lat": {"40.7"}, "lng": {"-74.0"}})
	require.True(t, q.HasCoords())
	assert.Equal(t, domain.SortDistance, q.Sort)
	assert.Equal(t, domain.OrderAsc, q.Order)

	q = Parse(url.Values{"sort": {"distance"}, "lat": {"40.7"}, "lng": {"-74.0"}})
	assert.Equal(t, domain.SortDistance, q.Sort)
	assert.Equal(t, domain.OrderAsc, q.Order)

	q = Parse(url.Values{"sort": {"combo"}, "lat": {"40.7"}, "lng": {"-74.0"}})
	assert.Equal(t, domain.SortCombo, q.Sort)
}

func TestParseCoords(t *testing.T) {
	q := Parse(url.Values{"lat": {"40.7"}, "lng": {"-74.0"}, "radius_km": {"5"}})
	require.True(t, q.HasCoords())
	assert.Equal(t, 40.7, *q.Lat)
	assert.Equal(t, 5.0, q.RadiusKm)

	// radius is an accepted alias.
	q = Parse(url.Values{"lat": {"40.7"}, "lng": {"-74.0"}, "radius": {"3"}})
	assert.Equal(t, 3.0, q.RadiusKm)

	// Out-of-range or malformed coordinates are dropped as a pair.
	q = Parse(url.Values{"lat": {"95"}, "lng": {"-74.0"}})
	assert.False(t, q.HasCoords())
	q = Parse(url.Values{"lat": {"abc"}, "lng": {"-74.0"}})
	assert.False(t, q.HasCoords())
}

func TestParseLimitClamp(t *testing.T) {
	// Present-but-low values clamp to 1; only absent or malformed input
	// gets the default page size.
	assert.Equal(t, 1, Parse(url.Values{"limit": {"0"}}).Limit)
	assert.Equal(t, 1, Parse(url.Values{"limit": {"-5"}}).Limit)
	assert.Equal(t, 20, Parse(url.Values{}).Limit)
	assert.Equal(t, 20, Parse(url.Values{"limit": {"junk"}}).Limit)
	assert.Equal(t, 1, Parse(url.Values{"limit": {"1"}}).Limit)
	assert.Equal(t, 50, Parse(url.Values{"limit": {"50"}}).Limit)
	assert.Equal(t, 50, Parse(url.Values{"limit": {"500"}}).Limit)
}

func TestParseFilters(t *testing.T) {
	q := Parse(url.Values{
		"verified_only":   {"true"},
		"min_rating":      {"4.5"},
		"max_price_level": {"2"},
	})
	assert.True(t, q.VerifiedOnly)
	assert.Equal(t, 4.5, q.MinRating)
	assert.Equal(t, 2, q.MaxPriceLevel)

	// Out-of-range filter values are ignored.
	q = Parse(url.Values{"min_rating": {"9"}, "max_price_level": {"7"}})
	assert.Zero(t, q.MinRating)
	assert.Zero(t, q.MaxPriceLevel)
}

func TestParseInterestsAndFeed(t *testing.T) {
	q := Parse(url.Values{"interests": {"Pets, food-drink ,"}})
	assert.Equal(t, []string{"pets", "food-drink"}, q.Interests)

	q = Parse(url.Values{"feed": {"mixed"}})
	assert.Equal(t, domain.FeedMixed, q.Feed)

	q = Parse(url.Values{"feed_strategy": {"MIXED"}})
	assert.Equal(t, domain.FeedMixed, q.Feed)

	q = Parse(url.Values{"feed": {"unknown"}})
	assert.Equal(t, domain.FeedStandard, q.Feed)
}

func TestParseCursor(t *testing.T) {
	q := Parse(url.Values{
		"cursor_id":         {"biz-abc"},
		"cursor_created_at": {"2026-01-02T15:04:05Z"},
	})
	require.NotNil(t, q.Cursor)
	assert.Equal(t, "biz-abc", q.Cursor.ID)
	assert.Equal(t, 2026, q.Cursor.CreatedAt.Year())

	// Malformed timestamp keeps the id-only cursor.
	q = Parse(url.Values{"cursor_id": {"biz-abc"}, "cursor_created_at": {"nope"}})
	require.NotNil(t, q.Cursor)
	assert.True(t, q.Cursor.CreatedAt.IsZero())
}

func TestParseExtendedFilters(t *testing.T) {
	q := Parse(url.Values{
		"badge":                  {"Top Rated"},
		"location":               {"Downtown"},
		"price_range":            {"$$"},
		"sub_interest_ids":       {"cafe,bakery"},
		"dealbreakers":           {"verified_only, max_price:2"},
		"preferred_price_ranges": {"$,$$$$,bogus"},
	})

	assert.Equal(t, "Top Rated", q.Badge)
	assert.Equal(t, "Downtown", q.Location)
	assert.Equal(t, "$$", q.PriceRange)
	assert.Equal(t, []string{"cafe", "bakery"}, q.SubInterests)
	assert.Equal(t, []string{"verified_only", "max_price:2"}, q.Dealbreakers)
	// Unknown tiers are dropped.
	assert.Equal(t, []string{"$", "$$$$"}, q.PreferredPriceRanges)
}

func TestParseRejectsUnknownPriceRange(t *testing.T) {
	q := Parse(url.Values{"price_range": {"cheap"}})
	assert.Empty(t, q.PriceRange)
}

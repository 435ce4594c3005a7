package domain

import "time"

// SortKey selects the ranking comparator for a listing query.
type SortKey string

// Sort keys accepted by the listing endpoints.
const (
	SortRecommended SortKey = "recommended"
	SortRating      SortKey = "rating"
	SortReviews     SortKey = "reviews"
	SortDistance    SortKey = "distance"
	SortPrice       SortKey = "price"
	SortNewest      SortKey = "newest"
	SortCombo       SortKey = "combo"
	SortRelevance   SortKey = "relevance"
)

// SortOrder is the direction applied to the active sort key.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// FeedStrategy selects how the listing page is assembled.
type FeedStrategy string

// Feed strategies.
const (
	// FeedStandard ranks a single candidate pool.
	FeedStandard FeedStrategy = "standard"
	// FeedMixed blends personal, top-rated and explore buckets.
	FeedMixed FeedStrategy = "mixed"
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Cursor is a keyset pagination position: the (id, created_at) pair of the
// last row on the previous page.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

// ListQuery is the normalized intent of a listing request. It is produced
// once by the query parser and consumed unchanged by the store and rankers.
type ListQuery struct {
	// Search is the free-text term after trimming. Empty means browse.
	Search string

	// Category is a leaf subcategory slug filter.
	Category string
	// Interests are parent interest slugs (legacy multi-select filter).
	Interests []string
	// SubInterests are leaf subcategory slugs from the same multi-select.
	SubInterests []string

	// Badge filters on the exact display tag.
	Badge string
	// Location filters by substring match on the location text.
	Location string

	Sort  SortKey
	Order SortOrder

	Lat *float64
	Lng *float64
	// RadiusKm filters by distance when coordinates are present. 0 means off.
	RadiusKm float64

	VerifiedOnly bool
	// MinRating drops listings rated below the threshold. 0 means off.
	MinRating float64
	// MaxPriceLevel drops listings priced above the level (1-4). 0 means off.
	MaxPriceLevel int
	// PriceRange is an exact price tier filter ("$".."$$$$").
	PriceRange string

	// Dealbreakers are caller-supplied hard constraints, in the same
	// vocabulary as stored preference deal-breakers.
	Dealbreakers []string
	// PreferredPriceRanges soft-filters to the given tiers when possible.
	PreferredPriceRanges []string

	Feed FeedStrategy

	Limit  int
	Cursor *Cursor

	// UserID is set from the gateway-injected identity header when present.
	UserID string
}

// HasCoords reports whether the request carries a usable coordinate pair.
// Distance and combo sorts require it.
func (q *ListQuery) HasCoords() bool {
	return q.Lat != nil && q.Lng != nil
}

// HasSearch reports whether free-text matching applies.
func (q *ListQuery) HasSearch() bool {
	return q.Search != ""
}

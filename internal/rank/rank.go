// Package rank orders candidate listings in memory. The store overfetches a
// loosely-ordered pool; everything order-sensitive happens here so the SQL
// fallback path and the ranked RPC path produce identical pages.
package rank

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/geo"
)

// contactBoostPerField is the score bump per populated contact field.
const contactBoostPerField = 0.15

// comboPriceWeight is the bonus per price level below luxury in the combo
// composite; a $ listing earns three steps, a $$$$ listing none.
const comboPriceWeight = 0.25

// ContactBoost rewards listings with complete contact information.
// Three fields count: phone, email, website.
func ContactBoost(l *domain.Listing) float64 {
	return contactBoostPerField * float64(l.ContactFieldCount())
}

// RelevanceScore ranks text-search results: rating dominates, review volume
// dampened by log, contact completeness breaks near-ties.
func RelevanceScore(l *domain.Listing) float64 {
	return l.AverageRating*2 + math.Log(float64(l.TotalReviews)+1) + ContactBoost(l)
}

// ComboScore balances quality, affordability and proximity for "best
// nearby" ranking. Cheaper tiers earn a bonus; an unmapped price range
// contributes nothing. Callers must have populated DistanceKm first.
func ComboScore(l *domain.Listing) float64 {
	quality := RelevanceScore(l)
	if lvl := l.PriceRange.Level(); lvl >= 1 && lvl <= 4 {
		quality += comboPriceWeight * float64(4-lvl)
	}
	if l.DistanceKm == nil {
		return quality
	}
	// Distance penalty halves the contribution every ~5km.
	return quality / (1 + *l.DistanceKm/5)
}

// AttachDistances computes DistanceKm for every listing that has coordinates.
// Listings without coordinates keep a nil distance and sort last under the
// distance comparator.
func AttachDistances(listings []domain.Listing, lat, lng float64) {
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		d := geo.HaversineKm(lat, lng, *l.Lat, *l.Lng)
		l.DistanceKm = &d
	}
}

// FilterRadius drops listings farther than radiusKm. Listings without a
// computed distance are kept so sparse data never empties a page.
func FilterRadius(listings []domain.Listing, radiusKm float64) []domain.Listing {
	if radiusKm <= 0 {
		return listings
	}
	out := listings[:0]
	for _, l := range listings {
		if l.DistanceKm == nil || *l.DistanceKm <= radiusKm {
			out = append(out, l)
		}
	}
	return out
}

// Sort orders listings in place by the query's sort key and direction.
// Every comparator ends its tie-break chain at the listing id so ordering
// is deterministic across requests.
func Sort(listings []domain.Listing, key domain.SortKey, order domain.SortOrder) {
	less := comparatorFor(listings, key)
	if order == domain.OrderAsc != ascendingByDefault(key) {
		inner := less
		less = func(a, b *domain.Listing) bool { return inner(b, a) }
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return less(&listings[i], &listings[j])
	})
}

// ascendingByDefault reports the natural direction each comparator is
// written in, so Sort knows when a requested order means "reverse".
func ascendingByDefault(key domain.SortKey) bool {
	switch key {
	case domain.SortDistance, domain.SortPrice:
		return true
	default:
		return false
	}
}

type lessFunc func(a, b *domain.Listing) bool

func comparatorFor(listings []domain.Listing, key domain.SortKey) lessFunc {
	switch key {
	case domain.SortRating, domain.SortRecommended:
		return byRating
	case domain.SortReviews:
		return byReviews
	case domain.SortDistance:
		return byDistance
	case domain.SortPrice:
		return byPrice
	case domain.SortNewest:
		return byNewest
	case domain.SortCombo:
		for i := range listings {
			listings[i].ComboScore = ComboScore(&listings[i])
		}
		return byCombo
	case domain.SortRelevance:
		for i := range listings {
			listings[i].PersonalizationScore = RelevanceScore(&listings[i])
		}
		return byRelevance
	default:
		return byRating
	}
}

// byRating: rating desc, reviews desc, contact boost desc, id asc.
func byRating(a, b *domain.Listing) bool {
	if a.AverageRating != b.AverageRating {
		return a.AverageRating > b.AverageRating
	}
	if a.TotalReviews != b.TotalReviews {
		return a.TotalReviews > b.TotalReviews
	}
	return byContact(a, b)
}

// byQuality: rating desc, contact boost desc, id asc. The tie-break tail
// shared by the distance and price chains; review counts do not enter it.
func byQuality(a, b *domain.Listing) bool {
	if a.AverageRating != b.AverageRating {
		return a.AverageRating > b.AverageRating
	}
	return byContact(a, b)
}

// byContact: contact boost desc, id asc.
func byContact(a, b *domain.Listing) bool {
	if ba, bb := ContactBoost(a), ContactBoost(b); ba != bb {
		return ba > bb
	}
	return a.ID < b.ID
}

func byReviews(a, b *domain.Listing) bool {
	if a.TotalReviews != b.TotalReviews {
		return a.TotalReviews > b.TotalReviews
	}
	if a.AverageRating != b.AverageRating {
		return a.AverageRating > b.AverageRating
	}
	return a.ID < b.ID
}

// byDistance: nearest first, nil distances last, ties by quality.
func byDistance(a, b *domain.Listing) bool {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return byQuality(a, b)
	case a.DistanceKm == nil:
		return false
	case b.DistanceKm == nil:
		return true
	case *a.DistanceKm != *b.DistanceKm:
		return *a.DistanceKm < *b.DistanceKm
	}
	return byQuality(a, b)
}

// byPrice: cheapest first, unmapped price levels always last, ties by
// quality.
func byPrice(a, b *domain.Listing) bool {
	la, lb := a.PriceRange.Level(), b.PriceRange.Level()
	if la != lb {
		return la < lb
	}
	return byQuality(a, b)
}

func byNewest(a, b *domain.Listing) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Score ties break on contact completeness then id.
func byCombo(a, b *domain.Listing) bool {
	if a.ComboScore != b.ComboScore {
		return a.ComboScore > b.ComboScore
	}
	return byContact(a, b)
}

func byRelevance(a, b *domain.Listing) bool {
	if a.PersonalizationScore != b.PersonalizationScore {
		return a.PersonalizationScore > b.PersonalizationScore
	}
	return byContact(a, b)
}

// Shuffle randomizes listing order in place with Fisher-Yates. Interest
// multi-select browsing intentionally trades ordering for variety.
func Shuffle(listings []domain.Listing, rng *rand.Rand) {
	for i := len(listings) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		listings[i], listings[j] = listings[j], listings[i]
	}
}

// MatchesSearch reports whether a listing matches the (already synonym
// substituted, lowercased) search term against name, description, location
// and category.
func MatchesSearch(l *domain.Listing, term string) bool {
	if term == "" {
		return true
	}
	for _, hay := range []string{l.Name, l.Description, l.Location, l.Category} {
		if strings.Contains(strings.ToLower(hay), term) {
			return true
		}
	}
	return false
}

package rank

import (
	"strconv"
	"strings"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

// percentileThreshold is the minimum review-dimension percentile a listing
// must hold to pass a dimension deal-breaker.
const percentileThreshold = 60.0

// dimension deal-breaker names map directly to percentile keys.
var percentileDealbreakers = map[string]bool{
	"punctuality":        true,
	"friendliness":       true,
	"trustworthiness":    true,
	"cost_effectiveness": true,
}

// ApplyDealbreakers filters listings by the user's hard constraints:
// "verified_only", percentile dimensions (>= 60th percentile), and
// "max_price:N" ceilings. If filtering would empty a non-empty input, the
// deal-breakers are relaxed instead: the original listings are returned and
// the relaxed flag is set so the response can disclose it.
func ApplyDealbreakers(listings []domain.Listing, dealbreakers []string) (out []domain.Listing, relaxed bool) {
	if len(dealbreakers) == 0 || len(listings) == 0 {
		return listings, false
	}

	kept := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if passesDealbreakers(&l, dealbreakers) {
			kept = append(kept, l)
		}
	}

	if len(kept) == 0 {
		return listings, true
	}
	return kept, false
}

// PreferPriceRanges keeps only listings in the preferred tiers when doing so
// leaves something. A preference that would empty the page is dropped
// silently; unlike a deal-breaker it carries no relaxation flag.
func PreferPriceRanges(listings []domain.Listing, ranges []string) []domain.Listing {
	if len(ranges) == 0 || len(listings) == 0 {
		return listings
	}

	want := make(map[domain.PriceRange]bool, len(ranges))
	for _, r := range ranges {
		want[domain.PriceRange(strings.TrimSpace(r))] = true
	}

	kept := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if want[l.PriceRange] {
			kept = append(kept, l)
		}
	}

	if len(kept) == 0 {
		return listings
	}
	return kept
}

func passesDealbreakers(l *domain.Listing, dealbreakers []string) bool {
	for _, db := range dealbreakers {
		db = strings.ToLower(strings.TrimSpace(db))
		switch {
		case db == "verified_only":
			if !l.Verified {
				return false
			}
		case percentileDealbreakers[db]:
			if l.Percentiles.Get(db) < percentileThreshold {
				return false
			}
		case strings.HasPrefix(db, "max_price:"):
			ceiling, err := strconv.Atoi(strings.TrimPrefix(db, "max_price:"))
			if err != nil || ceiling < 1 {
				continue
			}
			// Unpriced listings pass; only a known higher tier fails.
			if l.PriceRange.Valid() && l.PriceRange.Level() > ceiling {
				return false
			}
		}
		// Unknown deal-breaker names are ignored.
	}
	return true
}

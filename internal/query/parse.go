// Package query normalizes raw listing request parameters into a canonical
// domain.ListQuery. Parsing is forgiving: malformed values fall back to
// defaults instead of failing the request.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/geo"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
)

// sortAliases maps shorthand sort values ("rating_desc") onto key+order.
var sortAliases = map[string]struct {
	key   domain.SortKey
	order domain.SortOrder
}{
	"recommended":  {domain.SortRecommended, domain.OrderDesc},
	"rating_desc":  {domain.SortRating, domain.OrderDesc},
	"rating_asc":   {domain.SortRating, domain.OrderAsc},
	"reviews_desc": {domain.SortReviews, domain.OrderDesc},
	"distance":     {domain.SortDistance, domain.OrderAsc},
	"distance_asc": {domain.SortDistance, domain.OrderAsc},
	"price_asc":    {domain.SortPrice, domain.OrderAsc},
	"price_desc":   {domain.SortPrice, domain.OrderDesc},
	"newest":       {domain.SortNewest, domain.OrderDesc},
	"combo":        {domain.SortCombo, domain.OrderDesc},
	"relevance":    {domain.SortRelevance, domain.OrderDesc},
}

var validSortKeys = map[domain.SortKey]bool{
	domain.SortRecommended: true,
	domain.SortRating:      true,
	domain.SortReviews:     true,
	domain.SortDistance:    true,
	domain.SortPrice:       true,
	domain.SortNewest:      true,
	domain.SortCombo:       true,
	domain.SortRelevance:   true,
}

// Parse builds a normalized ListQuery from raw URL parameters.
//
// Normalization rules:
//   - q and search are aliases; the trimmed term is synonym-substituted.
//   - radius_km and radius are aliases.
//   - sort accepts shorthands like "rating_desc"; sort_by + sort_order
//     override it when both are present.
//   - distance and combo sorts require coordinates; without them the sort
//     silently degrades to the newest-first default.
//   - relevance sort requires a query term; without one it means rating.
//   - limit clamps to [1, 50]; absent or malformed values mean 20.
//   - Any malformed numeric value falls back to its default.
func Parse(values url.Values) *domain.ListQuery {
	q := &domain.ListQuery{
		Sort:  domain.SortNewest,
		Order: domain.OrderDesc,
		Feed:  domain.FeedStandard,
		Limit: domain.DefaultLimit,
	}

	q.Search = taxonomy.ExpandQuery(firstOf(values, "q", "search"))
	q.Category = strings.TrimSpace(values.Get("category"))
	q.Interests = splitCSV(firstOf(values, "interests", "interest_ids"))
	q.SubInterests = splitCSV(values.Get("sub_interest_ids"))
	q.Badge = strings.TrimSpace(values.Get("badge"))
	q.Location = strings.TrimSpace(values.Get("location"))

	parseCoords(values, q)
	parseSort(values, q)
	parseFilters(values, q)
	parseFeed(values, q)
	parsePagination(values, q)

	// Searching without an explicit sort ranks by relevance.
	if q.HasSearch() && values.Get("sort") == "" && values.Get("sort_by") == "" {
		q.Sort = domain.SortRelevance
		q.Order = domain.OrderDesc
	}

	// Relevance ranking needs a term to rank against.
	if q.Sort == domain.SortRelevance && !q.HasSearch() {
		q.Sort = domain.SortRating
		q.Order = domain.OrderDesc
	}

	// Coordinate-dependent sorts degrade to the newest-first default.
	if !q.HasCoords() && (q.Sort == domain.SortDistance || q.Sort == domain.SortCombo) {
		q.Sort = domain.SortNewest
		q.Order = domain.OrderDesc
	}

	return q
}

func parseCoords(values url.Values, q *domain.ListQuery) {
	latStr, lngStr := values.Get("lat"), values.Get("lng")
	if latStr == "" || lngStr == "" {
		return
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil || !geo.ValidCoords(lat, lng) {
		return
	}
	q.Lat, q.Lng = &lat, &lng

	if r := parseFloat(firstOf(values, "radius_km", "radius"), 0); r > 0 {
		q.RadiusKm = r
	}
}

func parseSort(values url.Values, q *domain.ListQuery) {
	if alias, ok := sortAliases[strings.ToLower(values.Get("sort"))]; ok {
		q.Sort, q.Order = alias.key, alias.order
	}

	// Explicit sort_by/sort_order take precedence over the shorthand.
	if by := domain.SortKey(strings.ToLower(values.Get("sort_by"))); validSortKeys[by] {
		q.Sort = by
		q.Order = defaultOrderFor(by)
	}
	switch strings.ToLower(values.Get("sort_order")) {
	case "asc":
		q.Order = domain.OrderAsc
	case "desc":
		q.Order = domain.OrderDesc
	}
}

// defaultOrderFor picks the natural direction for a key: ascending for
// distance and price, descending for everything else.
func defaultOrderFor(key domain.SortKey) domain.SortOrder {
	switch key {
	case domain.SortDistance, domain.SortPrice:
		return domain.OrderAsc
	default:
		return domain.OrderDesc
	}
}

func parseFilters(values url.Values, q *domain.ListQuery) {
	q.VerifiedOnly = parseBool(firstOf(values, "verified_only", "verified"))

	if r := parseFloat(values.Get("min_rating"), 0); r > 0 && r <= 5 {
		q.MinRating = r
	}
	if lvl := parseInt(values.Get("max_price_level"), 0); lvl >= 1 && lvl <= 4 {
		q.MaxPriceLevel = lvl
	}
	if pr := domain.PriceRange(strings.TrimSpace(values.Get("price_range"))); pr.Valid() {
		q.PriceRange = string(pr)
	}

	q.Dealbreakers = splitCSV(values.Get("dealbreakers"))
	for _, r := range splitCSV(values.Get("preferred_price_ranges")) {
		if domain.PriceRange(r).Valid() {
			q.PreferredPriceRanges = append(q.PreferredPriceRanges, r)
		}
	}
}

func parseFeed(values url.Values, q *domain.ListQuery) {
	switch strings.ToLower(firstOf(values, "feed", "feed_strategy")) {
	case "mixed":
		q.Feed = domain.FeedMixed
	case "standard", "":
	}
}

func parsePagination(values url.Values, q *domain.ListQuery) {
	q.Limit = clampLimit(parseInt(values.Get("limit"), domain.DefaultLimit))

	if id := strings.TrimSpace(values.Get("cursor_id")); id != "" {
		c := &domain.Cursor{ID: id}
		if ts := values.Get("cursor_created_at"); ts != "" {
			if at, err := time.Parse(time.RFC3339, ts); err == nil {
				c.CreatedAt = at
			}
		}
		q.Cursor = c
	}
}

// clampLimit bounds the page size to [1, MaxLimit]. Malformed input never
// reaches here; parseInt already substituted the default for it.
func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > domain.MaxLimit {
		return domain.MaxLimit
	}
	return n
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(values.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

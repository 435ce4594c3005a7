package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
)

// overfetchFactor is how many candidate rows the fallback query pulls per
// requested row when ranking happens in memory.
const overfetchFactor = 3

// ListRanked calls the ranked listing function. The function applies
// moderation filters, sorting and pagination server-side.
func (s *Postgres) ListRanked(ctx context.Context, q *domain.ListQuery) RPCOutcome {
	query := fmt.Sprintf(
		`SELECT %s FROM list_businesses_optimized($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		listingColumns)

	var cursorID any
	if q.Cursor != nil {
		cursorID = q.Cursor.ID
	}

	rows, err := s.db.QueryContext(ctx, query,
		nullable(q.Search), nullable(q.Category),
		string(q.Sort), string(q.Order),
		q.Lat, q.Lng, nullableFloat(q.RadiusKm),
		q.Limit, cursorID,
	)
	if err != nil {
		return classifyRPCError(err)
	}

	listings, err := collectListings(rows)
	if err != nil {
		return classifyRPCError(err)
	}
	return RPCOutcome{State: RPCOK, Rows: listings}
}

// ForYouUnified calls the unified recommendation function for one user.
func (s *Postgres) ForYouUnified(ctx context.Context, userID string, limit int) RPCOutcome {
	query := fmt.Sprintf(`SELECT %s FROM recommend_for_you_unified($1, $2)`, listingColumns)

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return classifyRPCError(err)
	}

	listings, err := collectListings(rows)
	if err != nil {
		return classifyRPCError(err)
	}
	return RPCOutcome{State: RPCOK, Rows: listings}
}

// ListFallback runs the plain-SQL candidate query used when the ranked
// function is unavailable. It returns a loosely-ordered overfetched pool;
// the rank package owns final ordering and the slice to limit.
func (s *Postgres) ListFallback(ctx context.Context, q *domain.ListQuery) ([]domain.Listing, error) {
	b := newQueryBuilder()
	b.where("is_system = FALSE")
	b.where("is_hidden = FALSE")

	if q.Category != "" {
		b.wheref("category = %s", q.Category)
	}
	// Explicit sub-interests name leaf categories directly; the interest
	// expansion applies only when the caller gave nothing more precise.
	if len(q.SubInterests) > 0 {
		b.wheref("category = ANY(%s)", pq.Array(q.SubInterests))
	} else if len(q.Interests) > 0 {
		b.wheref("category = ANY(%s)", pq.Array(taxonomy.ExpandInterests(q.Interests)))
	}
	if q.Badge != "" {
		b.wheref("badge = %s", q.Badge)
	}
	if q.PriceRange != "" {
		b.wheref("price_range = %s", q.PriceRange)
	}
	if q.Location != "" {
		b.wheref("location ILIKE %s", "%"+escapeLike(q.Location)+"%")
	}
	if q.VerifiedOnly {
		b.where("verified = TRUE")
	}
	if q.MinRating > 0 {
		b.wheref("average_rating >= %s", q.MinRating)
	}
	if q.HasSearch() {
		term := "%" + escapeLike(q.Search) + "%"
		b.wheref("(name ILIKE %s OR description ILIKE %s OR category ILIKE %s OR location ILIKE %s)",
			term, term, term, term)
	}

	// The scan runs newest-first except when the caller pages oldest-first;
	// the keyset cursor on (created_at, id) follows the scan direction.
	cmp, dir := "<", "DESC"
	if q.Sort == domain.SortNewest && q.Order == domain.OrderAsc {
		cmp, dir = ">", "ASC"
	}
	if q.Cursor != nil {
		if q.Cursor.CreatedAt.IsZero() {
			b.wheref("(created_at, id) "+cmp+" (SELECT created_at, id FROM businesses WHERE id = %s)",
				q.Cursor.ID)
		} else {
			b.wheref("(created_at, id) "+cmp+" (%s, %s)", q.Cursor.CreatedAt, q.Cursor.ID)
		}
	}

	limit := q.Limit
	if needsOverfetch(q) {
		limit *= overfetchFactor
	}

	query := fmt.Sprintf(
		`SELECT %s FROM businesses %s ORDER BY created_at %s, id %s LIMIT %d`,
		listingColumns, b.clause(), dir, dir, limit)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("fallback query: %w", err)
	}
	return collectListings(rows)
}

// needsOverfetch reports whether ranking cannot be expressed in the fetch
// order, so the candidate pool must be wider than one page.
func needsOverfetch(q *domain.ListQuery) bool {
	if q.RadiusKm > 0 || q.HasSearch() || len(q.Interests) > 0 || len(q.SubInterests) > 0 {
		return true
	}
	return q.Sort != domain.SortNewest
}

// trendingViews whitelists the materialized view per kind. Never
// interpolate a caller-supplied view name.
var trendingViews = map[TrendingKind]string{
	TrendingHot: "mv_trending_businesses",
	TrendingTop: "mv_top_rated_businesses",
	TrendingNew: "mv_new_businesses",
}

// TrendingView reads one of the materialized listing views.
func (s *Postgres) TrendingView(ctx context.Context, kind TrendingKind, limit int) ([]domain.Listing, error) {
	view, ok := trendingViews[kind]
	if !ok {
		return nil, fmt.Errorf("unknown trending kind %q", kind)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s LIMIT $1`, listingColumns, view)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", view, err)
	}
	return collectListings(rows)
}

// TrendingCount returns the row count of a materialized view.
func (s *Postgres) TrendingCount(ctx context.Context, kind TrendingKind) (int, error) {
	view, ok := trendingViews[kind]
	if !ok {
		return 0, fmt.Errorf("unknown trending kind %q", kind)
	}

	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, view)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", view, err)
	}
	return count, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// queryBuilder accumulates WHERE predicates with positional placeholders.
type queryBuilder struct {
	predicates []string
	args       []any
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// where adds a predicate with no arguments.
func (b *queryBuilder) where(pred string) {
	b.predicates = append(b.predicates, pred)
}

// wheref adds a predicate whose %s verbs become sequential $n placeholders.
func (b *queryBuilder) wheref(format string, args ...any) {
	placeholders := make([]any, len(args))
	for i, a := range args {
		b.args = append(b.args, a)
		placeholders[i] = fmt.Sprintf("$%d", len(b.args))
	}
	b.predicates = append(b.predicates, fmt.Sprintf(format, placeholders...))
}

// clause renders the WHERE clause, empty when no predicates exist.
func (b *queryBuilder) clause() string {
	if len(b.predicates) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.predicates, " AND ")
}

// nullable converts an empty string to NULL for function arguments.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableFloat converts zero to NULL for optional numeric arguments.
func nullableFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

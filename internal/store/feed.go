package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

// lowReviewCeiling matches the explore scorer's definition of an
// under-discovered listing.
const lowReviewCeiling = 10

// PersonalBucket fetches candidates matching the user's subcategories,
// best-rated first.
func (s *Postgres) PersonalBucket(ctx context.Context, subcategories []string, limit int) ([]domain.Listing, error) {
	if len(subcategories) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT %s FROM businesses
		 WHERE is_system = FALSE AND is_hidden = FALSE AND category = ANY($1)
		 ORDER BY average_rating DESC, total_reviews DESC
		 LIMIT $2`, listingColumns)

	rows, err := s.db.QueryContext(ctx, query, pq.Array(subcategories), limit)
	if err != nil {
		return nil, fmt.Errorf("personal bucket: %w", err)
	}
	return collectListings(rows)
}

// TopBucket fetches the best-rated candidates across all categories.
func (s *Postgres) TopBucket(ctx context.Context, limit int) ([]domain.Listing, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM businesses
		 WHERE is_system = FALSE AND is_hidden = FALSE AND total_reviews > 0
		 ORDER BY average_rating DESC, total_reviews DESC
		 LIMIT $1`, listingColumns)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top bucket: %w", err)
	}
	return collectListings(rows)
}

// ExploreBucket fetches fresh or under-reviewed candidates, newest first.
func (s *Postgres) ExploreBucket(ctx context.Context, limit int) ([]domain.Listing, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM businesses
		 WHERE is_system = FALSE AND is_hidden = FALSE
		   AND (total_reviews < $1 OR created_at > NOW() - INTERVAL '30 days')
		 ORDER BY created_at DESC
		 LIMIT $2`, listingColumns)

	rows, err := s.db.QueryContext(ctx, query, lowReviewCeiling, limit)
	if err != nil {
		return nil, fmt.Errorf("explore bucket: %w", err)
	}
	return collectListings(rows)
}

// UserPreferences loads a user's interests, subcategories and deal-breakers
// with three concurrent queries. A failed query yields an empty slice for
// that dimension only; the profile is returned with whatever loaded.
func (s *Postgres) UserPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	prefs := &domain.UserPreferences{UserID: userID}

	var wg sync.WaitGroup
	load := func(query string, dest *[]string) {
		defer wg.Done()
		values, err := s.stringColumn(ctx, query, userID)
		if err != nil {
			s.logger.WithError(err).Warn("preference query failed", "user_id", userID)
			return
		}
		*dest = values
	}

	wg.Add(3)
	go load(`SELECT interest_slug FROM user_interests WHERE user_id = $1`, &prefs.Interests)
	go load(`SELECT subcategory_slug FROM user_subcategories WHERE user_id = $1`, &prefs.Subcategories)
	go load(`SELECT dealbreaker FROM user_dealbreakers WHERE user_id = $1`, &prefs.Dealbreakers)
	wg.Wait()

	return prefs, nil
}

// stringColumn runs a single-column query and drains it into a slice.
func (s *Postgres) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecordSearch appends one row to the search history log.
func (s *Postgres) RecordSearch(ctx context.Context, userID, term string, results int) error {
	var uid any
	if userID != "" {
		uid = userID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (user_id, term, result_count, searched_at)
		 VALUES ($1, $2, $3, NOW())`,
		uid, term, results)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

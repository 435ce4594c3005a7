package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
)

// GetBusiness fetches one listing by id.
func (s *Postgres) GetBusiness(ctx context.Context, id string) (*domain.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM businesses WHERE id = $1`, listingColumns)

	l, err := scanListing(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("business %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get business %s: %w", id, err)
	}
	return &l, nil
}

// CreateBusiness inserts a new listing. The caller owns id and slug
// generation; normalizedName is the duplicate-detection key.
func (s *Postgres) CreateBusiness(ctx context.Context, l *domain.Listing, normalizedName string) error {
	var percentiles any
	if len(l.Percentiles) > 0 {
		buf, err := json.Marshal(l.Percentiles)
		if err != nil {
			return fmt.Errorf("marshal percentiles: %w", err)
		}
		percentiles = buf
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO businesses (
			id, slug, normalized_name, name, description, location,
			category, interest_id, lat, lng, percentiles, price_range,
			verified, badge, phone, email, website, photo_url,
			is_system, is_hidden, created_at
		 ) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, FALSE, FALSE, $19
		 )`,
		l.ID, l.Slug, normalizedName, l.Name,
		nullable(l.Description), nullable(l.Location),
		l.Category, nullable(l.Interest), l.Lat, l.Lng,
		percentiles, nullable(string(l.PriceRange)),
		l.Verified, nullable(l.Badge),
		nullable(l.Phone), nullable(l.Email), nullable(l.Website), nullable(l.PhotoURL),
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

// SlugExists reports whether a slug is taken.
func (s *Postgres) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM businesses WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// FindByNormalizedName looks up a listing by its duplicate-detection key.
// Returns a NotFound error when no listing matches.
func (s *Postgres) FindByNormalizedName(ctx context.Context, normalized string) (*domain.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM businesses WHERE normalized_name = $1`, listingColumns)

	l, err := scanListing(s.db.QueryRowContext(ctx, query, normalized))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by normalized name: %w", err)
	}
	return &l, nil
}

// SimilarBusinesses finds visible listings whose names resemble the given
// one, for the best-effort suggestions on the create response.
func (s *Postgres) SimilarBusinesses(ctx context.Context, name string, limit int) ([]domain.Listing, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM businesses
		 WHERE is_system = FALSE AND is_hidden = FALSE AND name ILIKE $1
		 ORDER BY total_reviews DESC
		 LIMIT $2`, listingColumns)

	rows, err := s.db.QueryContext(ctx, query, "%"+escapeLike(name)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("similar businesses: %w", err)
	}
	return collectListings(rows)
}

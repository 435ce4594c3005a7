package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/logger"
)

// Postgres implements Store on database/sql with the lib/pq driver.
type Postgres struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(db, log), nil
}

// New wraps an existing database handle. Used directly by tests with sqlmock.
func New(db *sql.DB, log *logger.Logger) *Postgres {
	return &Postgres{db: db, logger: log}
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// listingColumns is the canonical select list. Every read query and every
// database function must return these columns in this order.
const listingColumns = `id, slug, name, description, location, category, interest_id,
	lat, lng, average_rating, total_reviews, percentiles, price_range,
	verified, badge, phone, email, website, photo_url, created_at`

// scanListing reads one row in listingColumns order, converting nullable
// columns to their Go representations.
func scanListing(rs rowScanner) (domain.Listing, error) {
	var (
		l           domain.Listing
		description sql.NullString
		location    sql.NullString
		interest    sql.NullString
		lat, lng    sql.NullFloat64
		percentiles []byte
		priceRange  sql.NullString
		badge       sql.NullString
		phone       sql.NullString
		email       sql.NullString
		website     sql.NullString
		photoURL    sql.NullString
	)

	err := rs.Scan(
		&l.ID, &l.Slug, &l.Name, &description, &location, &l.Category, &interest,
		&lat, &lng, &l.AverageRating, &l.TotalReviews, &percentiles, &priceRange,
		&l.Verified, &badge, &phone, &email, &website, &photoURL, &l.CreatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	l.Description = description.String
	l.Location = location.String
	l.Interest = interest.String
	if lat.Valid {
		l.Lat = &lat.Float64
	}
	if lng.Valid {
		l.Lng = &lng.Float64
	}
	if len(percentiles) > 0 {
		// Malformed percentile JSON degrades to "no data" rather than
		// failing the whole page.
		_ = json.Unmarshal(percentiles, &l.Percentiles)
	}
	l.PriceRange = domain.PriceRange(priceRange.String)
	l.Badge = badge.String
	l.Phone = phone.String
	l.Email = email.String
	l.Website = website.String
	l.PhotoURL = photoURL.String

	return l, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// collectListings drains rows into a slice, skipping nothing.
func collectListings(rows *sql.Rows) ([]domain.Listing, error) {
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

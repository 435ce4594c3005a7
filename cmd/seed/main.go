// Package main provides a tool to seed the database with sample businesses.
//
// This creates a spread of listings across categories, price tiers and
// coordinates so ranking, feeds and trending views have data to work with.
//
// Usage:
//
//	DATABASE_DSN=postgres://... go run ./cmd/seed
//	DATABASE_DSN=postgres://... go run ./cmd/seed --count 50
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/nearbyapp/nearby-server/internal/config"
	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/id"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/store"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
	"github.com/nearbyapp/nearby-server/internal/util"
)

var count = flag.Int("count", 25, "Number of businesses to create")

// Sample pools for generated listings.
var (
	categories = []string{
		"cafe", "restaurant", "bakery", "bar",
		"fitness", "yoga", "massage",
		"hair-salon", "barbershop", "nail-salon",
		"plumber", "electrician", "cleaning",
		"auto-repair", "car-wash",
		"veterinarian", "pet-grooming",
	}

	nameParts = [][]string{
		{"Corner", "Golden", "Happy", "Urban", "Little", "Grand", "Sunny", "Blue Door"},
		{"Cafe", "Kitchen", "Studio", "Works", "Garage", "Salon", "House", "Spot"},
	}

	locations = []string{
		"Downtown", "Riverside", "Old Town", "Market District",
		"Northside", "Harbor View", "Elm Street", "Union Square",
	}

	prices = []domain.PriceRange{
		domain.PriceCheap, domain.PriceModerate, domain.PriceExpensive, domain.PriceLuxury,
	}

	dimensions = []string{
		"punctuality", "friendliness", "trustworthiness", "cost_effectiveness",
	}
)

func main() {
	flag.Parse()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN is required")
	}

	fmt.Printf("Connecting to database...\n")

	quiet := logger.New(logger.Config{Format: "pretty", Level: logger.ParseLevel("warn")})
	s, err := store.Open(config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, quiet)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	for i := 0; i < *count; i++ {
		listing, err := buildListing(ctx, s, rng)
		if err != nil {
			log.Printf("Skipping listing: %v", err)
			continue
		}

		if err := s.CreateBusiness(ctx, listing, util.NormalizeName(listing.Name)); err != nil {
			log.Printf("Failed to insert %q: %v", listing.Name, err)
			continue
		}

		fmt.Printf("  + %-28s %-16s %s\n", listing.Name, listing.Category, listing.Slug)
		created++
	}

	fmt.Printf("\nSeeded %d businesses\n", created)
}

// buildListing assembles one randomized business with a unique slug.
func buildListing(ctx context.Context, s *store.Postgres, rng *rand.Rand) (*domain.Listing, error) {
	name := fmt.Sprintf("%s %s",
		nameParts[0][rng.Intn(len(nameParts[0]))],
		nameParts[1][rng.Intn(len(nameParts[1]))],
	)

	slug, err := util.UniqueSlug(ctx, name, s.SlugExists)
	if err != nil {
		return nil, err
	}

	businessID, err := id.Generate("biz")
	if err != nil {
		return nil, err
	}

	category := categories[rng.Intn(len(categories))]

	// Scatter around a city center so radius filters have something to cut.
	lat := 40.7128 + (rng.Float64()-0.5)*0.2
	lng := -74.0060 + (rng.Float64()-0.5)*0.2

	percentiles := domain.Percentiles{}
	for _, dim := range dimensions {
		// Leave some dimensions absent to exercise the neutral default.
		if rng.Float64() < 0.7 {
			percentiles[dim] = 40 + rng.Float64()*60
		}
	}

	listing := &domain.Listing{
		ID:            businessID,
		Slug:          slug,
		Name:          name,
		Description:   fmt.Sprintf("A %s in %s.", taxonomy.LabelFor(category), locations[rng.Intn(len(locations))]),
		Location:      locations[rng.Intn(len(locations))],
		Category:      category,
		Interest:      taxonomy.ParentOf(category),
		Lat:           &lat,
		Lng:           &lng,
		AverageRating: 2.5 + rng.Float64()*2.5,
		TotalReviews:  rng.Intn(200),
		Percentiles:   percentiles,
		PriceRange:    prices[rng.Intn(len(prices))],
		Verified:      rng.Float64() < 0.6,
		CreatedAt:     time.Now().Add(-time.Duration(rng.Intn(90*24)) * time.Hour),
	}

	if rng.Float64() < 0.5 {
		listing.Phone = fmt.Sprintf("+1555%07d", rng.Intn(10000000))
	}
	if rng.Float64() < 0.4 {
		listing.Website = fmt.Sprintf("https://%s.example.com", slug)
	}

	return listing, nil
}

// Package domain defines the core types shared across the Nearby server.
package domain

import (
	"time"
)

// PriceRange is a display price tier ("$" through "$$$$").
type PriceRange string

// Price tiers.
const (
	PriceCheap     PriceRange = "$"
	PriceModerate  PriceRange = "$$"
	PriceExpensive PriceRange = "$$$"
	PriceLuxury    PriceRange = "$$$$"
)

// UnmappedPriceLevel sorts listings without a recognized price range last.
const UnmappedPriceLevel = 999

// Level maps the price range to an ordinal level 1-4.
// Unrecognized values map to UnmappedPriceLevel.
func (p PriceRange) Level() int {
	switch p {
	case PriceCheap:
		return 1
	case PriceModerate:
		return 2
	case PriceExpensive:
		return 3
	case PriceLuxury:
		return 4
	default:
		return UnmappedPriceLevel
	}
}

// Valid reports whether the price range is one of the four known tiers.
func (p PriceRange) Valid() bool {
	return p.Level() != UnmappedPriceLevel
}

// NeutralPercentile is assumed for review dimensions a listing has no data
// for, so new listings are never penalized for missing percentiles.
const NeutralPercentile = 75.0

// Percentiles holds named 0-100 review-dimension scores
// (punctuality, friendliness, trustworthiness, cost_effectiveness).
type Percentiles map[string]float64

// Get returns the percentile for a dimension, or NeutralPercentile when absent.
func (p Percentiles) Get(dimension string) float64 {
	if p == nil {
		return NeutralPercentile
	}
	if v, ok := p[dimension]; ok {
		return v
	}
	return NeutralPercentile
}

// Listing is the canonical business row flowing through ranking and blending.
// It is populated by the store adapter so ambiguous upstream column names
// (lat/latitude, category/primary_subcategory_slug) never leak past the
// data-access boundary. Listings are read-only for the whole read path.
type Listing struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	// Category is the leaf taxonomy slug; Interest its parent slug.
	Category string `json:"category"`
	Interest string `json:"interest_id,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	AverageRating float64     `json:"average_rating"`
	TotalReviews  int         `json:"total_reviews"`
	Percentiles   Percentiles `json:"percentiles,omitempty"`

	PriceRange PriceRange `json:"price_range,omitempty"`
	Verified   bool       `json:"verified"`
	Badge      string     `json:"badge,omitempty"`

	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`

	// Moderation flags. Rows carrying either must never reach a feed.
	IsSystem bool `json:"-"`
	IsHidden bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`

	// Request-scoped, derived. Never persisted.
	DistanceKm           *float64 `json:"distance_km,omitempty"`
	PersonalizationScore float64  `json:"personalization_score,omitempty"`
	ComboScore           float64  `json:"combo_score,omitempty"`
	HighlightedName      string   `json:"highlighted_name,omitempty"`
	HighlightedSnippet   string   `json:"highlighted_snippet,omitempty"`
}

// CursorID returns the keyset pagination token for this row.
// The cursor is the row's own identity: (id, created_at).
func (l *Listing) CursorID() string {
	return l.ID
}

// HasCoordinates reports whether the listing carries both coordinates.
func (l *Listing) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// ContactFieldCount counts populated contact fields (phone, email, website).
// Used by the contact-completeness ranking boost.
func (l *Listing) ContactFieldCount() int {
	n := 0
	if l.Phone != "" {
		n++
	}
	if l.Email != "" {
		n++
	}
	if l.Website != "" {
		n++
	}
	return n
}

// Page is one response page of listings.
type Page struct {
	Listings            []Listing
	CursorID            *string
	DealbreakersRelaxed bool
}

// NewPage builds a page from ranked rows, attaching the keyset cursor of the
// last row when the page is full (a short page means there is nothing after).
func NewPage(rows []Listing, limit int) *Page {
	p := &Page{Listings: rows}
	if len(rows) >= limit && len(rows) > 0 {
		id := rows[len(rows)-1].ID
		p.CursorID = &id
	}
	return p
}

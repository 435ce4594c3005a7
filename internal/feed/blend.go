package feed

import (
	"sort"
	"time"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

// BlendConfig tunes per-bucket category caps.
type BlendConfig struct {
	// PersonalCategoryCap limits listings per category from the personal bucket.
	PersonalCategoryCap int
	// TopCategoryCap limits listings per category from the top-rated bucket.
	TopCategoryCap int
	// ExploreCategoryCap limits listings per category from the explore bucket.
	ExploreCategoryCap int
}

// DefaultBlendConfig matches production tuning.
func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		PersonalCategoryCap: 2,
		TopCategoryCap:      3,
		ExploreCategoryCap:  2,
	}
}

// Buckets are the three scored candidate pools feeding the blender.
type Buckets struct {
	Personal []domain.Listing
	Top      []domain.Listing
	Explore  []domain.Listing
}

// Blend interleaves the three buckets into a single feed of up to limit
// listings. Each rotation takes 2 personal, 1 top, 1 explore, skipping
// entries that are duplicates (first appearance wins) or that would exceed
// the bucket's per-category cap. A relaxed second pass ignores the caps so
// a short feed is filled rather than returned sparse.
func Blend(b Buckets, cfg BlendConfig, limit int) []domain.Listing {
	if limit <= 0 {
		return nil
	}

	scoreBuckets(&b)

	type source struct {
		rows []domain.Listing
		next int
		take int
		cap  int
	}
	sources := []*source{
		{rows: b.Personal, take: 2, cap: cfg.PersonalCategoryCap},
		{rows: b.Top, take: 1, cap: cfg.TopCategoryCap},
		{rows: b.Explore, take: 1, cap: cfg.ExploreCategoryCap},
	}

	seen := make(map[string]bool)
	perCategory := make([]map[string]int, len(sources))
	for i := range perCategory {
		perCategory[i] = make(map[string]int)
	}

	out := make([]domain.Listing, 0, limit)

	// Capped rotation pass.
	for len(out) < limit {
		advanced := false
		for si, src := range sources {
			for taken := 0; taken < src.take && len(out) < limit; {
				if src.next >= len(src.rows) {
					break
				}
				l := src.rows[src.next]
				src.next++
				advanced = true

				if seen[l.ID] {
					continue
				}
				if src.cap > 0 && perCategory[si][l.Category] >= src.cap {
					continue
				}
				seen[l.ID] = true
				perCategory[si][l.Category]++
				out = append(out, l)
				taken++
			}
		}
		if !advanced {
			break
		}
	}

	// Relaxed fill pass: caps off, order personal > top > explore.
	if len(out) < limit {
		for _, src := range sources {
			for _, l := range src.rows {
				if len(out) >= limit {
					break
				}
				if seen[l.ID] {
					continue
				}
				seen[l.ID] = true
				out = append(out, l)
			}
		}
	}

	return out
}

// scoreBuckets scores and orders each bucket by its own formula, stashing
// the score on PersonalizationScore for response transparency.
func scoreBuckets(b *Buckets) {
	now := time.Now()

	for i := range b.Personal {
		b.Personal[i].PersonalizationScore = PersonalScore(&b.Personal[i], now)
	}
	for i := range b.Top {
		b.Top[i].PersonalizationScore = TopScore(&b.Top[i])
	}
	for i := range b.Explore {
		b.Explore[i].PersonalizationScore = ExploreScore(&b.Explore[i], now)
	}

	for _, rows := range [][]domain.Listing{b.Personal, b.Top, b.Explore} {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].PersonalizationScore != rows[j].PersonalizationScore {
				return rows[i].PersonalizationScore > rows[j].PersonalizationScore
			}
			return rows[i].ID < rows[j].ID
		})
	}
}

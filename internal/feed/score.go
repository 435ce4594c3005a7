// Package feed assembles the blended "For You" feed from three candidate
// buckets: personal (preference-matched), top-rated, and explore (fresh or
// under-reviewed). Scoring and blending run entirely in memory so the
// database fallback path produces the same feed as the ranked procedure.
package feed

import (
	"math"
	"time"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/rank"
)

// lowReviewCeiling marks a listing as under-discovered for explore scoring.
const lowReviewCeiling = 10

// recencyBoost rewards newer listings: multiplier divided by age in days,
// floored at one day so today's listing doesn't blow up the score.
func recencyBoost(createdAt time.Time, multiplier float64, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	if days < 1 {
		days = 1
	}
	return multiplier / days
}

// PersonalScore ranks the preference-matched bucket. Quality leads, recency
// and profile completeness nudge.
func PersonalScore(l *domain.Listing, now time.Time) float64 {
	score := l.AverageRating*2.2 + math.Log(float64(l.TotalReviews)+1)
	score += recencyBoost(l.CreatedAt, 1.2, now)
	if l.Verified {
		score += 0.4
	}
	if l.PhotoURL != "" {
		score += 0.2
	}
	return score + rank.ContactBoost(l)
}

// TopScore ranks the top-rated bucket. Pure quality, weighted harder on
// rating than the personal bucket.
func TopScore(l *domain.Listing) float64 {
	score := l.AverageRating*2.5 + math.Log(float64(l.TotalReviews)+1.5)
	if l.Verified {
		score += 0.5
	}
	return score + rank.ContactBoost(l)*0.9
}

// ExploreScore ranks the discovery bucket. Recency dominates and low review
// counts are a feature, not a penalty.
func ExploreScore(l *domain.Listing, now time.Time) float64 {
	score := recencyBoost(l.CreatedAt, 2.5, now)
	if l.TotalReviews < lowReviewCeiling {
		score += 1.2
	}
	score += l.AverageRating * 0.8
	if l.PhotoURL != "" {
		score += 0.4
	}
	if l.Verified {
		score += 0.3
	}
	return score + rank.ContactBoost(l)*0.8
}

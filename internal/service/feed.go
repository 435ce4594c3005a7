package service

import (
	"context"
	"sync"

	"github.com/nearbyapp/nearby-server/internal/domain"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/feed"
	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/rank"
	"github.com/nearbyapp/nearby-server/internal/store"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
)

// bucketOverfetch is how many candidates each bucket contributes relative to
// the requested page, so the blender has room to dedup and cap.
const bucketOverfetch = 2

// FeedService builds the personalized "For You" feed.
type FeedService struct {
	store    store.Store
	logger   *logger.Logger
	blendCfg feed.BlendConfig
}

// NewFeedService creates a feed service.
func NewFeedService(st store.Store, cfg feed.BlendConfig, log *logger.Logger) *FeedService {
	return &FeedService{
		store:    st,
		logger:   log,
		blendCfg: cfg,
	}
}

// ForYou serves one page of the personalized feed.
//
// Requires an authenticated caller with a stored preference profile; a user
// who skipped onboarding gets a MISSING_PREFERENCES error rather than a
// silently generic feed. The unified recommendation function is tried first,
// the in-process blender is the fallback. Deal-breakers (stored plus any the
// request carries) apply last on either path, relaxing instead of emptying a
// non-empty page.
func (s *FeedService) ForYou(ctx context.Context, q *domain.ListQuery) (*domain.Page, error) {
	if q.UserID == "" {
		return nil, apperrors.Unauthorized("sign in to get your feed")
	}

	prefs, err := s.store.UserPreferences(ctx, q.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "load preferences failed")
	}
	if !prefs.HasAny() {
		return nil, apperrors.MissingPreferences("set up your interests to get a personalized feed")
	}

	rows, err := s.candidates(ctx, prefs, q.Limit)
	if err != nil {
		return nil, err
	}
	rows = dropModerated(rows)
	rows = rank.PreferPriceRanges(rows, q.PreferredPriceRanges)

	dealbreakers := append(append([]string{}, prefs.Dealbreakers...), q.Dealbreakers...)
	rows, relaxed := rank.ApplyDealbreakers(rows, dealbreakers)
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	page := domain.NewPage(rows, q.Limit)
	page.DealbreakersRelaxed = relaxed
	return page, nil
}

// candidates resolves the feed rows: unified function first, blender on
// fallback. A row-security rejection is the one error that propagates; it
// means the caller identity is wrong, not that the function is missing.
func (s *FeedService) candidates(ctx context.Context, prefs *domain.UserPreferences, limit int) ([]domain.Listing, error) {
	outcome := s.store.ForYouUnified(ctx, prefs.UserID, limit)
	if outcome.OK() {
		return outcome.Rows, nil
	}
	if store.IsPermissionDenied(outcome.Err) {
		return nil, apperrors.Forbidden("you do not have access to this feed").WithCause(outcome.Err)
	}
	if outcome.State == store.RPCUnavailable {
		s.logger.Debug("unified feed function unavailable, blending in process", "error", outcome.Err)
	} else {
		s.logger.WithError(outcome.Err).Warn("unified feed function failed, blending in process")
	}

	buckets := s.fetchBuckets(ctx, prefs, limit*bucketOverfetch)
	return feed.Blend(buckets, s.blendCfg, limit), nil
}

// fetchBuckets loads the three candidate pools concurrently. A failed
// bucket logs and contributes nothing; one bad query must not blank the
// whole feed.
func (s *FeedService) fetchBuckets(ctx context.Context, prefs *domain.UserPreferences, perBucket int) feed.Buckets {
	// Stored subcategories are already leaves; the interest expansion fills
	// in only when the profile has nothing more precise.
	subcategories := prefs.Subcategories
	if len(subcategories) == 0 {
		subcategories = taxonomy.ExpandInterests(prefs.Interests)
	}

	var (
		wg      sync.WaitGroup
		buckets feed.Buckets
	)
	fetch := func(name string, dest *[]domain.Listing, load func(context.Context) ([]domain.Listing, error)) {
		defer wg.Done()
		rows, err := load(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("feed bucket failed", "bucket", name)
			return
		}
		*dest = rows
	}

	wg.Add(3)
	go fetch("personal", &buckets.Personal, func(ctx context.Context) ([]domain.Listing, error) {
		return s.store.PersonalBucket(ctx, subcategories, perBucket)
	})
	go fetch("top", &buckets.Top, func(ctx context.Context) ([]domain.Listing, error) {
		return s.store.TopBucket(ctx, perBucket)
	})
	go fetch("explore", &buckets.Explore, func(ctx context.Context) ([]domain.Listing, error) {
		return s.store.ExploreBucket(ctx, perBucket)
	})
	wg.Wait()

	return buckets
}

// dropModerated removes hidden or system rows. The SQL paths exclude them
// already; function-returned rows get the same guarantee here.
func dropModerated(rows []domain.Listing) []domain.Listing {
	kept := rows[:0]
	for _, l := range rows {
		if !l.IsHidden && !l.IsSystem {
			kept = append(kept, l)
		}
	}
	return kept
}

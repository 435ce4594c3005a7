// Package store provides Postgres-backed data access for listings, user
// preferences and search history. Ranked reads go through database functions
// first; every function call returns a typed RPCOutcome so callers branch on
// state instead of parsing driver errors.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

// RPCState classifies the result of a database function call.
type RPCState int

// RPC outcome states.
const (
	// RPCOK means the function ran and returned rows.
	RPCOK RPCState = iota
	// RPCUnavailable means the function or a column it needs does not
	// exist in this database. Callers switch to the fallback query.
	RPCUnavailable
	// RPCFailed means the call failed for any other reason. Callers also
	// fall back; availability wins over strictness.
	RPCFailed
)

// RPCOutcome is the typed result of a ranked-read function call.
type RPCOutcome struct {
	State RPCState
	Rows  []domain.Listing
	Err   error
}

// OK reports whether the rows are usable.
func (o RPCOutcome) OK() bool { return o.State == RPCOK }

// TrendingKind selects one of the materialized listing views.
type TrendingKind string

// Materialized view kinds.
const (
	TrendingHot TrendingKind = "trending"
	TrendingTop TrendingKind = "top"
	TrendingNew TrendingKind = "new"
)

// ParseTrendingKind validates a raw type parameter.
func ParseTrendingKind(s string) (TrendingKind, bool) {
	switch TrendingKind(strings.ToLower(s)) {
	case TrendingHot:
		return TrendingHot, true
	case TrendingTop:
		return TrendingTop, true
	case TrendingNew:
		return TrendingNew, true
	}
	return "", false
}

// Store is the data-access surface consumed by the services.
type Store interface {
	// Ranked read path.
	ListRanked(ctx context.Context, q *domain.ListQuery) RPCOutcome
	ForYouUnified(ctx context.Context, userID string, limit int) RPCOutcome

	// Fallback read path.
	ListFallback(ctx context.Context, q *domain.ListQuery) ([]domain.Listing, error)
	PersonalBucket(ctx context.Context, subcategories []string, limit int) ([]domain.Listing, error)
	TopBucket(ctx context.Context, limit int) ([]domain.Listing, error)
	ExploreBucket(ctx context.Context, limit int) ([]domain.Listing, error)

	// Materialized views.
	TrendingView(ctx context.Context, kind TrendingKind, limit int) ([]domain.Listing, error)
	TrendingCount(ctx context.Context, kind TrendingKind) (int, error)

	// Writes and lookups.
	GetBusiness(ctx context.Context, id string) (*domain.Listing, error)
	CreateBusiness(ctx context.Context, l *domain.Listing, normalizedName string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	FindByNormalizedName(ctx context.Context, normalized string) (*domain.Listing, error)
	SimilarBusinesses(ctx context.Context, name string, limit int) ([]domain.Listing, error)

	// Personalization.
	UserPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error)
	RecordSearch(ctx context.Context, userID, term string, results int) error

	// Health.
	Ping(ctx context.Context) error
}

// rpcUnavailableCodes are the pq error codes that mean the database function
// itself is missing or mismatched rather than the call having failed.
var rpcUnavailableCodes = map[pq.ErrorCode]bool{
	"42883": true, // undefined_function
	"42703": true, // undefined_column
	"42501": true, // insufficient_privilege
	"3F000": true, // invalid_schema_name
}

// renamedColumnHints catch older database revisions whose functions exist
// but reference columns that have since been renamed.
var renamedColumnHints = []string{
	"primary_subcategory_slug",
	"interest_id",
}

// IsPermissionDenied reports whether err is a row-level-security or
// privilege rejection. The generic list path treats it as unavailable and
// falls back; the personalization path surfaces it as forbidden instead,
// since it means the caller asked for rows that are not theirs.
func IsPermissionDenied(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42501"
}

// classifyRPCError maps a driver error onto an RPC outcome state.
func classifyRPCError(err error) RPCOutcome {
	if err == nil {
		return RPCOutcome{State: RPCOK}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if rpcUnavailableCodes[pqErr.Code] {
			return RPCOutcome{State: RPCUnavailable, Err: err}
		}
		msg := strings.ToLower(pqErr.Message)
		if strings.Contains(msg, "does not exist") {
			for _, hint := range renamedColumnHints {
				if strings.Contains(msg, hint) {
					return RPCOutcome{State: RPCUnavailable, Err: err}
				}
			}
		}
	}
	return RPCOutcome{State: RPCFailed, Err: err}
}

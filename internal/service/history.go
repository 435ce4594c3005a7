package service

import (
	"context"
	"time"

	"github.com/nearbyapp/nearby-server/internal/logger"
	"github.com/nearbyapp/nearby-server/internal/store"
)

// recordTimeout bounds the detached history write.
const recordTimeout = 5 * time.Second

// HistoryService logs search terms fire-and-forget. Recording runs on a
// detached goroutine with its own context and error boundary; the response
// path never waits on it and never sees its failures.
type HistoryService struct {
	store  store.Store
	logger *logger.Logger

	// record is the goroutine body; tests replace it to run synchronously.
	record func(fn func())
}

// NewHistoryService creates a history service.
func NewHistoryService(st store.Store, log *logger.Logger) *HistoryService {
	return &HistoryService{
		store:  st,
		logger: log,
		record: func(fn func()) { go fn() },
	}
}

// Record logs one search asynchronously. Empty terms are ignored.
func (s *HistoryService) Record(userID, term string, results int) {
	if term == "" {
		return
	}
	s.record(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := s.store.RecordSearch(ctx, userID, term, results); err != nil {
			s.logger.WithError(err).Warn("search history write failed", "term", term)
		}
	})
}

package recommendation

import (
	"context"
	"log"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// CacheStore persists generated recommendation sets so the UI can show
// them without recomputing on every request.
type CacheStore interface {
	SaveRecommendations(userID int64, recs []models.Recommendation) error
	ActiveUserIDs(sinceDays int) ([]int64, error)
}

// StartRefreshWorker periodically regenerates recommendations for every
// learner active in the last day. Runs until the context is cancelled.
func (e *Engine) StartRefreshWorker(ctx context.Context, cache CacheStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[rec-worker] Recommendation refresh worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[rec-worker] Shutting down")
			return
		case <-ticker.C:
			e.refreshActiveUsers(cache)
		}
	}
}

func (e *Engine) refreshActiveUsers(cache CacheStore) {
	userIDs, err := cache.ActiveUserIDs(1)
	if err != nil {
		log.Printf("[rec-worker] error listing active users: %v", err)
		return
	}

	for _, userID := range userIDs {
		recs, err := e.GenerateRecommendations(userID)
		if err != nil {
			log.Printf("WARN: [rec-worker] generate failed for user %d: %v", userID, err)
			continue
		}
		if err := cache.SaveRecommendations(userID, recs); err != nil {
			log.Printf("WARN: [rec-worker] cache save failed for user %d: %v", userID, err)
		}
	}
}

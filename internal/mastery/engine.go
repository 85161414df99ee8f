package mastery

import (
	"errors"
	"log"
	"math"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// Store is the slice of the analytics accessor the update engine needs.
type Store interface {
	GetAnalytics(userID, itemID int64, itemType models.ItemType) (*models.AnalyticsRecord, error)
	UpsertAnalytics(r *models.AnalyticsRecord) error
	GetItemDifficulty(itemID int64, itemType models.ItemType) (int, error)
}

const (
	vocabularyBaseRate = 0.10
	grammarBaseRate    = 0.08

	// Incorrect answers penalize grammar mastery more than vocabulary.
	vocabularyPenalty = 0.5
	grammarPenalty    = 0.6

	minIntervalDays = 1
	maxIntervalDays = 30
)

// DifficultyFactor maps a 1-10 difficulty level to [0.55, 1.0].
func DifficultyFactor(level int) float64 {
	return 0.5 + (float64(level)/10)*0.5
}

// TimeFactor rewards fast answers and penalizes overtime. A question with
// no usable timing data gets the neutral 1.0 — a missing clock should
// never fail the update.
func TimeFactor(timeSpent, timeLimit *float64) float64 {
	if timeSpent == nil || timeLimit == nil || *timeLimit <= 0 {
		return 1.0
	}
	ratio := *timeSpent / *timeLimit
	switch {
	case ratio <= 0.3:
		return 1.2
	case ratio <= 0.7:
		return 1.0
	case ratio <= 1.0:
		return 0.8
	default:
		return 0.5
	}
}

// AccuracyFactor scales the delta by outcome.
func AccuracyFactor(correct bool) float64 {
	if correct {
		return 1.2
	}
	return 0.8
}

// ConsistencyFactor (vocabulary) rewards a stable success history.
// No history defaults to the full 1.0.
func ConsistencyFactor(successCount, failureCount int) float64 {
	total := successCount + failureCount
	if total == 0 {
		return 1.0
	}
	successRate := float64(successCount) / float64(total)
	return 0.7 + successRate*0.3
}

// ComplexityFactor (grammar) boosts structurally demanding question types.
func ComplexityFactor(questionType models.QuestionType) float64 {
	if questionType.Complex() {
		return 1.2
	}
	return 1.0
}

// EaseFactor is the SM-2-style multiplier: historical successes widen the
// next interval, failures narrow it.
func EaseFactor(successCount, failureCount int) float64 {
	return 2.5 + float64(successCount)*0.1 - float64(failureCount)*0.15
}

// NextInterval derives the review interval in days, bounded to avoid
// runaway scheduling gaps.
func NextInterval(successCount, failureCount int, masteryScore, retentionScore float64) int {
	ease := EaseFactor(successCount, failureCount)
	interval := int(math.Round(1 * ease * (1 + masteryScore) * retentionScore))
	if interval < minIntervalDays {
		return minIntervalDays
	}
	if interval > maxIntervalDays {
		return maxIntervalDays
	}
	return interval
}

// Engine recomputes per-item analytics after each session.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ApplySessionOutcomes computes and persists one adjustment per referenced
// item for every answered question. Items are processed sequentially and
// fail open: a deleted item or a failed write is logged and skipped so a
// single bad reference never discards the rest of the session's outcomes.
// Invoked exactly once per session completion.
func (e *Engine) ApplySessionOutcomes(session *models.Session) ([]models.MasteryAdjustment, error) {
	now := time.Now()
	var adjustments []models.MasteryAdjustment

	for _, q := range session.Questions {
		if q.IsCorrect == nil {
			continue
		}
		for _, itemID := range q.VocabularyIDs {
			if adj, ok := e.applyItem(session.UserID, itemID, models.ItemVocabulary, q, now); ok {
				adjustments = append(adjustments, adj)
			}
		}
		for _, itemID := range q.GrammarIDs {
			if adj, ok := e.applyItem(session.UserID, itemID, models.ItemGrammar, q, now); ok {
				adjustments = append(adjustments, adj)
			}
		}
	}

	return adjustments, nil
}

func (e *Engine) applyItem(userID, itemID int64, itemType models.ItemType, q models.Question, now time.Time) (models.MasteryAdjustment, bool) {
	difficulty, err := e.store.GetItemDifficulty(itemID, itemType)
	if errors.Is(err, models.ErrItemNotFound) {
		log.Printf("[mastery] skipping %s item %d: no content record", itemType, itemID)
		return models.MasteryAdjustment{}, false
	}
	if err != nil {
		log.Printf("WARN: [mastery] lookup failed for %s item %d: %v", itemType, itemID, err)
		return models.MasteryAdjustment{}, false
	}

	record, err := e.store.GetAnalytics(userID, itemID, itemType)
	if err != nil {
		log.Printf("WARN: [mastery] load analytics failed for %s item %d: %v", itemType, itemID, err)
		return models.MasteryAdjustment{}, false
	}
	if record == nil {
		record = models.NewAnalyticsRecord(userID, itemID, itemType)
	}

	adjustment := ComputeAdjustment(record, difficulty, q, now)

	if err := e.store.UpsertAnalytics(record); err != nil {
		log.Printf("WARN: [mastery] persist failed for %s item %d: %v", itemType, itemID, err)
		return models.MasteryAdjustment{}, false
	}
	return adjustment, true
}

// ComputeAdjustment applies one question outcome to the record in place
// and returns the resulting delta. All scores are clamped to their ranges
// and exposure_count stays equal to success_count + failure_count.
func ComputeAdjustment(record *models.AnalyticsRecord, difficultyLevel int, q models.Question, now time.Time) models.MasteryAdjustment {
	correct := q.IsCorrect != nil && *q.IsCorrect

	difficultyFactor := DifficultyFactor(difficultyLevel)
	timeFactor := TimeFactor(q.TimeSpent, q.TimeLimit)
	accuracyFactor := AccuracyFactor(correct)

	baseRate := vocabularyBaseRate
	categoryFactor := ConsistencyFactor(record.SuccessCount, record.FailureCount)
	penalty := vocabularyPenalty
	if record.ItemType == models.ItemGrammar {
		baseRate = grammarBaseRate
		categoryFactor = ComplexityFactor(q.QuestionType)
		penalty = grammarPenalty
	}

	baseChange := baseRate * difficultyFactor * timeFactor * accuracyFactor * categoryFactor
	masteryChange := baseChange
	if !correct {
		masteryChange = -baseChange * penalty
	}

	newMastery := models.ClampScore(record.MasteryScore + masteryChange)

	timeBonus := retentionTimeBonus(q.TimeSpent, q.TimeLimit)
	accuracyBonus := 0.8
	if correct {
		accuracyBonus = 1.2
	}
	newRetention := record.RetentionScore * timeBonus * accuracyBonus
	if newRetention < 0.1 {
		newRetention = 0.1
	}
	if newRetention > 1.0 {
		newRetention = 1.0
	}

	// Confidence moves slower: full delta on success, half the delta
	// magnitude on failure.
	confidenceDelta := masteryChange * 100
	if !correct {
		confidenceDelta = masteryChange * 50
	}
	newConfidence := models.ClampConfidence(record.ConfidenceLevel + confidenceDelta)

	if masteryChange > 0 {
		record.SuccessCount++
	} else {
		record.FailureCount++
	}
	record.ExposureCount++

	intervalDays := NextInterval(record.SuccessCount, record.FailureCount, newMastery, newRetention)
	nextReview := now.AddDate(0, 0, intervalDays)

	record.MasteryScore = newMastery
	record.RetentionScore = newRetention
	record.ConfidenceLevel = newConfidence
	record.LastReviewed = &now
	record.NextReviewDate = &nextReview

	return models.MasteryAdjustment{
		ItemID:         record.ItemID,
		ItemType:       record.ItemType,
		MasteryChange:  masteryChange,
		NewMastery:     newMastery,
		NewRetention:   newRetention,
		NewConfidence:  newConfidence,
		IntervalDays:   intervalDays,
		NextReviewDate: nextReview,
	}
}

// retentionTimeBonus is the coarser fast/slow split used for retention:
// answers inside 70% of the limit strengthen recall, slower ones decay it.
// Missing timing data is neutral.
func retentionTimeBonus(timeSpent, timeLimit *float64) float64 {
	if timeSpent == nil || timeLimit == nil || *timeLimit <= 0 {
		return 1.0
	}
	if *timeSpent <= 0.7*(*timeLimit) {
		return 1.1
	}
	return 0.9
}

package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/lingua-prep/backend/internal/analytics"
	"github.com/lingua-prep/backend/internal/models"
)

// Store is the slice of the analytics accessor the selection engine needs.
type Store interface {
	QueryCandidates(userID int64, itemType models.ItemType, minDifficulty, maxDifficulty, limit int, hint analytics.OrderHint) ([]models.CandidateRow, error)
	GetSessions(userID int64, windowDays int) ([]models.SessionSummary, error)
}

// Config holds the selection policy knobs.
type Config struct {
	MinDifficulty   int // candidate window lower bound
	MaxDifficulty   int // candidate window upper bound
	MixWindowDays   int // how far back the mix ratio looks
	MixSessionLimit int // how many recent sessions feed the ratio
}

func DefaultConfig() Config {
	return Config{
		MinDifficulty:   3,
		MaxDifficulty:   8,
		MixWindowDays:   30,
		MixSessionLimit: 20,
	}
}

const (
	defaultVocabRatio = 0.6
	minVocabRatio     = 0.3
	maxVocabRatio     = 0.7
)

// urgencyWeights reconciles the four deficit signals into one score.
// Grammar weighs confidence more heavily: grammar errors are more
// consistency-sensitive than vocabulary lapses.
type weights struct {
	mastery    float64
	retention  float64
	confidence float64
	exposure   float64
}

var urgencyWeights = map[models.ItemType]weights{
	models.ItemVocabulary: {mastery: 0.4, retention: 0.3, confidence: 0.2, exposure: 0.1},
	models.ItemGrammar:    {mastery: 0.35, retention: 0.25, confidence: 0.25, exposure: 0.15},
}

// UrgencyScore combines mastery, retention, confidence, and exposure
// deficits into a single ranking value. Higher means more urgent.
func UrgencyScore(c models.CandidateRow) float64 {
	w := urgencyWeights[c.ItemType]
	return w.mastery*(1-c.MasteryScore) +
		w.retention*(1-c.RetentionScore) +
		w.confidence*(1-c.ConfidenceLevel/100) +
		w.exposure*(1/(1+float64(c.ExposureCount)))
}

// Engine picks the next items a learner should review.
type Engine struct {
	store  Store
	config Config
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, config: DefaultConfig()}
}

func NewEngineWithConfig(store Store, config Config) *Engine {
	return &Engine{store: store, config: config}
}

// SelectItems returns up to targetCount item ids split between vocabulary
// and grammar by the adaptive mix ratio. When one category runs short the
// other backfills; when both run short everything available is returned.
func (e *Engine) SelectItems(userID int64, targetCount int) (*models.SelectionResult, error) {
	if targetCount <= 0 {
		return &models.SelectionResult{}, nil
	}

	sessions, err := e.store.GetSessions(userID, e.config.MixWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}
	if len(sessions) > e.config.MixSessionLimit {
		sessions = sessions[:e.config.MixSessionLimit]
	}

	vocabRatio := MixRatio(sessions)
	vocabCount := int(math.Ceil(float64(targetCount) * vocabRatio))
	grammarCount := targetCount - vocabCount

	vocabRanked, err := e.rankedCandidates(userID, models.ItemVocabulary, targetCount)
	if err != nil {
		return nil, err
	}
	grammarRanked, err := e.rankedCandidates(userID, models.ItemGrammar, targetCount)
	if err != nil {
		return nil, err
	}

	vocabTake := min(vocabCount, len(vocabRanked))
	grammarTake := min(grammarCount, len(grammarRanked))

	// Backfill shortfalls from the other category so the total stays at
	// targetCount whenever enough candidates exist overall.
	if vocabTake < vocabCount {
		grammarTake = min(len(grammarRanked), grammarTake+(vocabCount-vocabTake))
	}
	if grammarTake < grammarCount {
		vocabTake = min(len(vocabRanked), vocabTake+(grammarCount-grammarTake))
	}

	result := &models.SelectionResult{
		VocabularyIDs: make([]int64, 0, vocabTake),
		GrammarIDs:    make([]int64, 0, grammarTake),
	}
	for _, c := range vocabRanked[:vocabTake] {
		result.VocabularyIDs = append(result.VocabularyIDs, c.ItemID)
	}
	for _, c := range grammarRanked[:grammarTake] {
		result.GrammarIDs = append(result.GrammarIDs, c.ItemID)
	}
	return result, nil
}

func (e *Engine) rankedCandidates(userID int64, itemType models.ItemType, limit int) ([]models.CandidateRow, error) {
	candidates, err := e.store.QueryCandidates(
		userID, itemType, e.config.MinDifficulty, e.config.MaxDifficulty,
		limit*candidateOverfetch, analytics.OrderDueFirst,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s candidates: %w", itemType, err)
	}
	Rank(candidates)
	return candidates, nil
}

// candidateOverfetch pulls extra rows per category so the in-process
// ranking has room to reorder. The store already pre-orders due rows
// by score deficit, so the exact weighted ranking only ever shuffles
// within this window.
const candidateOverfetch = 3

// Rank orders candidates in place: due items first, then by urgency,
// then staleness (fresher neglect wins ties), then easier items first.
func Rank(candidates []models.CandidateRow) {
	type scored struct {
		row   models.CandidateRow
		score float64
	}
	rows := make([]scored, len(candidates))
	for i, c := range candidates {
		rows[i] = scored{row: c, score: UrgencyScore(c)}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.row.Due != b.row.Due {
			return a.row.Due
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.row.SecondsSinceReview != b.row.SecondsSinceReview {
			return a.row.SecondsSinceReview > b.row.SecondsSinceReview
		}
		return a.row.DifficultyLevel < b.row.DifficultyLevel
	})
	for i := range rows {
		candidates[i] = rows[i].row
	}
}

// MixRatio computes the vocabulary share of a session from recent
// performance. The split is inversely proportional to per-topic accuracy
// so the weaker category gets more exposure, clamped so neither category
// is starved. No history at all falls back to the fixed 0.6/0.4 default.
func MixRatio(sessions []models.SessionSummary) float64 {
	if len(sessions) == 0 {
		return defaultVocabRatio
	}

	var vocabSum, grammarSum float64
	var vocabN, grammarN int
	for _, s := range sessions {
		if s.HasTopic(string(models.ItemVocabulary)) {
			vocabSum += s.AccuracyRate
			vocabN++
		}
		if s.HasTopic(string(models.ItemGrammar)) {
			grammarSum += s.AccuracyRate
			grammarN++
		}
	}

	avgVocab, avgGrammar := 0.5, 0.5
	if vocabN > 0 {
		avgVocab = vocabSum / float64(vocabN)
	}
	if grammarN > 0 {
		avgGrammar = grammarSum / float64(grammarN)
	}

	rawVocab := (1 - avgVocab) / 2
	rawGrammar := (1 - avgGrammar) / 2

	total := rawVocab + rawGrammar
	ratio := 0.5
	if total > 0 {
		ratio = rawVocab / total
	}

	if ratio < minVocabRatio {
		return minVocabRatio
	}
	if ratio > maxVocabRatio {
		return maxVocabRatio
	}
	return ratio
}

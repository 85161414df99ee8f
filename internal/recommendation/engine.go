package recommendation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lingua-prep/backend/internal/models"
)

// Store is the slice of the analytics accessor the recommendation
// engine reads. Generation is read-only and fails closed.
type Store interface {
	GetSessions(userID int64, windowDays int) ([]models.SessionSummary, error)
	QuestionTypeAccuracy(userID int64, windowDays int) ([]models.TypeAccuracy, error)
	DifficultyAccuracy(userID int64, windowDays int) ([]models.LevelAccuracy, error)
}

const (
	patternWindowDays = 90 // long window for weakness/strength patterns
	recentWindowDays  = 30 // short window for recent performance signals

	weaknessThreshold = 0.5
	strengthThreshold = 0.8
	severeThreshold   = 0.4
	minObservations   = 2

	consistencyThreshold = 0.6
	improvementThreshold = 0.1
	engagementThreshold  = 0.5

	engagementBaselineMinutes = 10
)

// Engine turns session history into ranked improvement recommendations.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// performanceProfile is the intermediate analysis all rules draw from.
type performanceProfile struct {
	weakTypes   []models.TypeAccuracy // accuracy <= 0.5, >= 2 observations
	strongTypes []models.TypeAccuracy // accuracy >= 0.8, >= 2 observations
	severeTypes []models.TypeAccuracy // accuracy < 0.4 subset of weakTypes
	levelStats  []models.LevelAccuracy
	consistency float64
	improvement float64
	engagement  float64
	confidence  float64
}

// GenerateRecommendations analyzes the learner's recent history and
// returns all applicable recommendations, strongest first.
func (e *Engine) GenerateRecommendations(userID int64) ([]models.Recommendation, error) {
	typeStats, err := e.store.QuestionTypeAccuracy(userID, patternWindowDays)
	if err != nil {
		return nil, fmt.Errorf("type accuracy: %w", err)
	}
	levelStats, err := e.store.DifficultyAccuracy(userID, patternWindowDays)
	if err != nil {
		return nil, fmt.Errorf("difficulty accuracy: %w", err)
	}
	patternSessions, err := e.store.GetSessions(userID, patternWindowDays)
	if err != nil {
		return nil, fmt.Errorf("pattern sessions: %w", err)
	}
	recentSessions, err := e.store.GetSessions(userID, recentWindowDays)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}

	profile := buildProfile(typeStats, levelStats, patternSessions, recentSessions)
	recs := applyRules(profile)
	SortRecommendations(recs)
	return recs, nil
}

func buildProfile(typeStats []models.TypeAccuracy, levelStats []models.LevelAccuracy, patternSessions, recentSessions []models.SessionSummary) performanceProfile {
	p := performanceProfile{
		levelStats:  levelStats,
		consistency: ConsistencyScore(patternSessions),
		improvement: ImprovementRate(patternSessions),
		engagement:  EngagementScore(recentSessions),
		confidence:  confidenceFromHistory(len(patternSessions)),
	}
	for _, t := range typeStats {
		if t.Answered < minObservations {
			continue
		}
		switch {
		case t.Accuracy <= weaknessThreshold:
			p.weakTypes = append(p.weakTypes, t)
			if t.Accuracy < severeThreshold {
				p.severeTypes = append(p.severeTypes, t)
			}
		case t.Accuracy >= strengthThreshold:
			p.strongTypes = append(p.strongTypes, t)
		}
	}
	return p
}

// applyRules fires every independent rule whose trigger matches.
func applyRules(p performanceProfile) []models.Recommendation {
	var recs []models.Recommendation

	if len(p.severeTypes) > 0 {
		names := typeNames(p.severeTypes)
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendFocus,
			Title:    "Focus on your weakest question types",
			Priority: models.PriorityHigh,
			Description: fmt.Sprintf(
				"Accuracy on %s is below 40%%. Concentrated practice on these types gives the biggest return right now.",
				strings.Join(names, ", ")),
			ActionItems: []string{
				fmt.Sprintf("Run two short sessions per day limited to %s questions", strings.Join(names, " and ")),
				"Review the explanation after every miss before moving on",
			},
			EstimatedImpact: 85,
			Confidence:      p.confidence,
		})
	}

	if len(p.weakTypes) >= 3 {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendBalance,
			Title:    "Balance your study across question types",
			Priority: models.PriorityMedium,
			Description: fmt.Sprintf(
				"%d question types sit at or below 50%% accuracy. Spreading practice keeps one gap from hiding another.",
				len(p.weakTypes)),
			ActionItems: []string{
				"Alternate question types within each session instead of drilling one",
				"Keep sessions mixed until every type clears 60% accuracy",
			},
			EstimatedImpact: 70,
			Confidence:      p.confidence,
		})
	}

	if p.consistency < consistencyThreshold {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendHabit,
			Title:    "Build a daily study habit",
			Priority: models.PriorityHigh,
			Description: "Your study sessions are irregular. Retention depends on steady spacing " +
				"more than on total hours.",
			ActionItems: []string{
				"Pick a fixed time of day and study for at least 10 minutes",
				"Aim for a 5-day streak before increasing session length",
			},
			EstimatedImpact: 75,
			Confidence:      p.confidence,
		})
	}

	if p.improvement < improvementThreshold {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendIntensity,
			Title:    "Increase your study intensity",
			Priority: models.PriorityMedium,
			Description: "Your accuracy has plateaued across recent sessions. A harder mix or more " +
				"questions per session can restart progress.",
			ActionItems: []string{
				"Add two questions per session this week",
				"Let the difficulty window drift up once accuracy passes 70%",
			},
			EstimatedImpact: 65,
			Confidence:      p.confidence,
		})
	}

	if p.engagement < engagementThreshold {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendStudyTime,
			Title:    "Optimize your study time",
			Priority: models.PriorityMedium,
			Description: fmt.Sprintf(
				"Your average session runs well under the %d-minute baseline. Very short sessions "+
					"limit how much scheduling can do for you.", engagementBaselineMinutes),
			ActionItems: []string{
				fmt.Sprintf("Stretch sessions toward %d minutes", engagementBaselineMinutes),
				"Close other apps for the duration of a session",
			},
			EstimatedImpact: 55,
			Confidence:      p.confidence,
		})
	}

	// Every severe weakness also gets its own re-exposure schedule.
	for _, t := range p.severeTypes {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendReviewSchedule,
			Title:    fmt.Sprintf("Re-expose %s on a 1/3/7-day cycle", t.QuestionType),
			Priority: models.PriorityHigh,
			Description: fmt.Sprintf(
				"%s accuracy is %.0f%%. Short spaced re-exposure rebuilds it faster than massed practice.",
				t.QuestionType, t.Accuracy*100),
			ActionItems: []string{
				fmt.Sprintf("Revisit missed %s questions tomorrow", t.QuestionType),
				"Repeat the set after 3 days, then after 7 days",
			},
			EstimatedImpact: 80,
			Confidence:      p.confidence,
		})
	}

	return recs
}

// SortRecommendations orders by priority weight x impact x confidence,
// strongest first.
func SortRecommendations(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recScore(recs[i]) > recScore(recs[j])
	})
}

func recScore(r models.Recommendation) float64 {
	return r.Priority.Weight() * r.EstimatedImpact * (r.Confidence / 100)
}

// ── Derived Signals ─────────────────────────────────────

// ConsistencyScore measures how evenly spaced the learner's sessions are,
// from the stddev of inter-session gaps: daily study scores near 1, a
// week of jitter scores 0. Fewer than 3 sessions is treated as neutral.
func ConsistencyScore(sessions []models.SessionSummary) float64 {
	if len(sessions) < 3 {
		return 0.5
	}

	// Sessions arrive newest first; gaps in days between consecutive ones.
	gaps := make([]float64, 0, len(sessions)-1)
	for i := 0; i < len(sessions)-1; i++ {
		gap := sessions[i].CompletedAt.Sub(sessions[i+1].CompletedAt).Hours() / 24
		gaps = append(gaps, gap)
	}

	var mean float64
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))

	score := 1 - math.Sqrt(variance)/7
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ImprovementRate is the accuracy delta between the newer and older half
// of the session list. Positive means the learner is trending up.
func ImprovementRate(sessions []models.SessionSummary) float64 {
	if len(sessions) < 2 {
		return 0
	}

	// Newest first: the first half is the recent half.
	mid := len(sessions) / 2
	newer := sessions[:mid]
	older := sessions[mid:]

	return meanAccuracy(newer) - meanAccuracy(older)
}

func meanAccuracy(sessions []models.SessionSummary) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += s.AccuracyRate
	}
	return sum / float64(len(sessions))
}

// EngagementScore compares average session duration against the
// 10-minute baseline, capped at 1.
func EngagementScore(sessions []models.SessionSummary) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var totalMinutes float64
	for _, s := range sessions {
		totalMinutes += s.Duration().Minutes()
	}
	avg := totalMinutes / float64(len(sessions))
	score := avg / engagementBaselineMinutes
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// confidenceFromHistory scales recommendation confidence with the amount
// of history backing the analysis.
func confidenceFromHistory(sessionCount int) float64 {
	c := 50 + 5*float64(sessionCount)
	if c > 95 {
		return 95
	}
	return c
}

func typeNames(stats []models.TypeAccuracy) []string {
	names := make([]string, len(stats))
	for i, t := range stats {
		names[i] = string(t.QuestionType)
	}
	return names
}

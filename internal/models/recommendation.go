package models

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Weight maps a priority to its ordering multiplier.
func (p RecommendationPriority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type RecommendationType string

const (
	RecommendFocus          RecommendationType = "focus"
	RecommendBalance        RecommendationType = "balance"
	RecommendHabit          RecommendationType = "habit"
	RecommendIntensity      RecommendationType = "intensity"
	RecommendStudyTime      RecommendationType = "study_time"
	RecommendReviewSchedule RecommendationType = "review_schedule"
)

type Recommendation struct {
	Type            RecommendationType     `json:"type"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Priority        RecommendationPriority `json:"priority"`
	ActionItems     []string               `json:"action_items"`
	EstimatedImpact float64                `json:"estimated_impact"` // [0,100]
	Confidence      float64                `json:"confidence"`       // [0,100]
}

// TypeAccuracy aggregates answered-question outcomes for one question type.
type TypeAccuracy struct {
	QuestionType QuestionType `json:"question_type"`
	Answered     int          `json:"answered"`
	Correct      int          `json:"correct"`
	Accuracy     float64      `json:"accuracy"`
}

// LevelAccuracy aggregates outcomes for one difficulty level (1-10).
type LevelAccuracy struct {
	DifficultyLevel int     `json:"difficulty_level"`
	Answered        int     `json:"answered"`
	Correct         int     `json:"correct"`
	Accuracy        float64 `json:"accuracy"`
}

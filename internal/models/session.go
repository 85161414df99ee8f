package models

import "time"

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTranslation    QuestionType = "translation"
	QuestionTransformation QuestionType = "transformation"
	QuestionSentencePuzzle QuestionType = "sentence_puzzle"
)

var ValidQuestionTypes = map[QuestionType]bool{
	QuestionMultipleChoice: true,
	QuestionFillBlank:      true,
	QuestionTranslation:    true,
	QuestionTransformation: true,
	QuestionSentencePuzzle: true,
}

// Complex reports whether the type requires structural manipulation
// rather than recall. Grammar mastery moves faster on these.
func (t QuestionType) Complex() bool {
	return t == QuestionTransformation || t == QuestionSentencePuzzle
}

type Question struct {
	ID              int64        `json:"id"`
	SessionID       int64        `json:"session_id"`
	Position        int          `json:"position"`
	QuestionType    QuestionType `json:"question_type"`
	DifficultyLevel int          `json:"difficulty_level"`
	Prompt          string       `json:"prompt"`
	Options         []string     `json:"options,omitempty"`
	CorrectAnswer   string       `json:"correct_answer"`
	VocabularyIDs   []int64      `json:"vocabulary_ids,omitempty"`
	GrammarIDs      []int64      `json:"grammar_ids,omitempty"`
	TimeLimit       *float64     `json:"time_limit,omitempty"` // seconds

	// Outcome fields, set at completion
	IsCorrect *bool    `json:"is_correct,omitempty"`
	TimeSpent *float64 `json:"time_spent,omitempty"` // seconds
}

// Session is an ordered sequence of questions. Lifecycle is
// pending -> completed; a session is never partially scored.
type Session struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Status       SessionStatus `json:"status"`
	Topics       []string      `json:"topics,omitempty"`
	AccuracyRate *float64      `json:"accuracy_rate,omitempty"`
	TotalScore   *float64      `json:"total_score,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Questions    []Question    `json:"questions,omitempty"`
}

// SessionSummary is the slice of a completed session the engines read:
// enough for the mix ratio, consistency, and engagement calculations.
type SessionSummary struct {
	ID            int64
	Topics        []string
	AccuracyRate  float64
	TotalScore    float64
	QuestionCount int
	StartedAt     time.Time
	CompletedAt   time.Time
}

// HasTopic reports whether the session touched the given topic.
func (s SessionSummary) HasTopic(topic string) bool {
	for _, t := range s.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Duration is the wall-clock length of the session.
func (s SessionSummary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// ── API Request/Response Types ────────────────────────────

type StartSessionRequest struct {
	QuestionCount int `json:"question_count"`
}

type QuestionOutcome struct {
	QuestionID int64    `json:"question_id"`
	IsCorrect  *bool    `json:"is_correct"`
	TimeSpent  *float64 `json:"time_spent,omitempty"`
}

type CompleteSessionRequest struct {
	Outcomes []QuestionOutcome `json:"outcomes"`
}

type CompleteSessionResponse struct {
	Session     *Session            `json:"session"`
	Adjustments []MasteryAdjustment `json:"adjustments"`
}

type SelectionResult struct {
	VocabularyIDs []int64 `json:"vocabulary_ids"`
	GrammarIDs    []int64 `json:"grammar_ids"`
}

// Count returns the total number of selected items.
func (r SelectionResult) Count() int {
	return len(r.VocabularyIDs) + len(r.GrammarIDs)
}

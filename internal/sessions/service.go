package sessions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lingua-prep/backend/internal/mastery"
	"github.com/lingua-prep/backend/internal/models"
	"github.com/lingua-prep/backend/internal/selection"
)

const defaultQuestionCount = 10

// Storage is the persistence surface the session service drives.
type Storage interface {
	GetVocabularyItems(ids []int64) ([]models.VocabularyItem, error)
	GetGrammarItems(ids []int64) ([]models.GrammarItem, error)
	CreateSession(userID int64, topics []string, questions []models.Question) (*models.Session, error)
	GetSession(sessionID int64) (*models.Session, error)
	CompleteSession(session *models.Session) error
}

// QuestionGenerator turns selected items into question text.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, vocab []models.VocabularyItem, grammar []models.GrammarItem) ([]models.Question, error)
}

// Service orchestrates the session lifecycle: item selection, question
// generation, and mastery updates on completion.
type Service struct {
	store     Storage
	selector  *selection.Engine
	mastery   *mastery.Engine
	generator QuestionGenerator
}

func NewService(store Storage, selector *selection.Engine, masteryEngine *mastery.Engine, gen QuestionGenerator) *Service {
	return &Service{
		store:     store,
		selector:  selector,
		mastery:   masteryEngine,
		generator: gen,
	}
}

// StartSession selects review items for the user, generates questions
// for them, and persists the session in pending state.
func (s *Service) StartSession(ctx context.Context, userID int64, questionCount int) (*models.Session, error) {
	if questionCount <= 0 {
		questionCount = defaultQuestionCount
	}

	result, err := s.selector.SelectItems(userID, questionCount)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	if result.Count() == 0 {
		return nil, fmt.Errorf("no learning items available for user %d", userID)
	}

	vocab, err := s.store.GetVocabularyItems(result.VocabularyIDs)
	if err != nil {
		return nil, err
	}
	grammar, err := s.store.GetGrammarItems(result.GrammarIDs)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.GenerateQuestions(ctx, vocab, grammar)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	topics := sessionTopics(vocab, grammar)
	session, err := s.store.CreateSession(userID, topics, questions)
	if err != nil {
		return nil, err
	}

	log.Printf("[sessions] started session %d for user %d: %d vocab, %d grammar",
		session.ID, userID, len(vocab), len(grammar))
	return session, nil
}

// GetSession loads a session, verifying it belongs to the user.
func (s *Service) GetSession(userID, sessionID int64) (*models.Session, error) {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("session %d does not belong to user %d", sessionID, userID)
	}
	return session, nil
}

// CompleteSession records question outcomes, computes the summary, and
// runs the mastery update for every answered question. A session can
// only be completed once.
func (s *Service) CompleteSession(userID, sessionID int64, outcomes []models.QuestionOutcome) (*models.CompleteSessionResponse, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, fmt.Errorf("session %d is already completed", sessionID)
	}

	byQuestion := make(map[int64]models.QuestionOutcome, len(outcomes))
	for _, o := range outcomes {
		byQuestion[o.QuestionID] = o
	}

	answered, correct := 0, 0
	for i := range session.Questions {
		q := &session.Questions[i]
		o, ok := byQuestion[q.ID]
		if !ok || o.IsCorrect == nil {
			continue
		}
		q.IsCorrect = o.IsCorrect
		q.TimeSpent = o.TimeSpent
		answered++
		if *o.IsCorrect {
			correct++
		}
		delete(byQuestion, q.ID)
	}
	for id := range byQuestion {
		log.Printf("WARN: [sessions] outcome for unknown question %d in session %d ignored", id, sessionID)
	}

	accuracy := 0.0
	if answered > 0 {
		accuracy = float64(correct) / float64(answered)
	}
	score := float64(correct) * 10

	now := time.Now()
	session.Status = models.SessionCompleted
	session.AccuracyRate = &accuracy
	session.TotalScore = &score
	session.CompletedAt = &now

	if err := s.store.CompleteSession(session); err != nil {
		return nil, err
	}

	adjustments, err := s.mastery.ApplySessionOutcomes(session)
	if err != nil {
		return nil, fmt.Errorf("apply mastery updates: %w", err)
	}

	log.Printf("[sessions] completed session %d for user %d: %d/%d correct, %d adjustments",
		sessionID, userID, correct, answered, len(adjustments))

	return &models.CompleteSessionResponse{
		Session:     session,
		Adjustments: adjustments,
	}, nil
}

// sessionTopics derives the topic tags stored on the session row. The
// mix ratio calculation later reads these back per category.
func sessionTopics(vocab []models.VocabularyItem, grammar []models.GrammarItem) []string {
	var topics []string
	if len(vocab) > 0 {
		topics = append(topics, string(models.ItemVocabulary))
	}
	if len(grammar) > 0 {
		topics = append(topics, string(models.ItemGrammar))
	}
	seen := make(map[string]bool)
	for _, v := range vocab {
		if v.Category != "" && !seen[v.Category] {
			seen[v.Category] = true
			topics = append(topics, v.Category)
		}
	}
	for _, g := range grammar {
		if g.Category != "" && !seen[g.Category] {
			seen[g.Category] = true
			topics = append(topics, g.Category)
		}
	}
	return topics
}

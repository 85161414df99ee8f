package sessions

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lingua-prep/backend/internal/analytics"
	"github.com/lingua-prep/backend/internal/mastery"
	"github.com/lingua-prep/backend/internal/models"
	"github.com/lingua-prep/backend/internal/selection"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

// ── Fakes ───────────────────────────────────────────────

type fakeStorage struct {
	session   *models.Session
	vocab     []models.VocabularyItem
	grammar   []models.GrammarItem
	completed *models.Session
}

func (f *fakeStorage) GetVocabularyItems(ids []int64) ([]models.VocabularyItem, error) {
	return f.vocab, nil
}

func (f *fakeStorage) GetGrammarItems(ids []int64) ([]models.GrammarItem, error) {
	return f.grammar, nil
}

func (f *fakeStorage) CreateSession(userID int64, topics []string, questions []models.Question) (*models.Session, error) {
	for i := range questions {
		questions[i].ID = int64(i + 1)
		questions[i].SessionID = 1
	}
	f.session = &models.Session{
		ID:        1,
		UserID:    userID,
		Status:    models.SessionPending,
		Topics:    topics,
		Questions: questions,
		StartedAt: time.Now(),
	}
	return f.session, nil
}

func (f *fakeStorage) GetSession(sessionID int64) (*models.Session, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}
	return f.session, nil
}

func (f *fakeStorage) CompleteSession(session *models.Session) error {
	f.completed = session
	return nil
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateQuestions(ctx context.Context, vocab []models.VocabularyItem, grammar []models.GrammarItem) ([]models.Question, error) {
	var questions []models.Question
	for _, v := range vocab {
		questions = append(questions, models.Question{
			QuestionType:    models.QuestionTranslation,
			DifficultyLevel: v.DifficultyLevel,
			Prompt:          "Translate: " + v.Word,
			CorrectAnswer:   v.Translation,
			VocabularyIDs:   []int64{v.ID},
			TimeLimit:       floatPtr(40),
		})
	}
	for _, g := range grammar {
		questions = append(questions, models.Question{
			QuestionType:    models.QuestionFillBlank,
			DifficultyLevel: g.DifficultyLevel,
			Prompt:          "Complete using " + g.Title,
			CorrectAnswer:   g.ExampleSentence,
			GrammarIDs:      []int64{g.ID},
			TimeLimit:       floatPtr(45),
		})
	}
	return questions, nil
}

type fakeCandidateStore struct {
	vocab   []models.CandidateRow
	grammar []models.CandidateRow
}

func (f *fakeCandidateStore) QueryCandidates(userID int64, itemType models.ItemType, minDifficulty, maxDifficulty, limit int, hint analytics.OrderHint) ([]models.CandidateRow, error) {
	if itemType == models.ItemVocabulary {
		return f.vocab, nil
	}
	return f.grammar, nil
}

func (f *fakeCandidateStore) GetSessions(userID int64, windowDays int) ([]models.SessionSummary, error) {
	return nil, nil
}

type fakeAnalytics struct {
	upserts int
}

func (f *fakeAnalytics) GetAnalytics(userID, itemID int64, itemType models.ItemType) (*models.AnalyticsRecord, error) {
	return nil, nil
}

func (f *fakeAnalytics) UpsertAnalytics(r *models.AnalyticsRecord) error {
	f.upserts++
	return nil
}

func (f *fakeAnalytics) GetItemDifficulty(itemID int64, itemType models.ItemType) (int, error) {
	return 5, nil
}

func dueCandidates(itemType models.ItemType, n int) []models.CandidateRow {
	rows := make([]models.CandidateRow, n)
	for i := range rows {
		rows[i] = models.CandidateRow{
			ItemID:          int64(i + 1),
			ItemType:        itemType,
			DifficultyLevel: 5,
			RetentionScore:  0.5,
			Due:             true,
		}
	}
	return rows
}

func newTestService(storage *fakeStorage, candidates *fakeCandidateStore) (*Service, *fakeAnalytics) {
	records := &fakeAnalytics{}
	return NewService(
		storage,
		selection.NewEngine(candidates),
		mastery.NewEngine(records),
		fakeGenerator{},
	), records
}

// ── StartSession ────────────────────────────────────────

func TestStartSessionCreatesPendingSession(t *testing.T) {
	storage := &fakeStorage{
		vocab: []models.VocabularyItem{
			{ID: 1, Word: "casa", Translation: "house", Category: "home", DifficultyLevel: 4},
			{ID: 2, Word: "perro", Translation: "dog", Category: "animals", DifficultyLevel: 3},
		},
		grammar: []models.GrammarItem{
			{ID: 10, Title: "Ser vs estar", ExampleSentence: "La casa es grande.", DifficultyLevel: 5},
		},
	}
	candidates := &fakeCandidateStore{
		vocab:   dueCandidates(models.ItemVocabulary, 10),
		grammar: dueCandidates(models.ItemGrammar, 10),
	}
	service, _ := newTestService(storage, candidates)

	session, err := service.StartSession(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if session.Status != models.SessionPending {
		t.Errorf("status = %s, want pending", session.Status)
	}
	if session.UserID != 7 {
		t.Errorf("user id = %d, want 7", session.UserID)
	}
	if len(session.Questions) != 3 {
		t.Errorf("got %d questions, want 3", len(session.Questions))
	}
	hasTopic := func(topic string) bool {
		for _, tp := range session.Topics {
			if tp == topic {
				return true
			}
		}
		return false
	}
	if !hasTopic("vocabulary") || !hasTopic("grammar") {
		t.Errorf("topics = %v, want both category tags", session.Topics)
	}
	if !hasTopic("home") || !hasTopic("animals") {
		t.Errorf("topics = %v, want item categories included", session.Topics)
	}
}

func TestStartSessionNoCandidates(t *testing.T) {
	service, _ := newTestService(&fakeStorage{}, &fakeCandidateStore{})

	_, err := service.StartSession(context.Background(), 7, 10)
	if err == nil {
		t.Fatal("expected error when no learning items exist")
	}
	if !strings.Contains(err.Error(), "no learning items") {
		t.Errorf("unexpected error: %v", err)
	}
}

// ── CompleteSession ─────────────────────────────────────

func pendingSession(userID int64) *models.Session {
	return &models.Session{
		ID:        1,
		UserID:    userID,
		Status:    models.SessionPending,
		StartedAt: time.Now(),
		Questions: []models.Question{
			{ID: 1, SessionID: 1, QuestionType: models.QuestionTranslation, VocabularyIDs: []int64{101}, TimeLimit: floatPtr(40)},
			{ID: 2, SessionID: 1, QuestionType: models.QuestionTranslation, VocabularyIDs: []int64{102}, TimeLimit: floatPtr(40)},
			{ID: 3, SessionID: 1, QuestionType: models.QuestionFillBlank, GrammarIDs: []int64{201}, TimeLimit: floatPtr(45)},
			{ID: 4, SessionID: 1, QuestionType: models.QuestionFillBlank, GrammarIDs: []int64{202}, TimeLimit: floatPtr(45)},
		},
	}
}

func TestCompleteSessionOnlyOnce(t *testing.T) {
	storage := &fakeStorage{session: pendingSession(7)}
	service, _ := newTestService(storage, &fakeCandidateStore{})

	outcomes := []models.QuestionOutcome{
		{QuestionID: 1, IsCorrect: boolPtr(true), TimeSpent: floatPtr(10)},
	}

	if _, err := service.CompleteSession(7, 1, outcomes); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	_, err := service.CompleteSession(7, 1, outcomes)
	if err == nil {
		t.Fatal("expected error completing a session twice")
	}
	if !strings.Contains(err.Error(), "already completed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompleteSessionAccuracyExcludesUnanswered(t *testing.T) {
	storage := &fakeStorage{session: pendingSession(7)}
	service, _ := newTestService(storage, &fakeCandidateStore{})

	// Question 3 has a null outcome, question 4 gets none at all: only
	// the two answered questions count toward the summary.
	outcomes := []models.QuestionOutcome{
		{QuestionID: 1, IsCorrect: boolPtr(true), TimeSpent: floatPtr(10)},
		{QuestionID: 2, IsCorrect: boolPtr(false), TimeSpent: floatPtr(50)},
		{QuestionID: 3, IsCorrect: nil},
	}

	resp, err := service.CompleteSession(7, 1, outcomes)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	session := resp.Session
	if session.Status != models.SessionCompleted {
		t.Errorf("status = %s, want completed", session.Status)
	}
	if session.AccuracyRate == nil || math.Abs(*session.AccuracyRate-0.5) > 0.0001 {
		t.Errorf("accuracy = %v, want 0.5 (1 of 2 answered)", session.AccuracyRate)
	}
	if session.TotalScore == nil || *session.TotalScore != 10 {
		t.Errorf("score = %v, want 10", session.TotalScore)
	}
	if session.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if storage.completed == nil {
		t.Fatal("summary was never persisted")
	}
	// Only the answered questions feed the mastery update
	if len(resp.Adjustments) != 2 {
		t.Errorf("got %d adjustments, want 2", len(resp.Adjustments))
	}
	if session.Questions[2].IsCorrect != nil || session.Questions[3].IsCorrect != nil {
		t.Error("unanswered questions must stay unanswered")
	}
}

func TestCompleteSessionIgnoresUnknownQuestionIDs(t *testing.T) {
	storage := &fakeStorage{session: pendingSession(7)}
	service, records := newTestService(storage, &fakeCandidateStore{})

	outcomes := []models.QuestionOutcome{
		{QuestionID: 1, IsCorrect: boolPtr(true), TimeSpent: floatPtr(10)},
		{QuestionID: 999, IsCorrect: boolPtr(true), TimeSpent: floatPtr(10)},
	}

	resp, err := service.CompleteSession(7, 1, outcomes)
	if err != nil {
		t.Fatalf("stray outcome must not fail the session: %v", err)
	}
	if resp.Session.AccuracyRate == nil || *resp.Session.AccuracyRate != 1.0 {
		t.Errorf("accuracy = %v, want 1.0 from the single known question", resp.Session.AccuracyRate)
	}
	if len(resp.Adjustments) != 1 || records.upserts != 1 {
		t.Errorf("got %d adjustments and %d upserts, want 1 and 1",
			len(resp.Adjustments), records.upserts)
	}
}

func TestCompleteSessionWrongUser(t *testing.T) {
	storage := &fakeStorage{session: pendingSession(7)}
	service, _ := newTestService(storage, &fakeCandidateStore{})

	_, err := service.CompleteSession(8, 1, []models.QuestionOutcome{
		{QuestionID: 1, IsCorrect: boolPtr(true)},
	})
	if err == nil {
		t.Fatal("expected error for another user's session")
	}
	if !strings.Contains(err.Error(), "does not belong") {
		t.Errorf("unexpected error: %v", err)
	}
}

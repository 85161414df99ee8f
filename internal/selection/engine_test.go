package selection

import (
	"math"
	"testing"
	"time"

	"github.com/lingua-prep/backend/internal/analytics"
	"github.com/lingua-prep/backend/internal/models"
)

type fakeStore struct {
	vocab    []models.CandidateRow
	grammar  []models.CandidateRow
	sessions []models.SessionSummary

	gotLimit int
	gotHint  analytics.OrderHint
}

func (f *fakeStore) QueryCandidates(userID int64, itemType models.ItemType, minDifficulty, maxDifficulty, limit int, hint analytics.OrderHint) ([]models.CandidateRow, error) {
	f.gotLimit = limit
	f.gotHint = hint
	rows := f.grammar
	if itemType == models.ItemVocabulary {
		rows = f.vocab
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.CandidateRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (f *fakeStore) GetSessions(userID int64, windowDays int) ([]models.SessionSummary, error) {
	return f.sessions, nil
}

func candidates(itemType models.ItemType, n int) []models.CandidateRow {
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

func topicSession(topic string, accuracy float64, daysAgo int) models.SessionSummary {
	completed := time.Now().AddDate(0, 0, -daysAgo)
	return models.SessionSummary{
		Topics:        []string{topic},
		AccuracyRate:  accuracy,
		QuestionCount: 10,
		StartedAt:     completed.Add(-15 * time.Minute),
		CompletedAt:   completed,
	}
}

func TestMixRatioNoHistory(t *testing.T) {
	got := MixRatio(nil)
	if math.Abs(got-0.6) > 0.0001 {
		t.Errorf("MixRatio(nil) = %f, want 0.6", got)
	}
}

func TestMixRatioBalanced(t *testing.T) {
	sessions := []models.SessionSummary{
		topicSession("vocabulary", 0.5, 1),
		topicSession("grammar", 0.5, 2),
	}
	got := MixRatio(sessions)
	if math.Abs(got-0.5) > 0.0001 {
		t.Errorf("MixRatio(balanced) = %f, want 0.5", got)
	}
}

func TestMixRatioFavorsWeakCategory(t *testing.T) {
	// Strong vocabulary, weak grammar: grammar should get more exposure,
	// so the vocabulary share drops toward its floor.
	sessions := []models.SessionSummary{
		topicSession("vocabulary", 0.9, 1),
		topicSession("grammar", 0.3, 2),
	}
	got := MixRatio(sessions)
	if got != 0.3 {
		t.Errorf("MixRatio(strong vocab, weak grammar) = %f, want floor 0.3", got)
	}

	// Mirror image hits the ceiling.
	sessions = []models.SessionSummary{
		topicSession("vocabulary", 0.3, 1),
		topicSession("grammar", 0.9, 2),
	}
	got = MixRatio(sessions)
	if got != 0.7 {
		t.Errorf("MixRatio(weak vocab, strong grammar) = %f, want ceiling 0.7", got)
	}
}

func TestMixRatioMildImbalance(t *testing.T) {
	// vocab 0.6, grammar 0.4: raw shares 0.2 vs 0.3 → vocab ratio 0.4
	sessions := []models.SessionSummary{
		topicSession("vocabulary", 0.6, 1),
		topicSession("grammar", 0.4, 2),
	}
	got := MixRatio(sessions)
	if math.Abs(got-0.4) > 0.0001 {
		t.Errorf("MixRatio(mild imbalance) = %f, want 0.4", got)
	}
}

func TestUrgencyScore(t *testing.T) {
	// Never-reviewed vocabulary item:
	// 0.4x1 + 0.3x0.5 + 0.2x1 + 0.1x1 = 0.85
	c := models.CandidateRow{
		ItemType:       models.ItemVocabulary,
		RetentionScore: 0.5,
	}
	got := UrgencyScore(c)
	if math.Abs(got-0.85) > 0.0001 {
		t.Errorf("UrgencyScore(new vocab) = %f, want 0.85", got)
	}

	// Fully mastered item has only the residual exposure term
	mastered := models.CandidateRow{
		ItemType:        models.ItemVocabulary,
		MasteryScore:    1,
		RetentionScore:  1,
		ConfidenceLevel: 100,
		ExposureCount:   9,
	}
	got = UrgencyScore(mastered)
	if math.Abs(got-0.01) > 0.0001 {
		t.Errorf("UrgencyScore(mastered) = %f, want 0.01", got)
	}

	// Grammar weighs confidence more heavily than vocabulary
	low := models.CandidateRow{ItemType: models.ItemVocabulary, RetentionScore: 1, MasteryScore: 1, ExposureCount: 9}
	lowG := low
	lowG.ItemType = models.ItemGrammar
	if UrgencyScore(lowG) <= UrgencyScore(low) {
		t.Errorf("grammar confidence deficit should outscore vocabulary's")
	}
}

func TestRankOrdering(t *testing.T) {
	rows := []models.CandidateRow{
		{ItemID: 1, ItemType: models.ItemVocabulary, DifficultyLevel: 5, MasteryScore: 0.9, RetentionScore: 0.9, ConfidenceLevel: 90, ExposureCount: 10, Due: false},
		{ItemID: 2, ItemType: models.ItemVocabulary, DifficultyLevel: 5, MasteryScore: 0.1, RetentionScore: 0.2, ConfidenceLevel: 10, ExposureCount: 1, Due: true},
		{ItemID: 3, ItemType: models.ItemVocabulary, DifficultyLevel: 5, MasteryScore: 0.8, RetentionScore: 0.8, ConfidenceLevel: 80, ExposureCount: 8, Due: true},
	}

	Rank(rows)

	// Due items come before non-due regardless of urgency; among due
	// items the weaker one ranks first.
	if rows[0].ItemID != 2 || rows[1].ItemID != 3 || rows[2].ItemID != 1 {
		t.Errorf("Rank order = %d, %d, %d; want 2, 3, 1",
			rows[0].ItemID, rows[1].ItemID, rows[2].ItemID)
	}
}

func TestRankTieBreaks(t *testing.T) {
	// Identical urgency: staler item wins; then easier difficulty.
	rows := []models.CandidateRow{
		{ItemID: 1, ItemType: models.ItemVocabulary, DifficultyLevel: 7, RetentionScore: 0.5, SecondsSinceReview: 100, Due: true},
		{ItemID: 2, ItemType: models.ItemVocabulary, DifficultyLevel: 7, RetentionScore: 0.5, SecondsSinceReview: 5000, Due: true},
		{ItemID: 3, ItemType: models.ItemVocabulary, DifficultyLevel: 4, RetentionScore: 0.5, SecondsSinceReview: 100, Due: true},
	}

	Rank(rows)

	if rows[0].ItemID != 2 {
		t.Errorf("staler item should rank first, got %d", rows[0].ItemID)
	}
	if rows[1].ItemID != 3 || rows[2].ItemID != 1 {
		t.Errorf("easier item should win the final tie-break, got %d then %d",
			rows[1].ItemID, rows[2].ItemID)
	}
}

func TestSelectItemsDefaultSplit(t *testing.T) {
	// No session history: 10 questions split 6 vocabulary / 4 grammar.
	store := &fakeStore{
		vocab:   candidates(models.ItemVocabulary, 30),
		grammar: candidates(models.ItemGrammar, 30),
	}
	engine := NewEngine(store)

	result, err := engine.SelectItems(1, 10)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if len(result.VocabularyIDs) != 6 {
		t.Errorf("got %d vocabulary items, want 6", len(result.VocabularyIDs))
	}
	if len(result.GrammarIDs) != 4 {
		t.Errorf("got %d grammar items, want 4", len(result.GrammarIDs))
	}
}

func TestSelectItemsBackfill(t *testing.T) {
	// Only 2 vocabulary candidates exist: grammar fills the gap so the
	// session still reaches the target count.
	store := &fakeStore{
		vocab:   candidates(models.ItemVocabulary, 2),
		grammar: candidates(models.ItemGrammar, 30),
	}
	engine := NewEngine(store)

	result, err := engine.SelectItems(1, 10)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if result.Count() != 10 {
		t.Errorf("got %d items, want 10", result.Count())
	}
	if len(result.VocabularyIDs) != 2 {
		t.Errorf("got %d vocabulary items, want 2", len(result.VocabularyIDs))
	}
	if len(result.GrammarIDs) != 8 {
		t.Errorf("got %d grammar items, want 8", len(result.GrammarIDs))
	}
}

func TestSelectItemsBothCategoriesShort(t *testing.T) {
	store := &fakeStore{
		vocab:   candidates(models.ItemVocabulary, 3),
		grammar: candidates(models.ItemGrammar, 2),
	}
	engine := NewEngine(store)

	result, err := engine.SelectItems(1, 10)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if result.Count() != 5 {
		t.Errorf("got %d items, want everything available (5)", result.Count())
	}
}

func TestSelectItemsOverfetchesDueFirst(t *testing.T) {
	// The store is asked for three times the target per category, due
	// rows first, so the exact in-process ranking has a wide window.
	store := &fakeStore{
		vocab:   candidates(models.ItemVocabulary, 50),
		grammar: candidates(models.ItemGrammar, 50),
	}
	engine := NewEngine(store)

	if _, err := engine.SelectItems(1, 10); err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if store.gotLimit != 30 {
		t.Errorf("candidate limit = %d, want 30", store.gotLimit)
	}
	if store.gotHint != analytics.OrderDueFirst {
		t.Errorf("order hint = %s, want %s", store.gotHint, analytics.OrderDueFirst)
	}
}

func TestSelectItemsReordersWithinFetchedWindow(t *testing.T) {
	// The store's coarse ordering may put the most urgent row last in
	// the fetched window; the weighted ranking must still surface it.
	rows := candidates(models.ItemVocabulary, 6)
	for i := range rows {
		rows[i].MasteryScore = 0.9
		rows[i].ConfidenceLevel = 90
	}
	urgent := models.CandidateRow{
		ItemID:          99,
		ItemType:        models.ItemVocabulary,
		DifficultyLevel: 5,
		RetentionScore:  0.5,
		Due:             true,
	}
	store := &fakeStore{
		vocab:   append(rows, urgent),
		grammar: candidates(models.ItemGrammar, 10),
	}
	engine := NewEngine(store)

	result, err := engine.SelectItems(1, 5)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if len(result.VocabularyIDs) == 0 || result.VocabularyIDs[0] != 99 {
		t.Errorf("vocabulary ids = %v, want the untouched item 99 first", result.VocabularyIDs)
	}
}

func TestSelectItemsZeroTarget(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store)

	result, err := engine.SelectItems(1, 0)
	if err != nil {
		t.Fatalf("SelectItems: %v", err)
	}
	if result.Count() != 0 {
		t.Errorf("got %d items, want 0", result.Count())
	}
}

package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lingua-prep/backend/internal/models"
)

type generatedQuestion struct {
	QuestionType    string   `json:"question_type"`
	Prompt          string   `json:"prompt"`
	Options         []string `json:"options"`
	CorrectAnswer   string   `json:"correct_answer"`
	VocabularyIDs   []int64  `json:"vocabulary_ids"`
	GrammarIDs      []int64  `json:"grammar_ids"`
	DifficultyLevel int      `json:"difficulty_level"`
	TimeLimit       float64  `json:"time_limit"`
}

// ParseQuestions decodes and validates an LLM response against the items
// that were offered. Questions referencing unknown ids are rejected
// wholesale — a bad batch falls back to templates rather than letting
// invented ids leak into analytics.
func ParseQuestions(responseBody string, vocab []models.VocabularyItem, grammar []models.GrammarItem) ([]models.Question, error) {
	cleaned := stripCodeFences(responseBody)

	var raw []generatedQuestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("response contained no questions")
	}

	vocabIDs := make(map[int64]bool, len(vocab))
	for _, v := range vocab {
		vocabIDs[v.ID] = true
	}
	grammarIDs := make(map[int64]bool, len(grammar))
	for _, g := range grammar {
		grammarIDs[g.ID] = true
	}

	questions := make([]models.Question, 0, len(raw))
	for i, q := range raw {
		qt := models.QuestionType(q.QuestionType)
		if !models.ValidQuestionTypes[qt] {
			return nil, fmt.Errorf("question %d: invalid question_type %q", i+1, q.QuestionType)
		}
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("question %d: empty prompt", i+1)
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, fmt.Errorf("question %d: empty correct_answer", i+1)
		}
		if len(q.VocabularyIDs) == 0 && len(q.GrammarIDs) == 0 {
			return nil, fmt.Errorf("question %d: references no items", i+1)
		}
		for _, id := range q.VocabularyIDs {
			if !vocabIDs[id] {
				return nil, fmt.Errorf("question %d: unknown vocabulary id %d", i+1, id)
			}
		}
		for _, id := range q.GrammarIDs {
			if !grammarIDs[id] {
				return nil, fmt.Errorf("question %d: unknown grammar id %d", i+1, id)
			}
		}
		if qt == models.QuestionMultipleChoice && len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d: multiple_choice needs options", i+1)
		}

		level := q.DifficultyLevel
		if level < 1 || level > 10 {
			level = 5
		}
		limit := q.TimeLimit
		if limit <= 0 {
			limit = DefaultTimeLimit(qt)
		}

		questions = append(questions, models.Question{
			Position:        i,
			QuestionType:    qt,
			DifficultyLevel: level,
			Prompt:          q.Prompt,
			Options:         q.Options,
			CorrectAnswer:   q.CorrectAnswer,
			VocabularyIDs:   q.VocabularyIDs,
			GrammarIDs:      q.GrammarIDs,
			TimeLimit:       &limit,
		})
	}

	return questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

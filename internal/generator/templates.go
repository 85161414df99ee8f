package generator

import (
	"fmt"

	"github.com/lingua-prep/backend/internal/models"
)

var defaultTimeLimits = map[models.QuestionType]float64{
	models.QuestionMultipleChoice: 30,
	models.QuestionFillBlank:      45,
	models.QuestionTranslation:    40,
	models.QuestionTransformation: 60,
	models.QuestionSentencePuzzle: 75,
}

// DefaultTimeLimit returns the suggested answering time in seconds.
func DefaultTimeLimit(t models.QuestionType) float64 {
	if limit, ok := defaultTimeLimits[t]; ok {
		return limit
	}
	return 45
}

// TemplateQuestions builds deterministic questions straight from item
// content. Used in mock mode and whenever the LLM is unavailable, so a
// provider outage never blocks a study session.
func TemplateQuestions(vocab []models.VocabularyItem, grammar []models.GrammarItem) []models.Question {
	questions := make([]models.Question, 0, len(vocab)+len(grammar))

	for i, v := range vocab {
		q := models.Question{
			Position:        len(questions),
			DifficultyLevel: v.DifficultyLevel,
			VocabularyIDs:   []int64{v.ID},
			CorrectAnswer:   v.Translation,
		}
		// Alternate between a plain translation prompt and multiple
		// choice when enough distractors exist.
		if len(vocab) >= 4 && i%2 == 0 {
			q.QuestionType = models.QuestionMultipleChoice
			q.Prompt = fmt.Sprintf("Which is the correct translation of %q?", v.Word)
			q.Options = distractorOptions(vocab, i)
		} else {
			q.QuestionType = models.QuestionTranslation
			q.Prompt = fmt.Sprintf("Translate: %q", v.Word)
		}
		limit := DefaultTimeLimit(q.QuestionType)
		q.TimeLimit = &limit
		questions = append(questions, q)
	}

	for i, g := range grammar {
		q := models.Question{
			Position:        len(questions),
			DifficultyLevel: g.DifficultyLevel,
			GrammarIDs:      []int64{g.ID},
			CorrectAnswer:   g.ExampleSentence,
		}
		if i%2 == 0 && g.ExampleSentence != "" {
			q.QuestionType = models.QuestionTransformation
			q.Prompt = fmt.Sprintf("Apply the rule %q: rewrite a sentence of your own following the example %q.",
				g.Title, g.ExampleSentence)
		} else {
			q.QuestionType = models.QuestionFillBlank
			q.Prompt = fmt.Sprintf("Complete the sentence using the rule %q.", g.Title)
		}
		limit := DefaultTimeLimit(q.QuestionType)
		q.TimeLimit = &limit
		questions = append(questions, q)
	}

	return questions
}

// distractorOptions returns the item's translation plus up to three
// translations of other items, correct answer first. The UI shuffles.
func distractorOptions(vocab []models.VocabularyItem, idx int) []string {
	options := []string{vocab[idx].Translation}
	for offset := 1; offset < len(vocab) && len(options) < 4; offset++ {
		other := vocab[(idx+offset)%len(vocab)]
		if other.Translation != vocab[idx].Translation {
			options = append(options, other.Translation)
		}
	}
	return options
}

package generator

import (
	"fmt"
	"strings"

	"github.com/lingua-prep/backend/internal/models"
)

func SystemPrompt() string {
	return `You are a language-learning content writer. You produce practice
questions for vocabulary words and grammar rules.

Respond ONLY with a JSON array. Each element must have:
  "question_type":    one of "multiple_choice", "fill_blank", "translation",
                      "transformation", "sentence_puzzle"
  "prompt":           the question text shown to the learner
  "options":          array of answer choices (multiple_choice only, 4 choices)
  "correct_answer":   the expected answer
  "vocabulary_ids":   array of vocabulary item ids the question exercises
  "grammar_ids":      array of grammar item ids the question exercises
  "difficulty_level": integer 1-10 matching the item's difficulty
  "time_limit":       suggested seconds to answer

Rules:
- Produce exactly one question per listed item.
- Vocabulary questions use multiple_choice, fill_blank, or translation.
- Grammar questions use fill_blank, transformation, or sentence_puzzle.
- Reference only the ids given. Never invent ids.
- No markdown, no commentary, JSON only.`
}

func BuildUserPrompt(vocab []models.VocabularyItem, grammar []models.GrammarItem) string {
	var b strings.Builder

	if len(vocab) > 0 {
		b.WriteString("Vocabulary items:\n")
		for _, v := range vocab {
			fmt.Fprintf(&b, "- id=%d word=%q translation=%q part_of_speech=%q difficulty=%d\n",
				v.ID, v.Word, v.Translation, v.PartOfSpeech, v.DifficultyLevel)
		}
		b.WriteString("\n")
	}

	if len(grammar) > 0 {
		b.WriteString("Grammar items:\n")
		for _, g := range grammar {
			fmt.Fprintf(&b, "- id=%d title=%q example=%q difficulty=%d\n",
				g.ID, g.Title, g.ExampleSentence, g.DifficultyLevel)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Write %d questions, one per item.", len(vocab)+len(grammar))
	return b.String()
}

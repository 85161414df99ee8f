package models

import "time"

type ItemType string

const (
	ItemVocabulary ItemType = "vocabulary"
	ItemGrammar    ItemType = "grammar"
)

var ValidItemTypes = map[ItemType]bool{
	ItemVocabulary: true,
	ItemGrammar:    true,
}

// VocabularyItem is an immutable content record created by authoring flows.
// The scheduler reads it but never mutates it.
type VocabularyItem struct {
	ID              int64     `json:"id"`
	Word            string    `json:"word"`
	Translation     string    `json:"translation"`
	PartOfSpeech    string    `json:"part_of_speech"`
	ExampleSentence string    `json:"example_sentence,omitempty"`
	DifficultyLevel int       `json:"difficulty_level"`
	FrequencyRank   int       `json:"frequency_rank"`
	Category        string    `json:"category"`
	Tags            []string  `json:"tags,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type GrammarItem struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Explanation     string    `json:"explanation"`
	ExampleSentence string    `json:"example_sentence,omitempty"`
	DifficultyLevel int       `json:"difficulty_level"`
	FrequencyRank   int       `json:"frequency_rank"`
	Category        string    `json:"category"`
	Tags            []string  `json:"tags,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

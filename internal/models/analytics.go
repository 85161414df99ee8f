package models

import (
	"errors"
	"time"
)

// ErrItemNotFound is returned when a referenced learning item has no
// content record (e.g. it was deleted after a session was created).
var ErrItemNotFound = errors.New("learning item not found")

// AnalyticsRecord tracks one learner's progress on one learning item.
// Created lazily on first review; 1:1 with its item per learner.
type AnalyticsRecord struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	ItemID          int64      `json:"item_id"`
	ItemType        ItemType   `json:"item_type"`
	MasteryScore    float64    `json:"mastery_score"`    // [0,1]
	RetentionScore  float64    `json:"retention_score"`  // [0,1]
	ConfidenceLevel float64    `json:"confidence_level"` // [0,100]
	SuccessCount    int        `json:"success_count"`
	FailureCount    int        `json:"failure_count"`
	ExposureCount   int        `json:"exposure_count"`
	LastReviewed    *time.Time `json:"last_reviewed,omitempty"`
	NextReviewDate  *time.Time `json:"next_review_date,omitempty"`
}

// NewAnalyticsRecord returns the record state for a never-reviewed item:
// no mastery, neutral retention, no confidence, maximally due.
func NewAnalyticsRecord(userID, itemID int64, itemType ItemType) *AnalyticsRecord {
	return &AnalyticsRecord{
		UserID:         userID,
		ItemID:         itemID,
		ItemType:       itemType,
		MasteryScore:   0,
		RetentionScore: 0.5,
	}
}

// Due reports whether the item should be offered for review at t.
func (r *AnalyticsRecord) Due(t time.Time) bool {
	return r.NextReviewDate == nil || !r.NextReviewDate.After(t)
}

// ClampScore bounds a mastery or retention score to [0,1].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampConfidence bounds a confidence level to [0,100].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MasteryAdjustment is the computed delta for one item arising from one
// answered question. It is applied to the AnalyticsRecord and returned to
// callers; it is never persisted as its own entity.
type MasteryAdjustment struct {
	ItemID         int64     `json:"item_id"`
	ItemType       ItemType  `json:"item_type"`
	MasteryChange  float64   `json:"mastery_change"`
	NewMastery     float64   `json:"new_mastery"`
	NewRetention   float64   `json:"new_retention"`
	NewConfidence  float64   `json:"new_confidence"`
	IntervalDays   int       `json:"interval_days"`
	NextReviewDate time.Time `json:"next_review_date"`
}

// CandidateRow carries the joined item + analytics fields the selection
// ranking needs. Items with no analytics record come back with the
// never-reviewed defaults and Due set.
type CandidateRow struct {
	ItemID             int64
	ItemType           ItemType
	DifficultyLevel    int
	FrequencyRank      int
	MasteryScore       float64
	RetentionScore     float64
	ConfidenceLevel    float64
	SuccessCount       int
	FailureCount       int
	ExposureCount      int
	SecondsSinceReview float64
	Due                bool
}

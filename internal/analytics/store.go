package analytics

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/lingua-prep/backend/internal/models"
)

// OrderHint selects the candidate ordering the store applies before the
// in-process ranking pass.
type OrderHint string

const (
	OrderDueFirst   OrderHint = "due_first"
	OrderStaleFirst OrderHint = "stale_first"
)

// Store is the durable accessor for per-item analytics records and the
// aggregate session statistics the engines consume. It holds no ranking
// or scheduling logic.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Analytics Records ───────────────────────────────────

// GetAnalytics returns the record for (user, item), or nil when the item
// has never been reviewed.
func (s *Store) GetAnalytics(userID, itemID int64, itemType models.ItemType) (*models.AnalyticsRecord, error) {
	var r models.AnalyticsRecord
	err := s.db.QueryRow(
		`SELECT id, user_id, item_id, item_type, mastery_score, retention_score,
		        confidence_level, success_count, failure_count, exposure_count,
		        last_reviewed, next_review_date
		 FROM item_analytics
		 WHERE user_id = $1 AND item_id = $2 AND item_type = $3`,
		userID, itemID, itemType,
	).Scan(&r.ID, &r.UserID, &r.ItemID, &r.ItemType, &r.MasteryScore, &r.RetentionScore,
		&r.ConfidenceLevel, &r.SuccessCount, &r.FailureCount, &r.ExposureCount,
		&r.LastReviewed, &r.NextReviewDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analytics: %w", err)
	}
	return &r, nil
}

// UpsertAnalytics creates the record if absent, else overwrites all
// mutable fields.
func (s *Store) UpsertAnalytics(r *models.AnalyticsRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO item_analytics
		   (user_id, item_id, item_type, mastery_score, retention_score,
		    confidence_level, success_count, failure_count, exposure_count,
		    last_reviewed, next_review_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, item_id, item_type) DO UPDATE SET
		   mastery_score = EXCLUDED.mastery_score,
		   retention_score = EXCLUDED.retention_score,
		   confidence_level = EXCLUDED.confidence_level,
		   success_count = EXCLUDED.success_count,
		   failure_count = EXCLUDED.failure_count,
		   exposure_count = EXCLUDED.exposure_count,
		   last_reviewed = EXCLUDED.last_reviewed,
		   next_review_date = EXCLUDED.next_review_date`,
		r.UserID, r.ItemID, r.ItemType, r.MasteryScore, r.RetentionScore,
		r.ConfidenceLevel, r.SuccessCount, r.FailureCount, r.ExposureCount,
		r.LastReviewed, r.NextReviewDate,
	)
	if err != nil {
		return fmt.Errorf("upsert analytics: %w", err)
	}
	return nil
}

// ── Candidate Queries ───────────────────────────────────

func itemTable(itemType models.ItemType) (string, error) {
	switch itemType {
	case models.ItemVocabulary:
		return "vocabulary_items", nil
	case models.ItemGrammar:
		return "grammar_items", nil
	default:
		return "", fmt.Errorf("unknown item type %q", itemType)
	}
}

// QueryCandidates returns items in the difficulty window joined with their
// analytics. Items with no analytics record come back with the
// never-reviewed defaults (mastery 0, retention 0.5, confidence 0) and
// are due by definition.
func (s *Store) QueryCandidates(userID int64, itemType models.ItemType, minDifficulty, maxDifficulty, limit int, hint OrderHint) ([]models.CandidateRow, error) {
	table, err := itemTable(itemType)
	if err != nil {
		return nil, err
	}

	// Due rows first, then by aggregate score deficit so the most
	// urgent candidates survive the LIMIT even when far more items are
	// due than the caller fetches. The caller applies its exact
	// per-type weighting in process.
	order := `due DESC,
	          (COALESCE(a.mastery_score, 0) + COALESCE(a.retention_score, 0.5) + COALESCE(a.confidence_level, 0) / 100) ASC,
	          seconds_since_review DESC`
	if hint == OrderStaleFirst {
		order = `seconds_since_review DESC`
	}

	query := fmt.Sprintf(
		`SELECT i.id, i.difficulty_level, i.frequency_rank,
		        COALESCE(a.mastery_score, 0) AS mastery_score,
		        COALESCE(a.retention_score, 0.5) AS retention_score,
		        COALESCE(a.confidence_level, 0) AS confidence_level,
		        COALESCE(a.success_count, 0) AS success_count,
		        COALESCE(a.failure_count, 0) AS failure_count,
		        COALESCE(a.exposure_count, 0) AS exposure_count,
		        EXTRACT(EPOCH FROM (NOW() - COALESCE(a.last_reviewed, i.created_at))) AS seconds_since_review,
		        (a.next_review_date IS NULL OR a.next_review_date <= NOW()) AS due
		 FROM %s i
		 LEFT JOIN item_analytics a
		   ON a.item_id = i.id AND a.item_type = $1 AND a.user_id = $2
		 WHERE i.difficulty_level BETWEEN $3 AND $4
		 ORDER BY %s
		 LIMIT $5`, table, order)

	rows, err := s.db.Query(query, itemType, userID, minDifficulty, maxDifficulty, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.CandidateRow
	for rows.Next() {
		c := models.CandidateRow{ItemType: itemType}
		if err := rows.Scan(&c.ItemID, &c.DifficultyLevel, &c.FrequencyRank,
			&c.MasteryScore, &c.RetentionScore, &c.ConfidenceLevel,
			&c.SuccessCount, &c.FailureCount, &c.ExposureCount,
			&c.SecondsSinceReview, &c.Due); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// GetItemDifficulty resolves the difficulty level of a content item.
// Returns models.ErrItemNotFound when the item no longer exists.
func (s *Store) GetItemDifficulty(itemID int64, itemType models.ItemType) (int, error) {
	table, err := itemTable(itemType)
	if err != nil {
		return 0, err
	}

	var level int
	err = s.db.QueryRow(
		fmt.Sprintf(`SELECT difficulty_level FROM %s WHERE id = $1`, table),
		itemID,
	).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get item difficulty: %w", err)
	}
	return level, nil
}

// ── Session Summaries & Aggregates ──────────────────────

// GetSessions returns completed sessions within the window, newest first.
func (s *Store) GetSessions(userID int64, windowDays int) ([]models.SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.topics, COALESCE(s.accuracy_rate, 0), COALESCE(s.total_score, 0),
		        (SELECT COUNT(*) FROM session_questions q WHERE q.session_id = s.id),
		        s.started_at, s.completed_at
		 FROM sessions s
		 WHERE s.user_id = $1 AND s.status = 'completed'
		   AND s.completed_at >= NOW() - make_interval(days => $2)
		 ORDER BY s.completed_at DESC`,
		userID, windowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		if err := rows.Scan(&sum.ID, pq.Array(&sum.Topics), &sum.AccuracyRate,
			&sum.TotalScore, &sum.QuestionCount, &sum.StartedAt, &sum.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}
	return sessions, rows.Err()
}

// QuestionTypeAccuracy aggregates answered questions by type over the window.
func (s *Store) QuestionTypeAccuracy(userID int64, windowDays int) ([]models.TypeAccuracy, error) {
	rows, err := s.db.Query(
		`SELECT q.question_type, COUNT(*), COUNT(*) FILTER (WHERE q.is_correct)
		 FROM session_questions q
		 JOIN sessions s ON s.id = q.session_id
		 WHERE s.user_id = $1 AND s.status = 'completed' AND q.is_correct IS NOT NULL
		   AND s.completed_at >= NOW() - make_interval(days => $2)
		 GROUP BY q.question_type`,
		userID, windowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("question type accuracy: %w", err)
	}
	defer rows.Close()

	var stats []models.TypeAccuracy
	for rows.Next() {
		var t models.TypeAccuracy
		if err := rows.Scan(&t.QuestionType, &t.Answered, &t.Correct); err != nil {
			return nil, fmt.Errorf("scan type accuracy: %w", err)
		}
		if t.Answered > 0 {
			t.Accuracy = float64(t.Correct) / float64(t.Answered)
		}
		stats = append(stats, t)
	}
	return stats, rows.Err()
}

// DifficultyAccuracy aggregates answered questions by difficulty level.
func (s *Store) DifficultyAccuracy(userID int64, windowDays int) ([]models.LevelAccuracy, error) {
	rows, err := s.db.Query(
		`SELECT q.difficulty_level, COUNT(*), COUNT(*) FILTER (WHERE q.is_correct)
		 FROM session_questions q
		 JOIN sessions s ON s.id = q.session_id
		 WHERE s.user_id = $1 AND s.status = 'completed' AND q.is_correct IS NOT NULL
		   AND s.completed_at >= NOW() - make_interval(days => $2)
		 GROUP BY q.difficulty_level
		 ORDER BY q.difficulty_level`,
		userID, windowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("difficulty accuracy: %w", err)
	}
	defer rows.Close()

	var stats []models.LevelAccuracy
	for rows.Next() {
		var l models.LevelAccuracy
		if err := rows.Scan(&l.DifficultyLevel, &l.Answered, &l.Correct); err != nil {
			return nil, fmt.Errorf("scan level accuracy: %w", err)
		}
		if l.Answered > 0 {
			l.Accuracy = float64(l.Correct) / float64(l.Answered)
		}
		stats = append(stats, l)
	}
	return stats, rows.Err()
}

// ── Recommendation Cache ────────────────────────────────

// SaveRecommendations replaces the cached recommendation set for a user.
func (s *Store) SaveRecommendations(userID int64, recs []models.Recommendation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM user_recommendations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}

	for _, r := range recs {
		_, err := tx.Exec(
			`INSERT INTO user_recommendations
			   (user_id, rec_type, title, description, priority, action_items,
			    estimated_impact, confidence)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			userID, r.Type, r.Title, r.Description, r.Priority,
			pq.Array(r.ActionItems), r.EstimatedImpact, r.Confidence,
		)
		if err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}

	return tx.Commit()
}

// CachedRecommendations returns the last persisted recommendation set.
func (s *Store) CachedRecommendations(userID int64) ([]models.Recommendation, error) {
	rows, err := s.db.Query(
		`SELECT rec_type, title, description, priority, action_items,
		        estimated_impact, confidence
		 FROM user_recommendations
		 WHERE user_id = $1
		 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("cached recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var r models.Recommendation
		if err := rows.Scan(&r.Type, &r.Title, &r.Description, &r.Priority,
			pq.Array(&r.ActionItems), &r.EstimatedImpact, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ActiveUserIDs lists users who completed a session in the last N days.
// Used by the recommendation refresh worker.
func (s *Store) ActiveUserIDs(sinceDays int) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT user_id FROM sessions
		 WHERE status = 'completed'
		   AND completed_at >= NOW() - make_interval(days => $1)`,
		sinceDays,
	)
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

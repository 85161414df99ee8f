package sessions

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/lingua-prep/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Item Content ────────────────────────────────────────

func (s *Store) GetVocabularyItems(ids []int64) ([]models.VocabularyItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, word, translation, COALESCE(part_of_speech, ''),
		        COALESCE(example_sentence, ''), difficulty_level, frequency_rank,
		        category, tags, created_at
		 FROM vocabulary_items WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("get vocabulary items: %w", err)
	}
	defer rows.Close()

	var items []models.VocabularyItem
	for rows.Next() {
		var v models.VocabularyItem
		if err := rows.Scan(&v.ID, &v.Word, &v.Translation, &v.PartOfSpeech,
			&v.ExampleSentence, &v.DifficultyLevel, &v.FrequencyRank,
			&v.Category, pq.Array(&v.Tags), &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vocabulary item: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (s *Store) GetGrammarItems(ids []int64) ([]models.GrammarItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, title, explanation, COALESCE(example_sentence, ''),
		        difficulty_level, frequency_rank, category, tags, created_at
		 FROM grammar_items WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("get grammar items: %w", err)
	}
	defer rows.Close()

	var items []models.GrammarItem
	for rows.Next() {
		var g models.GrammarItem
		if err := rows.Scan(&g.ID, &g.Title, &g.Explanation, &g.ExampleSentence,
			&g.DifficultyLevel, &g.FrequencyRank, &g.Category,
			pq.Array(&g.Tags), &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grammar item: %w", err)
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// ── Session Lifecycle ───────────────────────────────────

// CreateSession persists a pending session and its questions atomically.
func (s *Store) CreateSession(userID int64, topics []string, questions []models.Question) (*models.Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	session := &models.Session{
		UserID: userID,
		Status: models.SessionPending,
		Topics: topics,
	}
	err = tx.QueryRow(
		`INSERT INTO sessions (user_id, status, topics)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		userID, models.SessionPending, pq.Array(topics),
	).Scan(&session.ID, &session.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		q.SessionID = session.ID
		q.Position = i
		err := tx.QueryRow(
			`INSERT INTO session_questions
			   (session_id, position, question_type, difficulty_level, prompt,
			    options, correct_answer, vocabulary_ids, grammar_ids, time_limit)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			session.ID, q.Position, q.QuestionType, q.DifficultyLevel, q.Prompt,
			pq.Array(q.Options), q.CorrectAnswer,
			pq.Array(q.VocabularyIDs), pq.Array(q.GrammarIDs), q.TimeLimit,
		).Scan(&q.ID)
		if err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}

	session.Questions = questions
	return session, nil
}

// GetSession loads a session and its questions in order.
func (s *Store) GetSession(sessionID int64) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRow(
		`SELECT id, user_id, status, topics, accuracy_rate, total_score,
		        started_at, completed_at
		 FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&session.ID, &session.UserID, &session.Status, pq.Array(&session.Topics),
		&session.AccuracyRate, &session.TotalScore, &session.StartedAt, &session.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, position, question_type, difficulty_level, prompt,
		        options, correct_answer, vocabulary_ids, grammar_ids,
		        time_limit, is_correct, time_spent
		 FROM session_questions
		 WHERE session_id = $1
		 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get session questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Position, &q.QuestionType,
			&q.DifficultyLevel, &q.Prompt, pq.Array(&q.Options), &q.CorrectAnswer,
			pq.Array(&q.VocabularyIDs), pq.Array(&q.GrammarIDs),
			&q.TimeLimit, &q.IsCorrect, &q.TimeSpent); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		session.Questions = append(session.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSession writes outcomes and the session summary atomically.
func (s *Store) CompleteSession(session *models.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range session.Questions {
		_, err := tx.Exec(
			`UPDATE session_questions SET is_correct = $1, time_spent = $2 WHERE id = $3`,
			q.IsCorrect, q.TimeSpent, q.ID,
		)
		if err != nil {
			return fmt.Errorf("update question %d: %w", q.ID, err)
		}
	}

	_, err = tx.Exec(
		`UPDATE sessions
		 SET status = $1, accuracy_rate = $2, total_score = $3, completed_at = $4
		 WHERE id = $5`,
		session.Status, session.AccuracyRate, session.TotalScore,
		session.CompletedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	return tx.Commit()
}

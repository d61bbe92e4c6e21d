package store

import (
	"database/sql"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

// InsertExercises stores a batch of generated exercises in one
// transaction and returns their assigned IDs in order.
func (s *Store) InsertExercises(exercises []model.Exercise) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	ids := make([]int64, 0, len(exercises))
	for _, ex := range exercises {
		res, err := tx.Exec(
			`INSERT INTO exercises (session_id, assignment_id, user_id, type, topic, difficulty, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ex.SessionID, ex.AssignmentID, ex.UserID, ex.Type, ex.Topic, ex.Difficulty, string(ex.Payload), now,
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, tx.Commit()
}

const exerciseColumns = `id, session_id, assignment_id, user_id, type, topic, difficulty, payload, user_answer, is_correct, score, feedback, created_at`

// GetExercise returns an exercise by ID, or nil if not found.
func (s *Store) GetExercise(id int64) (*model.Exercise, error) {
	ex, err := scanExercise(s.db.QueryRow(
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// ListExercisesForSession returns a session's exercises in creation order.
func (s *Store) ListExercisesForSession(sessionID int64) ([]model.Exercise, error) {
	rows, err := s.db.Query(
		`SELECT `+exerciseColumns+` FROM exercises WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exercises []model.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *ex)
	}
	return exercises, rows.Err()
}

// CountExercisesForSession returns how many exercises a session holds.
func (s *Store) CountExercisesForSession(sessionID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exercises WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// SaveEvaluation records the user's answer and the grading outcome,
// moving the exercise into its terminal state.
func (s *Store) SaveEvaluation(id int64, userAnswer []byte, isCorrect bool, score int, feedback string) error {
	_, err := s.db.Exec(
		`UPDATE exercises SET user_answer = ?, is_correct = ?, score = ?, feedback = ? WHERE id = ?`,
		string(userAnswer), isCorrect, score, feedback, id,
	)
	return err
}

func scanExercise(row rowScanner) (*model.Exercise, error) {
	var ex model.Exercise
	var payload string
	var userAnswer, feedback sql.NullString
	var isCorrect sql.NullBool
	var score sql.NullInt64
	err := row.Scan(&ex.ID, &ex.SessionID, &ex.AssignmentID, &ex.UserID, &ex.Type, &ex.Topic, &ex.Difficulty,
		&payload, &userAnswer, &isCorrect, &score, &feedback, &ex.CreatedAt)
	if err != nil {
		return nil, err
	}
	ex.Payload = []byte(payload)
	if userAnswer.Valid {
		ex.UserAnswer = []byte(userAnswer.String)
	}
	if isCorrect.Valid {
		ex.IsCorrect = &isCorrect.Bool
	}
	if score.Valid {
		v := int(score.Int64)
		ex.Score = &v
	}
	if feedback.Valid {
		ex.Feedback = &feedback.String
	}
	return &ex, nil
}

package store

import (
	"database/sql"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

// CreateStudySessions inserts a whole study plan in one transaction.
func (s *Store) CreateStudySessions(sessions []model.StudySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, sess := range sessions {
		topics, err := toJSON(sess.Topics)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO study_sessions (assignment_id, user_id, scheduled_at, duration_min, topics, focus, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.AssignmentID, sess.UserID, sess.ScheduledAt, sess.DurationMin, topics, sess.Focus, sess.Status, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

const sessionColumns = `id, assignment_id, user_id, scheduled_at, duration_min, topics, focus, status, created_at`

// GetStudySession returns a study session by ID, or nil if not found.
func (s *Store) GetStudySession(id int64) (*model.StudySession, error) {
	sess, err := scanStudySession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListStudySessions returns an assignment's sessions in schedule order.
// The position in this list is the session's index within the plan.
func (s *Store) ListStudySessions(assignmentID int64) ([]model.StudySession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM study_sessions WHERE assignment_id = ? ORDER BY scheduled_at, id`, assignmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.StudySession
	for rows.Next() {
		sess, err := scanStudySession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus updates the session status.
func (s *Store) UpdateSessionStatus(id int64, status model.SessionStatus) error {
	_, err := s.db.Exec(`UPDATE study_sessions SET status = ? WHERE id = ?`, status, id)
	return err
}

// UpdateSessionTopics replaces a session's topic list. Used when weak
// topics are promoted into a session at start time.
func (s *Store) UpdateSessionTopics(id int64, topics []string) error {
	data, err := toJSON(topics)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE study_sessions SET topics = ? WHERE id = ?`, data, id)
	return err
}

func scanStudySession(row rowScanner) (*model.StudySession, error) {
	var sess model.StudySession
	var topics string
	if err := row.Scan(&sess.ID, &sess.AssignmentID, &sess.UserID, &sess.ScheduledAt, &sess.DurationMin, &topics, &sess.Focus, &sess.Status, &sess.CreatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(topics, &sess.Topics); err != nil {
		return nil, err
	}
	return &sess, nil
}

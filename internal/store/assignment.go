package store

import (
	"database/sql"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

// CreateAssignment inserts an assignment and returns its ID.
func (s *Store) CreateAssignment(a model.Assignment) (int64, error) {
	topics, err := toJSON(a.Topics)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO assignments (user_id, title, kind, exam_subtype, due_at, topics, status, material, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Title, a.Kind, a.ExamSubtype, a.DueAt, topics, a.Status, a.Material, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const assignmentColumns = `id, user_id, title, kind, exam_subtype, due_at, topics, status, material, created_at`

// GetAssignment returns an assignment by ID, or nil if not found.
func (s *Store) GetAssignment(id int64) (*model.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRow(
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssignments returns a user's assignments, soonest due first.
func (s *Store) ListAssignments(userID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? ORDER BY due_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// UpdateAssignmentStatus updates the assignment status.
func (s *Store) UpdateAssignmentStatus(id int64, status model.AssignmentStatus) error {
	_, err := s.db.Exec(`UPDATE assignments SET status = ? WHERE id = ?`, status, id)
	return err
}

// DeleteAssignment removes an assignment and everything hanging off it.
func (s *Store) DeleteAssignment(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM exercises WHERE assignment_id = ?`,
		`DELETE FROM study_sessions WHERE assignment_id = ?`,
		`DELETE FROM user_progress WHERE assignment_id = ?`,
		`DELETE FROM assignments WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	var topics string
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Kind, &a.ExamSubtype, &a.DueAt, &topics, &a.Status, &a.Material, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(topics, &a.Topics); err != nil {
		return nil, err
	}
	return &a, nil
}

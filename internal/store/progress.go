package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

// GetProgress returns the mastery state for a (user, assignment) pair,
// or nil if the user has not answered anything for it yet.
func (s *Store) GetProgress(ctx context.Context, userID, assignmentID int64) (*model.UserProgress, error) {
	var p model.UserProgress
	var mastery, weak, strong string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, assignment_id, topic_mastery, overall_readiness, weak_topics, strong_topics, updated_at
		 FROM user_progress WHERE user_id = ? AND assignment_id = ?`, userID, assignmentID,
	).Scan(&p.ID, &p.UserID, &p.AssignmentID, &mastery, &p.OverallReadiness, &weak, &strong, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := fromJSON(mastery, &p.TopicMastery); err != nil {
		return nil, err
	}
	if err := fromJSON(weak, &p.WeakTopics); err != nil {
		return nil, err
	}
	if err := fromJSON(strong, &p.StrongTopics); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProgress upserts the mastery state for a (user, assignment) pair.
func (s *Store) SaveProgress(ctx context.Context, p *model.UserProgress) error {
	mastery, err := toJSON(p.TopicMastery)
	if err != nil {
		return err
	}
	weak, err := toJSON(p.WeakTopics)
	if err != nil {
		return err
	}
	strong, err := toJSON(p.StrongTopics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, assignment_id, topic_mastery, overall_readiness, weak_topics, strong_topics, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, assignment_id) DO UPDATE SET
		   topic_mastery = ?, overall_readiness = ?, weak_topics = ?, strong_topics = ?, updated_at = ?`,
		p.UserID, p.AssignmentID, mastery, p.OverallReadiness, weak, strong, time.Now(),
		mastery, p.OverallReadiness, weak, strong, time.Now(),
	)
	return err
}

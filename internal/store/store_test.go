package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  "Test " + username,
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

func createTestAssignment(t *testing.T, s *Store, userID int64) int64 {
	t.Helper()
	id, err := s.CreateAssignment(model.Assignment{
		UserID:      userID,
		Title:       "Calculus Midterm",
		Kind:        model.KindExam,
		ExamSubtype: model.SubtypePractical,
		DueAt:       time.Now().AddDate(0, 0, 10),
		Topics:      []string{"derivatives", "integrals"},
		Status:      model.AssignmentUpcoming,
		Material:    "Chapter 4 notes",
	})
	if err != nil {
		t.Fatalf("createTestAssignment: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id := createTestUser(t, s, "alice")

	u, err := s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.Username != "alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("expected student role, got %q", u.Role)
	}

	u, err = s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("unexpected user: %+v", u)
	}

	// Not found returns nil, not an error.
	u, err = s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}

	// Duplicate usernames are rejected.
	if _, err := s.CreateUser(model.User{Username: "alice", PasswordHash: "x"}); err == nil {
		t.Error("expected error for duplicate username")
	}

	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.Active {
		t.Error("expected user to be inactive after toggle")
	}

	createTestUser(t, s, "bob")
	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Fatalf("unexpected session: %+v", sess)
	}

	// Unknown token returns nil.
	sess, err = s.GetAuthSession("bogus")
	if err != nil {
		t.Fatalf("GetAuthSession bogus: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, _ = s.GetAuthSession(token)
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestAssignmentCRUD(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	id := createTestAssignment(t, s, userID)

	a, err := s.GetAssignment(id)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if a == nil {
		t.Fatal("expected assignment")
	}
	if a.Title != "Calculus Midterm" {
		t.Errorf("expected title 'Calculus Midterm', got %q", a.Title)
	}
	if a.Kind != model.KindExam || a.ExamSubtype != model.SubtypePractical {
		t.Errorf("unexpected kind/subtype: %q/%q", a.Kind, a.ExamSubtype)
	}
	if len(a.Topics) != 2 || a.Topics[0] != "derivatives" {
		t.Errorf("topics did not round-trip: %v", a.Topics)
	}

	// Not found returns nil.
	a, err = s.GetAssignment(9999)
	if err != nil {
		t.Fatalf("GetAssignment missing: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil for missing assignment, got %+v", a)
	}

	if err := s.UpdateAssignmentStatus(id, model.AssignmentInProgress); err != nil {
		t.Fatalf("UpdateAssignmentStatus: %v", err)
	}
	a, _ = s.GetAssignment(id)
	if a.Status != model.AssignmentInProgress {
		t.Errorf("expected in_progress, got %q", a.Status)
	}

	list, err := s.ListAssignments(userID)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(list))
	}

	// Other users see nothing.
	otherID := createTestUser(t, s, "bob")
	list, _ = s.ListAssignments(otherID)
	if len(list) != 0 {
		t.Errorf("expected no assignments for other user, got %d", len(list))
	}
}

func TestListAssignmentsOrderedByDueDate(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	later, err := s.CreateAssignment(model.Assignment{
		UserID: userID, Title: "Later", Kind: model.KindQuiz,
		DueAt: time.Now().AddDate(0, 0, 20), Status: model.AssignmentUpcoming,
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	sooner, err := s.CreateAssignment(model.Assignment{
		UserID: userID, Title: "Sooner", Kind: model.KindQuiz,
		DueAt: time.Now().AddDate(0, 0, 5), Status: model.AssignmentUpcoming,
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	list, err := s.ListAssignments(userID)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(list) != 2 || list[0].ID != sooner || list[1].ID != later {
		t.Errorf("expected [sooner later], got %v", list)
	}
}

func TestDeleteAssignmentCascades(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")
	assignmentID := createTestAssignment(t, s, userID)

	err := s.CreateStudySessions([]model.StudySession{{
		AssignmentID: assignmentID, UserID: userID,
		ScheduledAt: time.Now().AddDate(0, 0, 1),
		DurationMin: 30, Topics: []string{"derivatives"},
		Focus: model.FocusConcepts, Status: model.SessionScheduled,
	}})
	if err != nil {
		t.Fatalf("CreateStudySessions: %v", err)
	}
	sessions, _ := s.ListStudySessions(assignmentID)

	_, err = s.InsertExercises([]model.Exercise{{
		SessionID: sessions[0].ID, AssignmentID: assignmentID, UserID: userID,
		Type: "multiple_choice", Topic: "derivatives", Difficulty: 3,
		Payload: json.RawMessage(`{"question":"Q"}`),
	}})
	if err != nil {
		t.Fatalf("InsertExercises: %v", err)
	}

	if err := s.DeleteAssignment(assignmentID); err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}

	a, _ := s.GetAssignment(assignmentID)
	if a != nil {
		t.Error("expected assignment to be gone")
	}
	sessions, _ = s.ListStudySessions(assignmentID)
	if len(sessions) != 0 {
		t.Errorf("expected sessions to be gone, got %d", len(sessions))
	}
}

func TestStudySessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")
	assignmentID := createTestAssignment(t, s, userID)

	base := time.Now().Add(time.Hour)
	err := s.CreateStudySessions([]model.StudySession{
		{AssignmentID: assignmentID, UserID: userID, ScheduledAt: base.AddDate(0, 0, 2), DurationMin: 30, Topics: []string{"integrals"}, Focus: model.FocusReview, Status: model.SessionScheduled},
		{AssignmentID: assignmentID, UserID: userID, ScheduledAt: base, DurationMin: 30, Topics: []string{"derivatives"}, Focus: model.FocusConcepts, Status: model.SessionScheduled},
	})
	if err != nil {
		t.Fatalf("CreateStudySessions: %v", err)
	}

	// Listed in schedule order regardless of insert order.
	sessions, err := s.ListStudySessions(assignmentID)
	if err != nil {
		t.Fatalf("ListStudySessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Focus != model.FocusConcepts || sessions[1].Focus != model.FocusReview {
		t.Errorf("sessions out of schedule order: %v, %v", sessions[0].Focus, sessions[1].Focus)
	}

	sess, err := s.GetStudySession(sessions[0].ID)
	if err != nil {
		t.Fatalf("GetStudySession: %v", err)
	}
	if sess == nil || len(sess.Topics) != 1 || sess.Topics[0] != "derivatives" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.UpdateSessionStatus(sess.ID, model.SessionActive); err != nil {
		t.Fatalf("UpdateSessionStatus: %v", err)
	}
	if err := s.UpdateSessionTopics(sess.ID, []string{"integrals", "derivatives"}); err != nil {
		t.Fatalf("UpdateSessionTopics: %v", err)
	}
	sess, _ = s.GetStudySession(sess.ID)
	if sess.Status != model.SessionActive {
		t.Errorf("expected active, got %q", sess.Status)
	}
	if len(sess.Topics) != 2 || sess.Topics[0] != "integrals" {
		t.Errorf("topics not updated: %v", sess.Topics)
	}

	// Missing session returns nil.
	sess, err = s.GetStudySession(9999)
	if err != nil {
		t.Fatalf("GetStudySession missing: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for missing session")
	}
}

func TestExerciseLifecycle(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")
	assignmentID := createTestAssignment(t, s, userID)
	err := s.CreateStudySessions([]model.StudySession{{
		AssignmentID: assignmentID, UserID: userID,
		ScheduledAt: time.Now(), DurationMin: 30,
		Focus: model.FocusConcepts, Status: model.SessionScheduled,
	}})
	if err != nil {
		t.Fatalf("CreateStudySessions: %v", err)
	}
	sessions, _ := s.ListStudySessions(assignmentID)
	sessionID := sessions[0].ID

	count, err := s.CountExercisesForSession(sessionID)
	if err != nil {
		t.Fatalf("CountExercisesForSession: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 exercises, got %d", count)
	}

	ids, err := s.InsertExercises([]model.Exercise{
		{SessionID: sessionID, AssignmentID: assignmentID, UserID: userID, Type: "multiple_choice", Topic: "derivatives", Difficulty: 2, Payload: json.RawMessage(`{"question":"Q1"}`)},
		{SessionID: sessionID, AssignmentID: assignmentID, UserID: userID, Type: "numerical_problem", Topic: "integrals", Difficulty: 3, Payload: json.RawMessage(`{"question":"Q2"}`)},
	})
	if err != nil {
		t.Fatalf("InsertExercises: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}

	ex, err := s.GetExercise(ids[0])
	if err != nil {
		t.Fatalf("GetExercise: %v", err)
	}
	if ex == nil || ex.Type != "multiple_choice" {
		t.Fatalf("unexpected exercise: %+v", ex)
	}
	if ex.Evaluated() {
		t.Error("fresh exercise should not be evaluated")
	}
	if ex.UserAnswer != nil || ex.Score != nil || ex.Feedback != nil {
		t.Error("fresh exercise should have nil answer fields")
	}

	answer := json.RawMessage(`{"answer":"B"}`)
	if err := s.SaveEvaluation(ids[0], answer, true, 100, "Correct!"); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	ex, _ = s.GetExercise(ids[0])
	if !ex.Evaluated() {
		t.Fatal("expected exercise to be evaluated")
	}
	if !*ex.IsCorrect || *ex.Score != 100 || *ex.Feedback != "Correct!" {
		t.Errorf("evaluation did not round-trip: %+v", ex)
	}
	if string(ex.UserAnswer) != string(answer) {
		t.Errorf("expected answer %s, got %s", answer, ex.UserAnswer)
	}

	list, err := s.ListExercisesForSession(sessionID)
	if err != nil {
		t.Fatalf("ListExercisesForSession: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(list))
	}
	if list[0].ID != ids[0] || list[1].ID != ids[1] {
		t.Error("exercises not in creation order")
	}

	count, _ = s.CountExercisesForSession(sessionID)
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestProgressUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := createTestUser(t, s, "alice")
	assignmentID := createTestAssignment(t, s, userID)

	// No progress yet.
	p, err := s.GetProgress(ctx, userID, assignmentID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p != nil {
		t.Error("expected nil progress")
	}

	err = s.SaveProgress(ctx, &model.UserProgress{
		UserID:       userID,
		AssignmentID: assignmentID,
		TopicMastery: map[string]model.TopicMastery{
			"derivatives": {Correct: 3, Total: 5, AverageDifficulty: 2.4},
		},
		OverallReadiness: 60,
		WeakTopics:       []string{"integrals"},
	})
	if err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	p, err = s.GetProgress(ctx, userID, assignmentID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p == nil {
		t.Fatal("expected progress")
	}
	if p.TopicMastery["derivatives"].Correct != 3 {
		t.Errorf("mastery did not round-trip: %+v", p.TopicMastery)
	}
	if p.OverallReadiness != 60 {
		t.Errorf("expected readiness 60, got %d", p.OverallReadiness)
	}
	if len(p.WeakTopics) != 1 || p.WeakTopics[0] != "integrals" {
		t.Errorf("weak topics did not round-trip: %v", p.WeakTopics)
	}

	// Second save updates in place.
	p.OverallReadiness = 75
	p.WeakTopics = nil
	if err := s.SaveProgress(ctx, p); err != nil {
		t.Fatalf("SaveProgress update: %v", err)
	}
	p, _ = s.GetProgress(ctx, userID, assignmentID)
	if p.OverallReadiness != 75 {
		t.Errorf("expected readiness 75, got %d", p.OverallReadiness)
	}
	if len(p.WeakTopics) != 0 {
		t.Errorf("expected no weak topics, got %v", p.WeakTopics)
	}
}

package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// AssignmentKind classifies what the student is preparing for.
type AssignmentKind string

const (
	KindExam         AssignmentKind = "exam"
	KindEssay        AssignmentKind = "essay"
	KindPresentation AssignmentKind = "presentation"
	KindQuiz         AssignmentKind = "quiz"
)

// ExamSubtype refines an exam assignment. Only meaningful when the
// assignment kind is "exam"; other kinds leave it empty.
type ExamSubtype string

const (
	SubtypeTheoretical ExamSubtype = "theoretical"
	SubtypePractical   ExamSubtype = "practical"
	SubtypeHybrid      ExamSubtype = "hybrid"
)

// AssignmentStatus represents the lifecycle of an assignment.
type AssignmentStatus string

const (
	AssignmentUpcoming   AssignmentStatus = "upcoming"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// Assignment is something the user has to prepare for: an exam, an
// essay, a presentation, or a quiz. Status transitions are driven by
// session completion, never by the exercise engine.
type Assignment struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Title       string           `json:"title"`
	Kind        AssignmentKind   `json:"kind"`
	ExamSubtype ExamSubtype      `json:"exam_subtype,omitempty"`
	DueAt       time.Time        `json:"due_at"`
	Topics      []string         `json:"topics"`
	Status      AssignmentStatus `json:"status"`
	Material    string           `json:"material,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SessionStatus represents the lifecycle of a study session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionMissed    SessionStatus = "missed"
)

// SessionFocus tags what a study session concentrates on.
type SessionFocus string

const (
	FocusConcepts SessionFocus = "concepts"
	FocusPractice SessionFocus = "practice"
	FocusReview   SessionFocus = "review"
)

// StudySession is a scheduled block of study time for one assignment.
// It is the unit against which exercises are generated and grouped.
type StudySession struct {
	ID           int64         `json:"id"`
	AssignmentID int64         `json:"assignment_id"`
	UserID       int64         `json:"user_id"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	DurationMin  int           `json:"duration_min"`
	Topics       []string      `json:"topics"`
	Focus        SessionFocus  `json:"focus"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Exercise is one generated practice item. The payload shape depends
// on the exercise type and is owned by the templates package; the
// store and the API treat it as opaque JSON.
//
// State machine: created -> awaiting answer -> evaluated (terminal).
// UserAnswer, IsCorrect, Score, and Feedback stay nil until evaluation.
type Exercise struct {
	ID           int64           `json:"id"`
	SessionID    int64           `json:"session_id"`
	AssignmentID int64           `json:"assignment_id"`
	UserID       int64           `json:"user_id"`
	Type         string          `json:"type"`
	Topic        string          `json:"topic"`
	Difficulty   int             `json:"difficulty"`
	Payload      json.RawMessage `json:"payload"`
	UserAnswer   json.RawMessage `json:"user_answer,omitempty"`
	IsCorrect    *bool           `json:"is_correct,omitempty"`
	Score        *int            `json:"score,omitempty"`
	Feedback     *string         `json:"feedback,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Evaluated reports whether the exercise has reached its terminal state.
func (e *Exercise) Evaluated() bool {
	return e.IsCorrect != nil
}

// Response is a user's submitted answer. Which fields are set depends
// on the exercise type: a single answer string, a boolean plus
// justification, one answer per blank or sub-problem, an answer with
// shown work, or a flashcard self-report.
type Response struct {
	Answer        string   `json:"answer,omitempty"`
	BoolAnswer    *bool    `json:"bool_answer,omitempty"`
	Justification string   `json:"justification,omitempty"`
	Answers       []string `json:"answers,omitempty"`
	Work          string   `json:"work,omitempty"`
	Knew          *bool    `json:"knew,omitempty"`
	WantsReview   bool     `json:"wants_review,omitempty"`
}

// ProblemResult is the per-problem outcome inside a mini problem set.
type ProblemResult struct {
	ProblemNumber int    `json:"problem_number"`
	IsCorrect     bool   `json:"is_correct"`
	PointsEarned  int    `json:"points_earned"`
	Feedback      string `json:"feedback"`
}

// EvaluationResult is the normalized outcome of evaluating one
// exercise. IsCorrect, Score (0-100), and Feedback are always set; the
// remaining fields are per-type diagnostics for display only and the
// mastery tracker never reads them.
type EvaluationResult struct {
	IsCorrect bool   `json:"is_correct"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`

	CorrectAnswer      string          `json:"correct_answer,omitempty"`
	KeywordsCovered    []string        `json:"keywords_covered,omitempty"`
	KeywordsMissed     []string        `json:"keywords_missed,omitempty"`
	ConceptsIdentified []string        `json:"concepts_identified,omitempty"`
	Misconceptions     []string        `json:"misconceptions,omitempty"`
	NeedsReview        bool            `json:"needs_review,omitempty"`
	ProblemResults     []ProblemResult `json:"problem_results,omitempty"`
	PointsEarned       int             `json:"points_earned,omitempty"`
	PointsPossible     int             `json:"points_possible,omitempty"`
}

// TopicMastery holds the running statistics for one topic.
type TopicMastery struct {
	Correct           int       `json:"correct"`
	Total             int       `json:"total"`
	AverageDifficulty float64   `json:"average_difficulty"`
	LastPracticed     time.Time `json:"last_practiced"`
}

// Rate returns the correct/total ratio, or 0 for an unpracticed topic.
func (m TopicMastery) Rate() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Total)
}

// UserProgress is the per-(user, assignment) mastery state. WeakTopics,
// StrongTopics, and OverallReadiness are derived from the TopicMastery
// map and recomputed in full on every evaluation event.
type UserProgress struct {
	ID               int64                   `json:"id"`
	UserID           int64                   `json:"user_id"`
	AssignmentID     int64                   `json:"assignment_id"`
	TopicMastery     map[string]TopicMastery `json:"topic_mastery"`
	OverallReadiness int                     `json:"overall_readiness"`
	WeakTopics       []string                `json:"weak_topics"`
	StrongTopics     []string                `json:"strong_topics"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	SessionDuration int    // minutes per study session
	PreferredHour   int    // hour of day (0-23) study sessions are scheduled at
	SecureCookies   bool   // Set Secure flag on cookies (disable for local dev)
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyloop/studyloop/internal/model"
	"github.com/studyloop/studyloop/internal/planner"
	"github.com/studyloop/studyloop/internal/templates"
)

var errNoExercises = errors.New("no exercises could be generated")

type sessionResponse struct {
	Session   *model.StudySession `json:"session"`
	Exercises []model.Exercise    `json:"exercises"`
}

// handleStartSession activates a session, generating its exercises on
// first start. A restarted session keeps its existing exercises.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if sess.Status == model.SessionCompleted {
		respondError(w, http.StatusConflict, "session already completed")
		return
	}

	count, err := h.store.CountExercisesForSession(sess.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if count == 0 {
		if err := h.generateSessionExercises(r, sess); err != nil {
			respondError(w, http.StatusBadGateway, "exercise generation failed: "+err.Error())
			return
		}
	}

	if sess.Status == model.SessionScheduled {
		if err := h.store.UpdateSessionStatus(sess.ID, model.SessionActive); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess.Status = model.SessionActive
	}

	a, err := h.store.GetAssignment(sess.AssignmentID)
	if err == nil && a != nil && a.Status == model.AssignmentUpcoming {
		_ = h.store.UpdateAssignmentStatus(a.ID, model.AssignmentInProgress)
	}

	exercises, err := h.store.ListExercisesForSession(sess.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess, Exercises: exercises})
}

// generateSessionExercises builds the generation plan for a session
// and persists whatever the provider managed to produce. The weak
// topic promotion is persisted so the session record shows what it
// actually covered.
func (h *Handler) generateSessionExercises(r *http.Request, sess *model.StudySession) error {
	a, err := h.store.GetAssignment(sess.AssignmentID)
	if err != nil {
		return err
	}

	user := model.UserFromContext(r.Context())
	prog, err := h.store.GetProgress(r.Context(), user.ID, sess.AssignmentID)
	if err != nil {
		slog.Error("loading progress for generation", "error", err)
		prog = nil
	}

	index, total := h.sessionPosition(sess)

	topics := sess.Topics
	if prog != nil && len(prog.WeakTopics) > 0 {
		topics = planner.PromoteWeakTopics(topics, prog.WeakTopics)
		if err := h.store.UpdateSessionTopics(sess.ID, topics); err != nil {
			slog.Error("persisting promoted topics", "session", sess.ID, "error", err)
		} else {
			sess.Topics = topics
		}
	}

	specs := h.planner.BuildSessionSpecs(a, index, total, prog, topics)
	generated := templates.GenerateBatch(r.Context(), h.llm, specs)
	if len(generated) == 0 {
		return errNoExercises
	}

	exercises := make([]model.Exercise, 0, len(generated))
	for _, ex := range generated {
		ex.SessionID = sess.ID
		ex.AssignmentID = sess.AssignmentID
		ex.UserID = user.ID
		exercises = append(exercises, *ex)
	}
	_, err = h.store.InsertExercises(exercises)
	return err
}

// sessionPosition finds where a session sits in its assignment's
// schedule-ordered plan.
func (h *Handler) sessionPosition(sess *model.StudySession) (index, total int) {
	sessions, err := h.store.ListStudySessions(sess.AssignmentID)
	if err != nil || len(sessions) == 0 {
		return 0, 1
	}
	for i, s := range sessions {
		if s.ID == sess.ID {
			return i, len(sessions)
		}
	}
	return 0, len(sessions)
}

// handleCompleteSession marks a session done; when it is the last
// session of the plan the assignment completes too.
func (h *Handler) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if sess.Status == model.SessionCompleted {
		respondError(w, http.StatusConflict, "session already completed")
		return
	}

	if err := h.store.UpdateSessionStatus(sess.ID, model.SessionCompleted); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.Status = model.SessionCompleted

	sessions, err := h.store.ListStudySessions(sess.AssignmentID)
	if err == nil {
		done := true
		for _, s := range sessions {
			if s.Status != model.SessionCompleted && s.Status != model.SessionMissed {
				done = false
				break
			}
		}
		if done {
			_ = h.store.UpdateAssignmentStatus(sess.AssignmentID, model.AssignmentCompleted)
		}
	}

	respondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleListExercises(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	exercises, err := h.store.ListExercisesForSession(sess.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, exercises)
}

func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*model.StudySession, bool) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return nil, false
	}
	sess, err := h.store.GetStudySession(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	user := model.UserFromContext(r.Context())
	if sess == nil || (sess.UserID != user.ID && user.Role != model.UserRoleAdmin) {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

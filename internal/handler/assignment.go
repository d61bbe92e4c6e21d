package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/studyloop/studyloop/internal/model"
	"github.com/studyloop/studyloop/internal/planner"
)

type createAssignmentRequest struct {
	Title       string               `json:"title"`
	Kind        model.AssignmentKind `json:"kind"`
	ExamSubtype model.ExamSubtype    `json:"exam_subtype"`
	DueAt       time.Time            `json:"due_at"`
	Topics      []string             `json:"topics"`
	Material    string               `json:"material"`
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req createAssignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.Kind {
	case model.KindExam, model.KindEssay, model.KindPresentation, model.KindQuiz:
	default:
		respondError(w, http.StatusBadRequest, "unknown assignment kind")
		return
	}
	if req.DueAt.IsZero() {
		respondError(w, http.StatusBadRequest, "due date is required")
		return
	}

	id, err := h.store.CreateAssignment(model.Assignment{
		UserID:      user.ID,
		Title:       req.Title,
		Kind:        req.Kind,
		ExamSubtype: req.ExamSubtype,
		DueAt:       req.DueAt,
		Topics:      req.Topics,
		Status:      model.AssignmentUpcoming,
		Material:    req.Material,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a, err := h.store.GetAssignment(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	assignments, err := h.store.ListAssignments(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, assignments)
}

func (h *Handler) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedAssignment(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedAssignment(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteAssignment(a.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPlanRequest struct {
	PreferredHour *int `json:"preferred_hour"`
	DurationMin   *int `json:"duration_min"`
}

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedAssignment(w, r)
	if !ok {
		return
	}

	existing, err := h.store.ListStudySessions(a.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(existing) > 0 {
		respondError(w, http.StatusConflict, "assignment already has a study plan")
		return
	}

	opts := planner.PlanOptions{
		Now:         time.Now(),
		Hour:        h.config.PreferredHour,
		DurationMin: h.config.SessionDuration,
	}
	var req createPlanRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
		if req.PreferredHour != nil {
			opts.Hour = *req.PreferredHour
		}
		if req.DurationMin != nil {
			opts.DurationMin = *req.DurationMin
		}
	}

	sessions, err := planner.PlanSessions(a, opts)
	if err != nil {
		if errors.Is(err, planner.ErrDueTooSoon) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.store.CreateStudySessions(sessions); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := h.store.ListStudySessions(a.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedAssignment(w, r)
	if !ok {
		return
	}
	sessions, err := h.store.ListStudySessions(a.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	a, ok := h.ownedAssignment(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetProgress(r.Context(), user.ID, a.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		p = &model.UserProgress{UserID: user.ID, AssignmentID: a.ID}
	}
	respondJSON(w, http.StatusOK, p)
}

// ownedAssignment resolves the assignment in the URL and checks it
// belongs to the authenticated user. Responds with the appropriate
// error status when it does not.
func (h *Handler) ownedAssignment(w http.ResponseWriter, r *http.Request) (*model.Assignment, bool) {
	id, ok := pathID(w, r, "assignmentID")
	if !ok {
		return nil, false
	}
	a, err := h.store.GetAssignment(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	user := model.UserFromContext(r.Context())
	if a == nil || (a.UserID != user.ID && user.Role != model.UserRoleAdmin) {
		respondError(w, http.StatusNotFound, "assignment not found")
		return nil, false
	}
	return a, true
}

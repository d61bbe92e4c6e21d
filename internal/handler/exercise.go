package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyloop/studyloop/internal/model"
	"github.com/studyloop/studyloop/internal/templates"
)

type answerResponse struct {
	Exercise *model.Exercise         `json:"exercise"`
	Result   *model.EvaluationResult `json:"result"`
}

// handleAnswerExercise grades a submitted answer and stores the
// outcome. Evaluation is terminal: a second submission is rejected.
func (h *Handler) handleAnswerExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "exerciseID")
	if !ok {
		return
	}

	ex, err := h.store.GetExercise(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	user := model.UserFromContext(r.Context())
	if ex == nil || (ex.UserID != user.ID && user.Role != model.UserRoleAdmin) {
		respondError(w, http.StatusNotFound, "exercise not found")
		return
	}
	if ex.Evaluated() {
		respondError(w, http.StatusConflict, "exercise already answered")
		return
	}

	var resp model.Response
	if !decodeBody(w, r, &resp) {
		return
	}

	result, err := templates.Evaluate(r.Context(), ex, resp, h.llm)
	if err != nil {
		var provErr *templates.ProviderError
		if errors.As(err, &provErr) {
			slog.Error("evaluation provider failed", "exercise", ex.ID, "type", ex.Type, "error", err)
			respondError(w, http.StatusBadGateway, "evaluation failed, try again")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rawAnswer, err := json.Marshal(resp)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.store.SaveEvaluation(ex.ID, rawAnswer, result.IsCorrect, result.Score, result.Feedback); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ex.UserAnswer = rawAnswer
	ex.IsCorrect = &result.IsCorrect
	ex.Score = &result.Score
	ex.Feedback = &result.Feedback

	h.tracker.Record(r.Context(), user.ID, ex.AssignmentID, ex.Topic, result.IsCorrect, ex.Difficulty)

	respondJSON(w, http.StatusOK, answerResponse{Exercise: ex, Result: result})
}

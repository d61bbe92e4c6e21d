// Package handler exposes the JSON API: authentication, assignments
// and study plans, session lifecycle, and exercise answering.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/studyloop/internal/llm"
	"github.com/studyloop/studyloop/internal/model"
	"github.com/studyloop/studyloop/internal/planner"
	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	llm     *llm.Client
	planner *planner.Planner
	tracker *progress.Tracker
	config  model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, cfg model.AppConfig) *Handler {
	return &Handler{
		store:   s,
		llm:     l,
		planner: planner.New(nil),
		tracker: progress.NewTracker(s),
		config:  cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/me", h.handleMe)

		r.Route("/api/assignments", func(r chi.Router) {
			r.Get("/", h.handleListAssignments)
			r.Post("/", h.handleCreateAssignment)
			r.Route("/{assignmentID}", func(r chi.Router) {
				r.Get("/", h.handleGetAssignment)
				r.Delete("/", h.handleDeleteAssignment)
				r.Post("/plan", h.handleCreatePlan)
				r.Get("/sessions", h.handleListSessions)
				r.Get("/progress", h.handleGetProgress)
			})
		})

		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/start", h.handleStartSession)
			r.Post("/complete", h.handleCompleteSession)
			r.Get("/exercises", h.handleListExercises)
		})

		r.Post("/api/exercises/{exerciseID}/answer", h.handleAnswerExercise)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Post("/users/{userID}/toggle", h.handleToggleUser)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

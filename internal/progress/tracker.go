// Package progress maintains per-topic mastery statistics and the
// derived weak/strong topic lists that steer exercise selection.
package progress

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/studyloop/studyloop/internal/model"
)

const (
	weakMinAttempts   = 3
	weakRateBelow     = 0.60
	strongMinAttempts = 5
	strongRateAtLeast = 0.80
)

// Apply folds one evaluated exercise into the mastery map: attempt
// count, correct count, and a running average of the difficulty seen.
// It mutates p in place.
func Apply(p *model.UserProgress, topic string, correct bool, difficulty int, when time.Time) {
	if p.TopicMastery == nil {
		p.TopicMastery = make(map[string]model.TopicMastery)
	}

	m := p.TopicMastery[topic]
	m.Total++
	if correct {
		m.Correct++
	}
	m.AverageDifficulty = (m.AverageDifficulty*float64(m.Total-1) + float64(difficulty)) / float64(m.Total)
	m.LastPracticed = when
	p.TopicMastery[topic] = m

	Recompute(p)
	p.UpdatedAt = when
}

// Recompute rebuilds the derived fields from the mastery map. A topic
// is weak after 3+ attempts below a 60% correct rate, strong after 5+
// attempts at 80% or better. Readiness is the mean correct rate across
// all practiced topics, as a percentage.
func Recompute(p *model.UserProgress) {
	p.WeakTopics = nil
	p.StrongTopics = nil

	topics := make([]string, 0, len(p.TopicMastery))
	for topic := range p.TopicMastery {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	var rateSum float64
	var practiced int
	for _, topic := range topics {
		m := p.TopicMastery[topic]
		if m.Total == 0 {
			continue
		}
		rate := m.Rate()
		rateSum += rate
		practiced++

		if m.Total >= weakMinAttempts && rate < weakRateBelow {
			p.WeakTopics = append(p.WeakTopics, topic)
		}
		if m.Total >= strongMinAttempts && rate >= strongRateAtLeast {
			p.StrongTopics = append(p.StrongTopics, topic)
		}
	}

	p.OverallReadiness = 0
	if practiced > 0 {
		p.OverallReadiness = int(math.Round(rateSum / float64(practiced) * 100))
	}
}

// Store is the persistence the tracker needs: load-or-create the
// progress row for a (user, assignment) pair and save it back.
type Store interface {
	GetProgress(ctx context.Context, userID, assignmentID int64) (*model.UserProgress, error)
	SaveProgress(ctx context.Context, p *model.UserProgress) error
}

// Tracker records evaluation outcomes against stored progress.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Record updates mastery for one evaluated exercise. Failures are
// logged and swallowed: progress tracking must never fail an answer
// submission.
func (t *Tracker) Record(ctx context.Context, userID, assignmentID int64, topic string, correct bool, difficulty int) {
	p, err := t.store.GetProgress(ctx, userID, assignmentID)
	if err != nil {
		slog.Error("loading progress", "user", userID, "assignment", assignmentID, "error", err)
		return
	}
	if p == nil {
		p = &model.UserProgress{UserID: userID, AssignmentID: assignmentID}
	}

	Apply(p, topic, correct, difficulty, time.Now())

	if err := t.store.SaveProgress(ctx, p); err != nil {
		slog.Error("saving progress", "user", userID, "assignment", assignmentID, "error", err)
	}
}

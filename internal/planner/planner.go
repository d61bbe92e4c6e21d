package planner

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/studyloop/studyloop/internal/model"
	"github.com/studyloop/studyloop/internal/templates"
)

// ErrDueTooSoon means the assignment's due date leaves no room for
// even one study session.
var ErrDueTooSoon = errors.New("assignment is due too soon to create a study plan")

// Planner selects exercise types and focus topics. The random source
// is injectable so tests can be deterministic.
type Planner struct {
	rng *rand.Rand
}

// New creates a planner. A nil rng gets a freshly seeded source.
func New(rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Planner{rng: rng}
}

// SelectExerciseTypes picks the exercise types for one session:
// resolve the assignment's config, shift the tier distribution by
// session progress (basics first, application later), convert the
// fractions to integer counts summing exactly to exercisesPerSession,
// then fill each tier's count by weighted sampling with replacement.
// The result is ordered tier 1, then 2, then 3.
func (p *Planner) SelectExerciseTypes(a *model.Assignment, sessionIndex, totalSessions int, progress *model.UserProgress) []string {
	cfg := ConfigFor(a.Kind, a.ExamSubtype)
	n := cfg.ExercisesPerSession

	dist := cfg.Distribution
	sp := sessionProgress(sessionIndex, totalSessions)
	if sp < 0.3 {
		dist.Tier1 += 0.15
		dist.Tier3 -= 0.15
	} else if sp > 0.7 {
		dist.Tier1 -= 0.10
		dist.Tier3 += 0.10
	}

	counts := [3]int{
		max(0, int(math.Round(dist.Tier1*float64(n)))),
		max(0, int(math.Round(dist.Tier2*float64(n)))),
		max(0, int(math.Round(dist.Tier3*float64(n)))),
	}
	// Reconcile rounding drift; tier 2 is the adjustment buffer.
	for counts[0]+counts[1]+counts[2] > n && counts[0] > 0 {
		counts[0]--
	}
	for counts[0]+counts[1]+counts[2] < n {
		counts[1]++
	}

	// Sorted so the sampler sees a stable order for a given seed.
	eligible := make([]string, 0, len(cfg.TemplateWeights))
	for name := range cfg.TemplateWeights {
		eligible = append(eligible, name)
	}
	sort.Strings(eligible)

	picks := make([]string, 0, n)
	for tier := 1; tier <= 3; tier++ {
		bucket := make([]string, 0, len(eligible))
		for _, name := range eligible {
			if templates.TierOf(name) == tier {
				bucket = append(bucket, name)
			}
		}
		s := newSampler(bucket, func(name string) float64 { return cfg.TemplateWeights[name] }, p.rng)
		if s.empty() {
			// A tier with no eligible types contributes nothing.
			continue
		}
		for i := 0; i < counts[tier-1]; i++ {
			picks = append(picks, s.pick())
		}
	}
	return picks
}

// SelectFocusTopics biases topic rotation toward weak and unpracticed
// topics: each topic is weighted 1 + (1 - correctRate), sampled
// len(topics) times with replacement, then de-duplicated preserving
// first-seen order. Without mastery data the input is returned as is.
func (p *Planner) SelectFocusTopics(topics []string, progress *model.UserProgress) []string {
	if progress == nil || len(progress.TopicMastery) == 0 || len(topics) == 0 {
		return topics
	}

	s := newSampler(topics, func(topic string) float64 {
		return 1 + (1 - progress.TopicMastery[topic].Rate())
	}, p.rng)

	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for range topics {
		topic := s.pick()
		if !seen[topic] {
			seen[topic] = true
			out = append(out, topic)
		}
	}
	return out
}

// CalculateDifficulty is pure: a session-progress baseline (early 2,
// middle 3, late 4) adjusted by topic mastery (struggling -1,
// mastered +1), clamped to 1..5. Topics with no history get the
// baseline unchanged.
func CalculateDifficulty(progress *model.UserProgress, topic string, sessionIndex, totalSessions int) int {
	sp := sessionProgress(sessionIndex, totalSessions)
	difficulty := 3
	switch {
	case sp < 0.3:
		difficulty = 2
	case sp >= 0.7:
		difficulty = 4
	}

	if progress != nil {
		if mastery, ok := progress.TopicMastery[topic]; ok && mastery.Total > 0 {
			rate := mastery.Rate()
			if rate < 0.4 {
				difficulty = max(1, difficulty-1)
			} else if rate > 0.8 {
				difficulty = min(5, difficulty+1)
			}
		}
	}
	return difficulty
}

// PromoteWeakTopics reorders a session's topic list so weak topics
// come first, preserving length and dropping duplicates.
func PromoteWeakTopics(topics, weak []string) []string {
	if len(weak) == 0 || len(topics) == 0 {
		return topics
	}
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range append(append([]string{}, weak...), topics...) {
		if seen[t] || len(out) == len(topics) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// BuildSessionSpecs assembles the generation plan for one session:
// selected exercise types crossed with a weak-biased topic rotation,
// each at its own per-topic difficulty.
func (p *Planner) BuildSessionSpecs(a *model.Assignment, sessionIndex, totalSessions int, progress *model.UserProgress, topics []string) []templates.GenSpec {
	types := p.SelectExerciseTypes(a, sessionIndex, totalSessions, progress)

	if progress != nil {
		topics = PromoteWeakTopics(topics, progress.WeakTopics)
	}
	focus := p.SelectFocusTopics(topics, progress)
	if len(focus) == 0 {
		focus = []string{""}
	}

	specs := make([]templates.GenSpec, 0, len(types))
	for i, typ := range types {
		topic := focus[i%len(focus)]
		specs = append(specs, templates.GenSpec{
			Type:       typ,
			Topic:      topic,
			Difficulty: CalculateDifficulty(progress, topic, sessionIndex, totalSessions),
			Kind:       a.Kind,
			Material:   a.Material,
		})
	}
	return specs
}

// maxSessions caps how many sessions a plan schedules per assignment
// kind.
func maxSessions(kind model.AssignmentKind) int {
	switch kind {
	case model.KindExam:
		return 5
	case model.KindEssay:
		return 4
	default:
		return 3
	}
}

// PlanOptions carries the user's scheduling preferences.
type PlanOptions struct {
	Now         time.Time
	Hour        int // hour of day sessions start at
	DurationMin int
}

// PlanSessions builds the study plan for an assignment: one session
// per slot, spread evenly over the days before the due date, capped by
// kind. Focus runs concepts for the first half, practice after, and
// review for the final session.
func PlanSessions(a *model.Assignment, opts PlanOptions) ([]model.StudySession, error) {
	daysUntilDue := int(a.DueAt.Sub(opts.Now).Hours() / 24)
	count := min(daysUntilDue-1, maxSessions(a.Kind))
	if count <= 0 {
		return nil, ErrDueTooSoon
	}

	year, month, day := opts.Now.Date()
	base := time.Date(year, month, day, opts.Hour, 0, 0, 0, opts.Now.Location())

	sessions := make([]model.StudySession, 0, count)
	for i := 0; i < count; i++ {
		dayOffset := (daysUntilDue - 1) * i / count

		focus := model.FocusConcepts
		switch {
		case i == count-1:
			focus = model.FocusReview
		case float64(i)/float64(count) >= 0.5:
			focus = model.FocusPractice
		}

		sessions = append(sessions, model.StudySession{
			AssignmentID: a.ID,
			UserID:       a.UserID,
			ScheduledAt:  base.AddDate(0, 0, dayOffset),
			DurationMin:  opts.DurationMin,
			Topics:       a.Topics,
			Focus:        focus,
			Status:       model.SessionScheduled,
		})
	}
	return sessions, nil
}

func sessionProgress(index, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(index) / float64(total)
}

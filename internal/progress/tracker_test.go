package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop/internal/model"
)

func TestApplyAccumulatesMastery(t *testing.T) {
	p := &model.UserProgress{}
	when := time.Date(2026, 3, 5, 18, 0, 0, 0, time.UTC)

	Apply(p, "derivatives", true, 2, when)
	Apply(p, "derivatives", false, 4, when.Add(time.Hour))

	m := p.TopicMastery["derivatives"]
	require.Equal(t, 2, m.Total)
	require.Equal(t, 1, m.Correct)
	require.Equal(t, 3.0, m.AverageDifficulty)
	require.Equal(t, when.Add(time.Hour), m.LastPracticed)
	require.Equal(t, when.Add(time.Hour), p.UpdatedAt)
}

func TestApplyIncrementsTotalByExactlyOne(t *testing.T) {
	p := &model.UserProgress{TopicMastery: map[string]model.TopicMastery{
		"algebra": {Correct: 3, Total: 7, AverageDifficulty: 3},
	}}

	Apply(p, "algebra", true, 3, time.Now())
	require.Equal(t, 8, p.TopicMastery["algebra"].Total)
	require.Equal(t, 4, p.TopicMastery["algebra"].Correct)
}

func TestRecomputeWeakAndStrong(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		weak    bool
		strong  bool
	}{
		{"2 of 5 is weak", 2, 5, true, false},
		{"9 of 10 is strong", 9, 10, false, true},
		{"too few attempts for either", 1, 2, false, false},
		{"4 of 4 not yet strong", 4, 4, false, false},
		{"3 of 5 neither", 3, 5, false, false},
		{"4 of 5 exactly strong", 4, 5, false, true},
		{"0 of 3 weak", 0, 3, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &model.UserProgress{TopicMastery: map[string]model.TopicMastery{
				"topic": {Correct: tt.correct, Total: tt.total},
			}}
			Recompute(p)
			require.Equal(t, tt.weak, len(p.WeakTopics) == 1, "weak: %v", p.WeakTopics)
			require.Equal(t, tt.strong, len(p.StrongTopics) == 1, "strong: %v", p.StrongTopics)
		})
	}
}

func TestRecomputeReadiness(t *testing.T) {
	p := &model.UserProgress{TopicMastery: map[string]model.TopicMastery{
		"a": {Correct: 5, Total: 5},
		"b": {Correct: 5, Total: 5},
		"c": {Correct: 0, Total: 5},
	}}
	Recompute(p)
	require.Equal(t, 67, p.OverallReadiness)

	empty := &model.UserProgress{}
	Recompute(empty)
	require.Zero(t, empty.OverallReadiness)
}

func TestRecomputeSortsTopicLists(t *testing.T) {
	p := &model.UserProgress{TopicMastery: map[string]model.TopicMastery{
		"zeta":  {Correct: 0, Total: 5},
		"alpha": {Correct: 1, Total: 5},
	}}
	Recompute(p)
	require.Equal(t, []string{"alpha", "zeta"}, p.WeakTopics)
}

type fakeStore struct {
	progress *model.UserProgress
	getErr   error
	saveErr  error
	saved    *model.UserProgress
}

func (f *fakeStore) GetProgress(_ context.Context, userID, assignmentID int64) (*model.UserProgress, error) {
	return f.progress, f.getErr
}

func (f *fakeStore) SaveProgress(_ context.Context, p *model.UserProgress) error {
	f.saved = p
	return f.saveErr
}

func TestTrackerRecord(t *testing.T) {
	t.Run("creates progress on first evaluation", func(t *testing.T) {
		store := &fakeStore{}
		NewTracker(store).Record(context.Background(), 3, 7, "derivatives", true, 2)

		require.NotNil(t, store.saved)
		require.Equal(t, int64(3), store.saved.UserID)
		require.Equal(t, int64(7), store.saved.AssignmentID)
		require.Equal(t, 1, store.saved.TopicMastery["derivatives"].Correct)
		require.Equal(t, 100, store.saved.OverallReadiness)
	})

	t.Run("updates existing progress", func(t *testing.T) {
		store := &fakeStore{progress: &model.UserProgress{
			UserID: 3, AssignmentID: 7,
			TopicMastery: map[string]model.TopicMastery{"derivatives": {Correct: 1, Total: 4}},
		}}
		NewTracker(store).Record(context.Background(), 3, 7, "derivatives", false, 3)

		require.Equal(t, 5, store.saved.TopicMastery["derivatives"].Total)
		require.Equal(t, []string{"derivatives"}, store.saved.WeakTopics)
	})

	t.Run("load failure is swallowed", func(t *testing.T) {
		store := &fakeStore{getErr: errors.New("db locked")}
		NewTracker(store).Record(context.Background(), 3, 7, "derivatives", true, 2)
		require.Nil(t, store.saved)
	})

	t.Run("save failure is swallowed", func(t *testing.T) {
		store := &fakeStore{saveErr: errors.New("db locked")}
		NewTracker(store).Record(context.Background(), 3, 7, "derivatives", true, 2)
	})
}

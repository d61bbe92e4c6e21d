package templates

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop/internal/model"
)

// stubProvider returns a canned completion and counts calls.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Complete(_ context.Context, _, _ string, _ float32) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type providerFunc func(ctx context.Context, system, user string, temperature float32) (string, error)

func (f providerFunc) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	return f(ctx, system, user, temperature)
}

// exerciseWith wraps a payload into an exercise record the way
// Generate would store it.
func exerciseWith(t *testing.T, typ string, payload any) *model.Exercise {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &model.Exercise{Type: typ, Topic: "testing", Difficulty: 3, Payload: raw}
}

func TestRegistryCoversAllTiers(t *testing.T) {
	wantTiers := map[string]int{
		"multiple_choice":          1,
		"true_false_justify":       1,
		"flashcard":                1,
		"fill_in_blank":            1,
		"numerical_problem":        1,
		"short_answer_define":      2,
		"short_answer_explain":     2,
		"short_answer_compare":     2,
		"one_sentence_definition":  2,
		"problem_type_recognition": 2,
		"concept_comparison":       2,
		"scenario_application":     3,
		"scenario_prediction":      3,
		"error_identification":     3,
		"mini_problem_set":         3,
	}

	require.Len(t, registry, len(wantTiers))
	for name, tier := range wantTiers {
		tmpl, err := Lookup(name)
		require.NoError(t, err, name)
		require.Equal(t, tier, tmpl.Tier(), name)
		require.Equal(t, name, tmpl.Name())
	}

	require.Equal(t, 0, TierOf("no_such_type"))
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("essay_marathon")
	var unknownErr *UnknownTemplateError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "essay_marathon", unknownErr.Name)
}

func TestBuildPromptIncludesDifficultyAndMaterial(t *testing.T) {
	for name := range registry {
		tmpl, err := Lookup(name)
		require.NoError(t, err)

		in := PromptInput{Topic: "Cell Division", Difficulty: 4, Kind: model.KindExam}
		prompt := tmpl.BuildPrompt(in)
		require.Contains(t, prompt, "Cell Division", name)
		require.Contains(t, prompt, "DIFFICULTY: 4/5", name)
		require.NotContains(t, prompt, "STUDY MATERIALS PROVIDED", name)

		in.Material = "Mitosis produces two identical daughter cells."
		grounded := tmpl.BuildPrompt(in)
		require.Contains(t, grounded, "STUDY MATERIALS PROVIDED", name)
		require.Contains(t, grounded, in.Material, name)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	tmpl, err := Lookup("multiple_choice")
	require.NoError(t, err)

	in := PromptInput{Topic: "Binary Search", Difficulty: 3, Kind: model.KindQuiz}
	require.Equal(t, tmpl.BuildPrompt(in), tmpl.BuildPrompt(in))
}

func TestMatchKeywords(t *testing.T) {
	found, missed := matchKeywords("A goroutine is a LIGHTWEIGHT thread.", []string{"lightweight", "thread", "runtime"})
	require.Equal(t, []string{"lightweight", "thread"}, found)
	require.Equal(t, []string{"runtime"}, missed)
}

func TestCountSentences(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"One sentence.", 1},
		{"Two! Sentences?", 2},
		{"Ellipsis... still one", 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, countSentences(tt.in), tt.in)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	stub := &stubProvider{response: `{"question":"Q","options":["A","B","C","D"],"correctAnswer":"C","explanation":"E"}`}

	ex, err := Generate(context.Background(), stub, "multiple_choice", "Sorting", 2, model.KindQuiz, "")
	require.NoError(t, err)
	require.Equal(t, "multiple_choice", ex.Type)
	require.Equal(t, "Sorting", ex.Topic)
	require.Equal(t, 2, ex.Difficulty)
	require.Nil(t, ex.IsCorrect)
	require.Nil(t, ex.Score)
	require.False(t, ex.CreatedAt.IsZero())

	result, err := Evaluate(context.Background(), ex, model.Response{Answer: "c"}, nil)
	require.NoError(t, err)
	require.True(t, result.IsCorrect)
	require.Equal(t, 100, result.Score)
	require.Contains(t, result.Feedback, "Correct!")
	require.Contains(t, result.Feedback, "E")
}

func TestGenerateUnknownType(t *testing.T) {
	_, err := Generate(context.Background(), &stubProvider{}, "nope", "t", 1, model.KindQuiz, "")
	var unknownErr *UnknownTemplateError
	require.ErrorAs(t, err, &unknownErr)
}

func TestGenerateUnparsableResponse(t *testing.T) {
	stub := &stubProvider{response: "Sure! Here is your question:"}
	_, err := Generate(context.Background(), stub, "multiple_choice", "t", 1, model.KindQuiz, "")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.Equal(t, "multiple_choice", genErr.Template)
}

func TestGenerateBatchSkipsFailures(t *testing.T) {
	provider := providerFunc(func(_ context.Context, _, user string, _ float32) (string, error) {
		if strings.Contains(user, "flashcard") {
			return "", context.DeadlineExceeded
		}
		return `{"question":"Q","options":["A","B","C","D"],"correctAnswer":"A","explanation":"E"}`, nil
	})

	specs := []GenSpec{
		{Type: "multiple_choice", Topic: "a", Difficulty: 1, Kind: model.KindQuiz},
		{Type: "flashcard", Topic: "b", Difficulty: 1, Kind: model.KindQuiz},
		{Type: "multiple_choice", Topic: "c", Difficulty: 1, Kind: model.KindQuiz},
	}
	got := GenerateBatch(context.Background(), provider, specs)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Topic)
	require.Equal(t, "c", got[1].Topic)
}

func TestEvaluateRequiresProvider(t *testing.T) {
	for _, typ := range []string{"short_answer_explain", "short_answer_compare", "concept_comparison",
		"scenario_application", "scenario_prediction", "error_identification", "mini_problem_set"} {
		tmpl, err := Lookup(typ)
		require.NoError(t, err)
		require.True(t, tmpl.Strategy().RequiresProvider(), typ)

		ex := exerciseWith(t, typ, map[string]any{})
		_, err = Evaluate(context.Background(), ex, model.Response{Answer: "x"}, nil)
		require.ErrorIs(t, err, ErrMissingProvider, typ)
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	ex := &model.Exercise{Type: "mystery", Payload: json.RawMessage(`{}`)}
	_, err := Evaluate(context.Background(), ex, model.Response{}, nil)
	var unknownErr *UnknownTemplateError
	require.ErrorAs(t, err, &unknownErr)
}

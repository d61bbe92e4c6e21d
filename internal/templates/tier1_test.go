package templates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestMultipleChoiceEvaluate(t *testing.T) {
	ex := exerciseWith(t, "multiple_choice", MultipleChoicePayload{
		Question:      "Time complexity of binary search?",
		Options:       []string{"O(n)", "O(log n)", "O(n^2)", "O(1)"},
		CorrectAnswer: "B",
		Explanation:   "Binary search halves the search space each iteration.",
	})

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact", "B", true},
		{"lowercase", "b", true},
		{"padded", " b ", true},
		{"wrong", "A", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(context.Background(), ex, model.Response{Answer: tt.answer}, nil)
			require.NoError(t, err)
			require.Equal(t, tt.correct, result.IsCorrect)
			if tt.correct {
				require.Equal(t, 100, result.Score)
				require.Contains(t, result.Feedback, "Correct!")
			} else {
				require.Equal(t, 0, result.Score)
				require.Contains(t, result.Feedback, "The correct answer is B")
			}
			require.Equal(t, "B", result.CorrectAnswer)
		})
	}
}

func TestMultipleChoiceDeterministic(t *testing.T) {
	ex := exerciseWith(t, "multiple_choice", MultipleChoicePayload{CorrectAnswer: "C", Explanation: "E"})
	resp := model.Response{Answer: "c"}

	first, err := Evaluate(context.Background(), ex, resp, nil)
	require.NoError(t, err)
	second, err := Evaluate(context.Background(), ex, resp, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestTrueFalseJustifyEvaluate(t *testing.T) {
	ex := exerciseWith(t, "true_false_justify", TrueFalsePayload{
		Statement:        "Mitosis results in four daughter cells",
		CorrectAnswer:    false,
		Explanation:      "Mitosis produces two daughter cells; meiosis produces four.",
		RequiredKeywords: []string{"two", "meiosis", "four"},
	})

	t.Run("correct boolean, strong justification", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{
			BoolAnswer:    boolPtr(false),
			Justification: "Mitosis produces two cells, meiosis produces four.",
		}, nil)
		require.NoError(t, err)
		require.True(t, result.IsCorrect)
		require.Equal(t, 100, result.Score)
		require.ElementsMatch(t, []string{"two", "meiosis", "four"}, result.KeywordsCovered)
	})

	t.Run("correct boolean, thin justification gets partial credit", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{
			BoolAnswer:    boolPtr(false),
			Justification: "Just feels wrong.",
		}, nil)
		require.NoError(t, err)
		require.False(t, result.IsCorrect)
		require.Equal(t, 60, result.Score)
		require.Contains(t, result.Feedback, "justification is thin")
	})

	t.Run("wrong boolean scores zero regardless of justification", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{
			BoolAnswer:    boolPtr(true),
			Justification: "two meiosis four",
		}, nil)
		require.NoError(t, err)
		require.False(t, result.IsCorrect)
		require.Equal(t, 0, result.Score)
	})

	t.Run("missing boolean treated as wrong", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{Justification: "two meiosis four"}, nil)
		require.NoError(t, err)
		require.False(t, result.IsCorrect)
		require.Equal(t, 0, result.Score)
	})
}

func TestFlashcardSelfReport(t *testing.T) {
	ex := exerciseWith(t, "flashcard", FlashcardPayload{
		Front:     "What is polymorphism?",
		Back:      "The ability of objects to take multiple forms.",
		KeyPoints: []string{"multiple forms", "objects"},
	})

	knew, err := Evaluate(context.Background(), ex, model.Response{Knew: boolPtr(true)}, nil)
	require.NoError(t, err)
	require.True(t, knew.IsCorrect)
	require.Equal(t, 100, knew.Score)
	require.False(t, knew.NeedsReview)

	forgot, err := Evaluate(context.Background(), ex, model.Response{Knew: boolPtr(false)}, nil)
	require.NoError(t, err)
	require.False(t, forgot.IsCorrect)
	require.Equal(t, 0, forgot.Score)
	require.True(t, forgot.NeedsReview)

	review, err := Evaluate(context.Background(), ex, model.Response{Knew: boolPtr(true), WantsReview: true}, nil)
	require.NoError(t, err)
	require.True(t, review.NeedsReview)
}

func TestFlashcardTypedAnswer(t *testing.T) {
	ex := exerciseWith(t, "flashcard", FlashcardPayload{
		Back:      "Objects taking multiple forms through the same interface.",
		KeyPoints: []string{"multiple forms", "objects", "interface"},
	})

	good, err := Evaluate(context.Background(), ex, model.Response{
		Answer: "Objects can take multiple forms behind one interface.",
	}, nil)
	require.NoError(t, err)
	require.True(t, good.IsCorrect)
	require.Equal(t, 100, good.Score)

	// 1 of 3 key points: 33%, below the 60% threshold.
	weak, err := Evaluate(context.Background(), ex, model.Response{Answer: "something about objects"}, nil)
	require.NoError(t, err)
	require.False(t, weak.IsCorrect)
	require.Equal(t, 33, weak.Score)
	require.Contains(t, weak.Feedback, "missed some key points")
	require.True(t, weak.NeedsReview)
}

func TestFillInBlankEvaluate(t *testing.T) {
	ex := exerciseWith(t, "fill_in_blank", FillInBlankPayload{
		Sentence: "The ___ is the powerhouse of the ___",
		Blanks: []Blank{
			{Position: 0, CorrectAnswers: []string{"mitochondria", "mitochondrion"}},
			{Position: 1, CorrectAnswers: []string{"cell"}},
		},
		Explanation: "Mitochondria produce ATP.",
	})

	t.Run("all correct with variant and case folding", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{
			Answers: []string{"Mitochondrion", "CELL"},
		}, nil)
		require.NoError(t, err)
		require.True(t, result.IsCorrect)
		require.Equal(t, 100, result.Score)
		require.Contains(t, result.Feedback, "Correct!")
	})

	t.Run("partial credit per blank", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{
			Answers: []string{"mitochondria", "nucleus"},
		}, nil)
		require.NoError(t, err)
		require.False(t, result.IsCorrect)
		require.Equal(t, 50, result.Score)
	})

	t.Run("missing answers count as wrong", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{Answers: []string{"mitochondria"}}, nil)
		require.NoError(t, err)
		require.False(t, result.IsCorrect)
		require.Equal(t, 50, result.Score)
	})
}

func TestNumericalProblemEvaluate(t *testing.T) {
	ex := exerciseWith(t, "numerical_problem", NumericalPayload{
		Question:      "If f(x) = 2x + 3, what is f(5)?",
		CorrectAnswer: 13,
		Tolerance:     0.01,
		SolutionSteps: []string{"Substitute x=5", "Calculate 2(5)+3 = 13"},
	})

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact", "13", true},
		{"within tolerance", "13.005", true},
		{"outside tolerance", "13.02", false},
		{"non-numeric never errors", "abc", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(context.Background(), ex, model.Response{Answer: tt.answer}, nil)
			require.NoError(t, err)
			require.Equal(t, tt.correct, result.IsCorrect)
			if tt.correct {
				require.Equal(t, 100, result.Score)
			} else {
				require.Equal(t, 0, result.Score)
			}
		})
	}

	t.Run("wrong answer feedback shows solution steps", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{Answer: "15"}, nil)
		require.NoError(t, err)
		require.Contains(t, result.Feedback, "Solution steps:")
		require.Contains(t, result.Feedback, "1. Substitute x=5")
	})

	t.Run("non-numeric asks for a number", func(t *testing.T) {
		result, err := Evaluate(context.Background(), ex, model.Response{Answer: "abc"}, nil)
		require.NoError(t, err)
		require.Equal(t, "Please provide a numeric answer.", result.Feedback)
	})
}

func TestNumericalProblemDefaultTolerance(t *testing.T) {
	// Payload without an explicit tolerance falls back to 0.01.
	ex := exerciseWith(t, "numerical_problem", NumericalPayload{CorrectAnswer: 42})

	result, err := Evaluate(context.Background(), ex, model.Response{Answer: "42.005"}, nil)
	require.NoError(t, err)
	require.True(t, result.IsCorrect)

	result, err = Evaluate(context.Background(), ex, model.Response{Answer: "42.1"}, nil)
	require.NoError(t, err)
	require.False(t, result.IsCorrect)
}
